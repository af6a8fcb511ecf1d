package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/mixlink/internal/auth"
	"github.com/desertthunder/mixlink/internal/cache"
	"github.com/desertthunder/mixlink/internal/catalog"
	"github.com/desertthunder/mixlink/internal/repositories"
	"github.com/desertthunder/mixlink/internal/server"
	"github.com/desertthunder/mixlink/internal/tasks"
)

// application is the wired server and the resources it owns.
type application struct {
	db           *sql.DB
	catalog      *catalog.Store
	transactions *cache.TransientStore
	guards       *auth.Guards[tasks.Outcome]
	server       *server.Server
}

// Close releases the caches and the database.
func (a *application) Close() error {
	a.transactions.Stop()
	a.guards.Stop()
	return a.db.Close()
}

// newApplication wires stores, the provider client and the flow handlers into a [server.Server].
func (r *Runner) newApplication() (*application, error) {
	conf := r.config
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	snapshot, err := catalog.Load(conf.Catalog.Path)
	if err != nil {
		return nil, err
	}
	templates := catalog.NewStore(snapshot)

	spotify, err := r.spotifyService()
	if err != nil {
		return nil, err
	}

	db, err := r.openDatabase()
	if err != nil {
		return nil, err
	}

	transactions := cache.NewTransientStore(conf.Session.TransactionTTL())
	guards := auth.NewGuards[tasks.Outcome](auth.DefaultGuardTTL)

	credentials := repositories.NewCredentialRepository(db)
	history := repositories.NewMaterializationRepository(db)

	initiator := auth.NewInitiator(spotify, transactions, r.logger)
	lifecycle := auth.NewLifecycle(spotify, credentials, initiator, r.logger)
	materializer := tasks.NewMaterializer(spotify, lifecycle, history, r.logger)

	srv := server.New(conf.Server, conf.RateLimit, server.Deps{
		Templates: templates,
		Creator:   tasks.NewCreator(credentials, templates, initiator, materializer, r.logger),
		Callback: tasks.NewCallbackHandler(tasks.CallbackDeps{
			Exchanger:    spotify,
			Transactions: transactions,
			Credentials:  credentials,
			Templates:    templates,
			Runner:       materializer,
			Guards:       guards,
			Logger:       r.logger,
		}),
		Logger: r.logger,
	})

	r.logger.Info("catalog loaded", "path", conf.Catalog.Path, "artists", snapshot.Len())
	return &application{db: db, catalog: templates, transactions: transactions, guards: guards, server: srv}, nil
}

// Serve runs the HTTP server, and the catalog watcher when enabled, until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	app, err := r.newApplication()
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer app.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Start(gctx)
	})
	if r.config.Catalog.Watch {
		g.Go(func() error {
			return app.catalog.Watch(gctx, r.config.Catalog.Path, r.logger)
		})
	}

	r.logger.Info("serving", "url", r.config.Server.BaseURL(), "redirect_uri", r.config.Credentials.Spotify.RedirectURI)
	return g.Wait()
}
