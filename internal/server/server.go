// package server contains middleware & handlers for the artist landing pages and the authorization callback
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixlink/internal/shared"
	"github.com/desertthunder/mixlink/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own several routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the "METHOD /path" patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// PlaylistCreator starts or resumes materialization for a listener's create request.
type PlaylistCreator interface {
	Create(ctx context.Context, sessionID, artist string) tasks.Outcome
}

// CallbackProcessor completes an authorization round-trip.
type CallbackProcessor interface {
	Handle(ctx context.Context, sessionID string, p tasks.CallbackParams) tasks.Outcome
}

// Deps groups what the HTTP surface needs from the rest of the application.
type Deps struct {
	Templates tasks.TemplateResolver
	Creator   PlaylistCreator
	Callback  CallbackProcessor
	Logger    *log.Logger
}

// Server serves the listener-facing routes.
type Server struct {
	conf    shared.ServerConfig
	router  *BasicRouter
	httpSrv *http.Server
	logger  *log.Logger
}

// New builds a [Server] with every route and middleware registered.
func New(conf shared.ServerConfig, limits shared.RateLimitConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if conf.FallbackURL == "" {
		conf.FallbackURL = DefaultFallbackURL
	}

	router := NewBasicRouter()
	router.Use(
		RecoverMiddleware(logger),
		LoggingMiddleware(logger),
		RateLimitByIP(RateLimitFromConfig(limits), logger),
		SessionMiddleware(conf.SecureCookies, logger),
	)

	pages := newPages(logger)
	router.Handler(&ArtistHandler{templates: deps.Templates, creator: deps.Creator, pages: pages, fallbackURL: conf.FallbackURL})
	router.Handler(&CallbackHandler{processor: deps.Callback, pages: pages})
	router.HandleFunc(http.MethodGet, "/healthz", healthz)
	router.NotFound(http.RedirectHandler(conf.FallbackURL, http.StatusFound))

	return &Server{conf: conf, router: router, logger: logger}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.conf.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.httpSrv.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	s.logger.Info("shutting down")
	return s.httpSrv.Shutdown(ctx)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
