package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixlink/internal/catalog"
	"github.com/desertthunder/mixlink/internal/repositories"
	"github.com/desertthunder/mixlink/internal/shared"
	"github.com/desertthunder/mixlink/internal/ui"
)

// TUI launches the interactive catalog browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	c, err := r.loadCatalog()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/mixlink-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	deps := ui.Deps{
		Catalog: catalog.NewStore(c),
		BaseURL: r.config.Server.BaseURL(),
	}

	if verifier, err := r.trackVerifier(ctx); err == nil {
		deps.Verifier = verifier
	} else {
		r.logger.Warn("track verification unavailable", "error", err)
	}

	if db, err := r.openDatabase(); err == nil {
		defer db.Close()
		deps.History = repositories.NewMaterializationRepository(db)
	} else {
		r.logger.Warn("history unavailable", "error", err)
	}

	if _, err := tea.NewProgram(ui.NewModel(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
