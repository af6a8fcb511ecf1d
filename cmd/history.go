package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixlink/internal/repositories"
	"github.com/desertthunder/mixlink/internal/shared"
)

// History lists recorded materializations, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := repositories.NewMaterializationRepository(db).List(ctx, cmd.String("artist"), cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(records, true)
	}

	if len(records) == 0 {
		return r.writePlain("No playlists created yet\n")
	}

	r.writePlainHeader(fmt.Sprintf("%d playlists", len(records)))
	for _, m := range records {
		tracks := fmt.Sprintf("%d tracks", m.TrackCount)
		if m.TrackCount > 0 && !m.TracksAdded {
			tracks += " (not added)"
		}
		r.writePlain("%s  %-16s %-14s %s\n", m.CreatedAt.Local().Format(time.DateTime), m.Artist, tracks, m.PlaylistURL)
	}
	return nil
}

// SessionsCount prints how many sessions hold stored credentials.
func (r *Runner) SessionsCount(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := repositories.NewCredentialRepository(db).Count(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("%d sessions\n", n)
}

// SessionsPrune deletes credentials that have not been updated within --older-than.
func (r *Runner) SessionsPrune(ctx context.Context, cmd *cli.Command) error {
	age := cmd.Duration("older-than")
	if age <= 0 {
		return fmt.Errorf("%w: --older-than must be positive", shared.ErrInvalidArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	cutoff := time.Now().Add(-age)
	n, err := repositories.NewCredentialRepository(db).Prune(ctx, cutoff)
	if err != nil {
		return err
	}

	r.logger.Info("pruned sessions", "removed", n, "cutoff", cutoff.Format(time.RFC3339))
	return r.writePlain("✓ Removed %d sessions not updated since %s\n", n, cutoff.Format(time.DateTime))
}
