package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixlink/internal/auth"
	"github.com/desertthunder/mixlink/internal/models"
	"github.com/desertthunder/mixlink/internal/shared"
)

// Creator handles a listener's request to create an artist's playlist.
type Creator struct {
	credentials models.CredentialStore
	templates   TemplateResolver
	initiator   auth.Beginner
	runner      PlaylistRunner
	logger      *log.Logger
}

// NewCreator creates a [Creator].
func NewCreator(credentials models.CredentialStore, templates TemplateResolver, initiator auth.Beginner, runner PlaylistRunner, logger *log.Logger) *Creator {
	return &Creator{credentials: credentials, templates: templates, initiator: initiator, runner: runner, logger: logger}
}

// Create materializes artist's playlist with the session's stored token, or starts authorization
// when no token is stored.
func (c *Creator) Create(ctx context.Context, sessionID, artist string) Outcome {
	logger := shared.WithLogger(c.logger, "artist", artist)

	tpl, ok := c.templates.Lookup(artist)
	if !ok {
		return failed(StepResolve, fmt.Errorf("%w: %s", shared.ErrUnknownArtist, artist), MessageCreateFailed)
	}

	rec, err := c.credentials.Tokens(ctx, sessionID)
	if err != nil {
		logger.Warn("failed to read stored credentials, starting authorization", "error", err)
	}

	if err == nil && rec.HasAccessToken() {
		return c.runner.Run(ctx, sessionID, rec.AccessToken, artist, tpl)
	}

	authorizeURL, err := c.initiator.Begin(ctx, sessionID, artist)
	if err != nil {
		logger.Error("failed to start authorization", "error", err)
		return failed(StepAuthorize, err, MessageCreateFailed)
	}
	return redirectTo(StepAuthorize, authorizeURL)
}
