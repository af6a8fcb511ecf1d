package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixlink/internal/auth"
	"github.com/desertthunder/mixlink/internal/catalog"
	"github.com/desertthunder/mixlink/internal/models"
	"github.com/desertthunder/mixlink/internal/services"
	"github.com/desertthunder/mixlink/internal/shared"
)

const playlistWebURL = "https://open.spotify.com/playlist/"

// PlaylistAPI is the subset of the Web API the materializer calls.
type PlaylistAPI interface {
	CurrentUser(ctx context.Context, accessToken string) (*services.SpotifyUser, error)
	CreatePlaylist(ctx context.Context, accessToken, userID, name, description string, public bool) (*services.SpotifyPlaylist, error)
	AddTracks(ctx context.Context, accessToken, playlistID string, uris []string) (string, error)
}

// Materializer creates a template's playlist in the listener's account.
type Materializer struct {
	api       PlaylistAPI
	lifecycle *auth.Lifecycle
	history   models.MaterializationLog
	logger    *log.Logger
}

// NewMaterializer creates a [Materializer]. history may be nil.
func NewMaterializer(api PlaylistAPI, lifecycle *auth.Lifecycle, history models.MaterializationLog, logger *log.Logger) *Materializer {
	return &Materializer{api: api, lifecycle: lifecycle, history: history, logger: logger}
}

// Run resolves the listener, creates the playlist, adds the template's tracks and returns a redirect
// to the new playlist.
//
// An expired token is handled by the token lifecycle; when that restarts authorization the outcome is
// [Reauthorizing]. A failed track insert does not change the outcome.
func (m *Materializer) Run(ctx context.Context, sessionID, accessToken, artist string, tpl catalog.Template) Outcome {
	logger := shared.WithLogger(m.logger, "artist", artist)

	user, token, err := auth.Call(ctx, m.lifecycle, sessionID, accessToken, artist, m.api.CurrentUser)
	if err != nil {
		if authorizeURL, ok := auth.AuthorizeURL(err); ok {
			logger.Info("re-authorizing listener")
			return reauthorizing(authorizeURL)
		}
		logger.Error("failed to fetch user profile", "error", err)
		return failed(StepIdentify, err, MessageCreateFailed)
	}

	playlist, err := m.api.CreatePlaylist(ctx, token, user.ID, tpl.Name, tpl.Description, true)
	if err != nil {
		logger.Error("failed to create playlist", "user", user.ID, "error", err)
		return failed(StepCreatePlaylist, fmt.Errorf("%w: %w", shared.ErrPlaylistCreate, err), MessageCreateFailed)
	}
	logger = shared.WithLogger(logger, "playlist", playlist.ID)

	record := &models.Materialization{
		SessionID:     sessionID,
		Artist:        artist,
		SpotifyUserID: user.ID,
		PlaylistID:    playlist.ID,
	}

	uris := tpl.TrackURIs()
	record.TrackCount = len(uris)
	if len(uris) > 0 {
		if _, err := m.api.AddTracks(ctx, token, playlist.ID, uris); err != nil {
			// the playlist exists but may be missing tracks; there is no rollback
			logger.Warn("failed to add tracks", "count", len(uris), "error", err)
			record.TrackError = err.Error()
		} else {
			record.TracksAdded = true
		}
	}

	target, err := playlistRedirect(playlist)
	if err != nil {
		logger.Error("unusable playlist URL", "error", err)
		return failed(StepRedirect, err, MessageCreateFailed)
	}
	record.PlaylistURL = target

	if m.history != nil {
		if err := m.history.Record(ctx, record); err != nil {
			logger.Warn("failed to record materialization", "error", err)
		}
	}

	logger.Info("playlist created", "tracks", record.TrackCount, "tracks_added", record.TracksAdded)
	return redirectTo(StepRedirect, target)
}

// playlistRedirect returns the playlist's web URL with go=1 set.
func playlistRedirect(p *services.SpotifyPlaylist) (string, error) {
	raw := p.URL()
	if raw == "" {
		if p.ID == "" {
			return "", errors.New("playlist has neither a URL nor an id")
		}
		raw = playlistWebURL + url.PathEscape(p.ID)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse playlist URL: %w", err)
	}
	q := u.Query()
	q.Set("go", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
