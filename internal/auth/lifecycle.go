package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mixlink/internal/models"
	"github.com/desertthunder/mixlink/internal/services"
	"github.com/desertthunder/mixlink/internal/shared"
)

// ErrReauthorizing marks a flow abandoned in favour of a fresh authorization redirect.
var ErrReauthorizing = errors.New("re-authorizing")

// ReauthError is returned when stored credentials could not be recovered.
// The caller should redirect to AuthorizeURL without reporting an error.
type ReauthError struct {
	AuthorizeURL string
	Cause        error
}

func (e *ReauthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", ErrReauthorizing, e.Cause)
	}
	return ErrReauthorizing.Error()
}

func (e *ReauthError) Is(target error) bool { return target == ErrReauthorizing }

func (e *ReauthError) Unwrap() error { return e.Cause }

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Lifecycle recovers from expired access tokens for authenticated calls.
type Lifecycle struct {
	refresher   Refresher
	credentials models.CredentialStore
	initiator   Beginner
	logger      *log.Logger
}

// NewLifecycle creates a [Lifecycle].
func NewLifecycle(r Refresher, credentials models.CredentialStore, initiator Beginner, logger *log.Logger) *Lifecycle {
	return &Lifecycle{refresher: r, credentials: credentials, initiator: initiator, logger: logger}
}

// Call runs fn with accessToken. It returns fn's result and the access token that produced it.
//
// On a 401 it performs exactly one refresh and one retry. If no refresh token is stored, the refresh
// fails or the retry fails, stored tokens are cleared, authorization restarts for artist and a
// [*ReauthError] is returned. Other errors from fn are returned unchanged.
func Call[T any](
	ctx context.Context,
	l *Lifecycle,
	sessionID, accessToken, artist string,
	fn func(ctx context.Context, accessToken string) (T, error),
) (T, string, error) {
	var zero T

	result, err := fn(ctx, accessToken)
	if err == nil {
		return result, accessToken, nil
	}
	if !services.IsUnauthorized(err) {
		return zero, accessToken, err
	}

	logger := shared.WithLogger(l.logger, "artist", artist)
	logger.Info("access token rejected, attempting refresh")

	rec, err := l.credentials.Tokens(ctx, sessionID)
	if err != nil {
		logger.Warn("failed to read stored credentials", "error", err)
		return zero, accessToken, l.reauthorize(ctx, sessionID, artist, err)
	}
	if !rec.HasRefreshToken() {
		return zero, accessToken, l.reauthorize(ctx, sessionID, artist, shared.ErrNoRefreshToken)
	}

	token, err := l.refresher.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		if code, desc, ok := services.DescribeTokenError(err); ok {
			logger.Warn("token refresh rejected", "error", code, "description", desc)
		} else {
			logger.Warn("token refresh failed", "error", err)
		}
		return zero, accessToken, l.reauthorize(ctx, sessionID, artist, err)
	}

	if err := l.credentials.SaveTokens(ctx, sessionID, models.TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}); err != nil {
		logger.Error("failed to persist refreshed token", "error", err)
	}

	result, err = fn(ctx, token.AccessToken)
	if err != nil {
		logger.Warn("retry with refreshed token failed", "error", err)
		return zero, token.AccessToken, l.reauthorize(ctx, sessionID, artist, err)
	}
	return result, token.AccessToken, nil
}

// reauthorize clears stored tokens and starts a new authorization exactly once.
func (l *Lifecycle) reauthorize(ctx context.Context, sessionID, artist string, cause error) error {
	if err := l.credentials.Clear(ctx, sessionID); err != nil {
		l.logger.Error("failed to clear credentials", "error", err)
	}

	authorizeURL, err := l.initiator.Begin(ctx, sessionID, artist)
	if err != nil {
		return fmt.Errorf("%w: failed to restart authorization: %w", shared.ErrAuthFailed, err)
	}
	return &ReauthError{AuthorizeURL: authorizeURL, Cause: cause}
}

// AuthorizeURL returns the redirect target carried by a [*ReauthError] in err's chain.
func AuthorizeURL(err error) (string, bool) {
	var reauth *ReauthError
	if errors.As(err, &reauth) {
		return reauth.AuthorizeURL, true
	}
	return "", false
}
