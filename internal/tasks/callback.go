package tasks

import (
	"context"
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mixlink/internal/auth"
	"github.com/desertthunder/mixlink/internal/catalog"
	"github.com/desertthunder/mixlink/internal/models"
	"github.com/desertthunder/mixlink/internal/services"
	"github.com/desertthunder/mixlink/internal/shared"
)

// CallbackParams are the query parameters Spotify appends to the redirect URI.
type CallbackParams struct {
	Code             string
	Error            string
	ErrorDescription string
	State            string
}

// ParseCallback reads callback parameters from a query string. The URL fragment is never consulted.
func ParseCallback(q url.Values) CallbackParams {
	return CallbackParams{
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
		State:            q.Get("state"),
	}
}

// Exchanger trades an authorization code and verifier for tokens.
type Exchanger interface {
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
}

// TemplateResolver looks up an artist's playlist template.
type TemplateResolver interface {
	Lookup(artist string) (catalog.Template, bool)
}

// PlaylistRunner materializes a template for a listener.
type PlaylistRunner interface {
	Run(ctx context.Context, sessionID, accessToken, artist string, tpl catalog.Template) Outcome
}

// CallbackHandler completes an authorization round-trip and materializes the playlist.
type CallbackHandler struct {
	exchanger    Exchanger
	transactions models.TransactionStore
	credentials  models.CredentialStore
	templates    TemplateResolver
	runner       PlaylistRunner
	guards       *auth.Guards[Outcome]
	logger       *log.Logger
}

// CallbackDeps groups the collaborators of a [CallbackHandler].
type CallbackDeps struct {
	Exchanger    Exchanger
	Transactions models.TransactionStore
	Credentials  models.CredentialStore
	Templates    TemplateResolver
	Runner       PlaylistRunner
	Guards       *auth.Guards[Outcome]
	Logger       *log.Logger
}

// NewCallbackHandler creates a [CallbackHandler].
func NewCallbackHandler(deps CallbackDeps) *CallbackHandler {
	guards := deps.Guards
	if guards == nil {
		guards = auth.NewGuards[Outcome](0)
	}
	return &CallbackHandler{
		exchanger:    deps.Exchanger,
		transactions: deps.Transactions,
		credentials:  deps.Credentials,
		templates:    deps.Templates,
		runner:       deps.Runner,
		guards:       guards,
		logger:       deps.Logger,
	}
}

// Handle processes one callback delivery for sessionID.
//
// Deliveries are guarded per session and code. A repeated delivery of the same code, such as a
// reload of the callback page, does no work and intentionally replays the first delivery's outcome
// while the guard is remembered. A different code for the same session still finds the transaction
// consumed and fails with [shared.ErrMissingTransaction].
//
// If processing panics the guard is finished as failed before the panic continues, so later
// deliveries replay the failure instead of waiting on a guard that never completes.
func (h *CallbackHandler) Handle(ctx context.Context, sessionID string, p CallbackParams) Outcome {
	logger := shared.WithLogger(h.logger, "state", p.State)

	if p.Error != "" {
		h.transactions.Clear(sessionID)
		logger.Warn("authorization denied", "error", p.Error, "description", p.ErrorDescription)
		return failed(StepCallback, fmt.Errorf("%w: %s", shared.ErrAuthFailed, p.Error), MessageCallbackFailed)
	}
	if p.Code == "" || p.State == "" {
		h.transactions.Clear(sessionID)
		logger.Warn("callback missing code or state")
		return failed(StepCallback, fmt.Errorf("%w: code and state", shared.ErrMissingArgument), MessageCallbackFailed)
	}

	guard, won := h.guards.Acquire(sessionID + "|" + p.Code)
	if !won {
		logger.Debug("duplicate callback delivery", "guard", guard.State())
		prior, err := guard.Wait(ctx)
		if err != nil {
			return Outcome{Kind: Duplicate, Step: StepCallback, Message: MessageInProgress}
		}
		return duplicateOf(prior)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("callback processing panicked", "panic", r)
			guard.Finish(false, failed(StepCallback, fmt.Errorf("callback processing panicked: %v", r), MessageCallbackFailed))
			panic(r)
		}
	}()

	out := h.process(ctx, sessionID, p, logger)
	guard.Finish(out.Succeeded(), out)
	return out
}

func (h *CallbackHandler) process(ctx context.Context, sessionID string, p CallbackParams, logger *log.Logger) Outcome {
	tx, ok := h.transactions.Take(sessionID)
	if !ok {
		logger.Warn("no pending transaction for callback")
		return failed(StepCallback, shared.ErrMissingTransaction, MessageCallbackFailed)
	}
	if tx.Artist != p.State {
		logger.Warn("callback state does not match pending transaction", "expected", tx.Artist)
		return failed(StepCallback, shared.ErrStateMismatch, MessageCallbackFailed)
	}

	token, err := h.exchanger.Exchange(ctx, p.Code, tx.Verifier)
	if err != nil {
		if code, desc, ok := services.DescribeTokenError(err); ok {
			logger.Error("token exchange rejected", "error", code, "description", desc, "status", services.StatusCode(err))
		} else {
			logger.Error("token exchange failed", "error", err)
		}
		return failed(StepExchange, err, MessageCallbackFailed)
	}

	if err := h.credentials.SaveTokens(ctx, sessionID, models.TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}); err != nil {
		logger.Error("failed to persist tokens", "error", err)
	}

	tpl, ok := h.templates.Lookup(p.State)
	if !ok {
		logger.Warn("callback for unknown artist")
		return failed(StepResolve, fmt.Errorf("%w: %s", shared.ErrUnknownArtist, p.State), MessageCallbackFailed)
	}

	return h.runner.Run(ctx, sessionID, token.AccessToken, p.State, tpl)
}
