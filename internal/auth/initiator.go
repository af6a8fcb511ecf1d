package auth

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixlink/internal/models"
	"github.com/desertthunder/mixlink/internal/pkce"
	"github.com/desertthunder/mixlink/internal/shared"
)

// Authorizer builds provider authorize URLs.
type Authorizer interface {
	AuthCodeURL(state, challenge string) string
}

// Beginner starts a new authorization round-trip.
type Beginner interface {
	Begin(ctx context.Context, sessionID, artist string) (string, error)
}

// Initiator starts authorization round-trips.
type Initiator struct {
	authorizer   Authorizer
	transactions models.TransactionStore
	logger       *log.Logger
}

// NewInitiator creates an [Initiator].
func NewInitiator(a Authorizer, transactions models.TransactionStore, logger *log.Logger) *Initiator {
	return &Initiator{authorizer: a, transactions: transactions, logger: logger}
}

// Begin stores a fresh PKCE transaction for sessionID and returns the authorize URL to redirect to.
//
// The artist doubles as the OAuth state value.
func (i *Initiator) Begin(ctx context.Context, sessionID, artist string) (string, error) {
	if artist == "" {
		return "", fmt.Errorf("%w: artist", shared.ErrMissingArgument)
	}
	if sessionID == "" {
		return "", fmt.Errorf("%w: session", shared.ErrMissingArgument)
	}

	pair, err := pkce.New()
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	i.transactions.Begin(sessionID, models.Transaction{Verifier: pair.Verifier, Artist: artist})
	i.logger.Debug("authorization started", "artist", artist)

	return i.authorizer.AuthCodeURL(artist, pair.Challenge), nil
}

var _ Beginner = (*Initiator)(nil)
