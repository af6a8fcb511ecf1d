// package models defines the data model shared by the authorization flow and its stores
package models

import (
	"context"
	"time"
)

// TokenRecord is the persisted pair of provider credentials for one browser session.
//
// RefreshToken is optional; ExpiresAt is informational only (expiry is detected by a 401).
type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// HasAccessToken reports whether an access token is stored.
func (t TokenRecord) HasAccessToken() bool { return t.AccessToken != "" }

// HasRefreshToken reports whether a refresh token is stored.
func (t TokenRecord) HasRefreshToken() bool { return t.RefreshToken != "" }

// Transaction is a pending authorization round-trip: the PKCE verifier and the artist it was started for.
type Transaction struct {
	Verifier  string
	Artist    string
	CreatedAt time.Time
}

// Materialization records a playlist created for a listener.
type Materialization struct {
	ID            string
	SessionID     string
	Artist        string
	SpotifyUserID string
	PlaylistID    string
	PlaylistURL   string
	TrackCount    int
	TracksAdded   bool
	TrackError    string
	CreatedAt     time.Time
}

// CredentialStore persists token records across visits.
type CredentialStore interface {
	Tokens(ctx context.Context, sessionID string) (TokenRecord, error) // Tokens returns the zero record when nothing is stored
	SaveTokens(ctx context.Context, sessionID string, rec TokenRecord) error
	Clear(ctx context.Context, sessionID string) error
}

// TransactionStore holds at most one pending [Transaction] per session.
type TransactionStore interface {
	Begin(sessionID string, tx Transaction)
	Take(sessionID string) (Transaction, bool) // Take returns and erases the pending transaction
	Clear(sessionID string)
}

// MaterializationLog records created playlists.
type MaterializationLog interface {
	Record(ctx context.Context, m *Materialization) error
}
