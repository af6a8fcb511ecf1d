package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mixlink/internal/models"
)

// CredentialRepository implements [models.CredentialStore] on the credentials table.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Tokens returns the stored record for sessionID, or the zero record when none exists.
func (r *CredentialRepository) Tokens(ctx context.Context, sessionID string) (models.TokenRecord, error) {
	query := `
		SELECT access_token, refresh_token, expires_at
		FROM credentials
		WHERE session_id = ?
	`

	var (
		rec       models.TokenRecord
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&rec.AccessToken, &rec.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TokenRecord{}, nil
	}
	if err != nil {
		return models.TokenRecord{}, fmt.Errorf("failed to query credentials: %w", err)
	}

	if expiresAt.Valid {
		rec.ExpiresAt = expiresAt.Time
	}
	return rec, nil
}

// SaveTokens upserts the record for sessionID.
//
// An empty RefreshToken leaves any stored refresh token untouched.
func (r *CredentialRepository) SaveTokens(ctx context.Context, sessionID string, rec models.TokenRecord) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if rec.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}

	query := `
		INSERT INTO credentials (session_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN credentials.refresh_token ELSE excluded.refresh_token END,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	ts := now()
	if _, err := r.db.ExecContext(ctx, query,
		sessionID, rec.AccessToken, rec.RefreshToken, nullTime(rec.ExpiresAt), ts, ts,
	); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Clear deletes both tokens for sessionID. Clearing an absent record is not an error.
func (r *CredentialRepository) Clear(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Prune drops records not updated since cutoff and returns how many were removed.
func (r *CredentialRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE updated_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune credentials: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

// Count returns the number of stored credential records.
func (r *CredentialRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM credentials").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count credentials: %w", err)
	}
	return n, nil
}

var _ models.CredentialStore = (*CredentialRepository)(nil)
