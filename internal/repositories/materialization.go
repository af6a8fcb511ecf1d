package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixlink/internal/models"
	"github.com/desertthunder/mixlink/internal/shared"
)

// MaterializationRepository stores the history of playlists created for listeners.
type MaterializationRepository struct {
	db *sql.DB
}

// NewMaterializationRepository creates a new [MaterializationRepository] with the given database connection
func NewMaterializationRepository(db *sql.DB) *MaterializationRepository {
	return &MaterializationRepository{db: db}
}

// Record inserts m, assigning its ID and CreatedAt when unset.
func (r *MaterializationRepository) Record(ctx context.Context, m *models.Materialization) error {
	if m.Artist == "" || m.PlaylistID == "" {
		return fmt.Errorf("%w: artist and playlist id are required", shared.ErrInvalidInput)
	}
	if m.ID == "" {
		m.ID = shared.GenerateID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}

	query := `
		INSERT INTO materializations (
			id, session_id, artist, spotify_user_id, playlist_id, playlist_url,
			track_count, tracks_added, track_error, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.SessionID,
		m.Artist,
		m.SpotifyUserID,
		m.PlaylistID,
		m.PlaylistURL,
		m.TrackCount,
		m.TracksAdded,
		m.TrackError,
		m.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert materialization: %w", err)
	}
	return nil
}

// List returns recorded materializations, newest first.
//
// An empty artist lists every artist; limit <= 0 means no limit.
func (r *MaterializationRepository) List(ctx context.Context, artist string, limit int) ([]*models.Materialization, error) {
	query := `
		SELECT
			id, session_id, artist, spotify_user_id, playlist_id, playlist_url,
			track_count, tracks_added, track_error, created_at
		FROM materializations
		WHERE 1 = 1
	`

	args := []any{}
	if artist != "" {
		query += " AND artist = ?"
		args = append(args, artist)
	}

	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query materializations: %w", err)
	}
	defer rows.Close()

	var out []*models.Materialization
	for rows.Next() {
		var (
			m         models.Materialization
			createdAt time.Time
		)
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.Artist, &m.SpotifyUserID, &m.PlaylistID, &m.PlaylistURL,
			&m.TrackCount, &m.TracksAdded, &m.TrackError, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan materialization: %w", err)
		}
		m.CreatedAt = createdAt
		out = append(out, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

var _ models.MaterializationLog = (*MaterializationRepository)(nil)
