package repositories

import (
	"database/sql"
	"time"
)

// now is the clock used for created_at/updated_at stamps.
var now = func() time.Time { return time.Now().UTC() }

// nullTime maps the zero [time.Time] to SQL NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
