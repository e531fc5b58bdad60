package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/database"
)

// SQLiteArchive journals ledger entries and alerts to SQLite.
//
// It writes to the activity_log and alert_log tables created by the
// embedded migrations. The journal is append-only; it is never used to
// restore state at startup.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive creates a new SQLite archive.
//
// Parameters:
//   - db: Open SQLite connection with migrations applied
//
// Returns:
//   - *SQLiteArchive: Archive instance ready for use
func NewSQLiteArchive(db *sql.DB) *SQLiteArchive {
	return &SQLiteArchive{db: db}
}

// ArchiveEntry inserts one ledger entry.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - entry: Ledger entry to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (a *SQLiteArchive) ArchiveEntry(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("entry id is required")
	}

	_, err := a.db.ExecContext(ctx,
		"INSERT INTO activity_log (id, message, category, created_at) VALUES (?, ?, ?, ?)",
		entry.ID,
		entry.Message,
		string(entry.Category),
		entry.Timestamp.UTC().Format(database.TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}
	return nil
}

// ArchiveAlert inserts one raised alert.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - alert: Alert to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (a *SQLiteArchive) ArchiveAlert(ctx context.Context, alert Alert) error {
	if alert.ID == "" {
		return fmt.Errorf("alert id is required")
	}

	_, err := a.db.ExecContext(ctx,
		"INSERT INTO alert_log (id, alert_key, message, created_at) VALUES (?, ?, ?, ?)",
		alert.ID,
		alert.Key,
		alert.Message,
		alert.CreatedAt.UTC().Format(database.TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// RecentEntries returns up to limit archived entries, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: Entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (a *SQLiteArchive) RecentEntries(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultArchiveLimit
	}
	if limit > maxArchiveLimit {
		limit = maxArchiveLimit
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT id, message, category, created_at
		 FROM activity_log
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying activity archive: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var category, createdAt string
		if err := rows.Scan(&e.ID, &e.Message, &category, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning activity archive: %w", err)
		}
		e.Category = Category(category)
		e.Timestamp, err = time.Parse(database.TimeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity archive: %w", err)
	}
	return entries, nil
}

const (
	defaultArchiveLimit = 50
	maxArchiveLimit     = 200
)
