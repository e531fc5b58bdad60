package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

const (
	dirMode  = 0o750
	fileMode = 0o600

	pingTimeout = 5 * time.Second

	// MemoryPath opens a private, throwaway in-memory database.
	MemoryPath = ":memory:"
)

// TimeLayout is how journal tables store timestamps: fixed-width UTC, so
// comparing the strings compares the instants.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// journalTables are the tables Prune is allowed to trim.
var journalTables = map[string]struct{}{
	"activity_log": {},
	"alert_log":    {},
}

// Config describes how to open the activity archive.
type Config struct {
	// Path is the SQLite file, or MemoryPath. Missing parent directories
	// are created.
	Path string

	// WALMode switches the file to write-ahead logging.
	WALMode bool

	// BusyTimeout is how long a writer waits on a lock, in seconds.
	BusyTimeout int

	// Migrations overrides the source registered with RegisterMigrations.
	Migrations fs.FS
}

// DB is an open archive connection.
type DB struct {
	*sql.DB
	path       string
	migrations fs.FS
}

// dsn builds the go-sqlite3 connection string for cfg.
func dsn(cfg Config) string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprint(cfg.BusyTimeout*1000))
	q.Set("_foreign_keys", "on")
	if cfg.WALMode && cfg.Path != MemoryPath {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Open connects to the archive and verifies it answers.
//
// The pool is limited to a single connection: SQLite allows one writer,
// and an in-memory database exists only inside its own connection.
//
// Parameters:
//   - cfg: Archive location and pragmas
//
// Returns:
//   - *DB: Open connection; call Migrate before use
//   - error: If the path is empty or the file cannot be opened
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	onDisk := cfg.Path != MemoryPath
	if onDisk {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if onDisk {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if onDisk {
		_ = os.Chmod(cfg.Path, fileMode) //nolint:errcheck // file appears on first write
	}

	return &DB{DB: sqlDB, path: cfg.Path, migrations: cfg.Migrations}, nil
}

// Path returns the file the archive lives in.
func (db *DB) Path() string {
	return db.path
}

// Close releases the connection. A zero DB closes cleanly.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

// Prune deletes journal rows created before the cutoff.
//
// Parameters:
//   - table: activity_log or alert_log
//   - before: Rows with created_at strictly earlier are removed
//
// Returns:
//   - int64: Rows deleted
//   - error: If table is not a journal table or the delete fails
func (db *DB) Prune(ctx context.Context, table string, before time.Time) (int64, error) {
	if _, ok := journalTables[table]; !ok {
		return 0, fmt.Errorf("table %q cannot be pruned", table)
	}

	res, err := db.ExecContext(ctx,
		"DELETE FROM "+table+" WHERE created_at < ?", //nolint:gosec // table is allow-listed
		before.UTC().Format(TimeLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning %s: %w", table, err)
	}
	return res.RowsAffected()
}
