package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"
)

// ErrMigrationChanged means an applied migration file no longer matches
// the checksum recorded when it ran.
var ErrMigrationChanged = errors.New("database: applied migration was modified")

// registeredMigrations is the source used when Config.Migrations is nil.
var registeredMigrations fs.FS

// RegisterMigrations sets the default migration source. The migrations
// package calls it from init with its embedded files.
func RegisterMigrations(fsys fs.FS) {
	registeredMigrations = fsys
}

// Migration is one schema change. Files are named
// YYYYMMDD_HHMMSS_description.up.sql with an optional .down.sql partner.
type Migration struct {
	Version  string
	Name     string
	UpSQL    string
	DownSQL  string
	Checksum string
}

// MigrationRecord is a row of schema_migrations.
type MigrationRecord struct {
	Version   string
	Checksum  string
	AppliedAt time.Time
}

// Migrate applies every pending migration, oldest first, each in its own
// transaction. It stops at the first failure and leaves earlier
// migrations applied.
//
// Returns:
//   - error: ErrMigrationChanged if an applied file was edited, or the
//     failing migration's error
func (db *DB) Migrate(ctx context.Context) error {
	_, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := db.runMigration(ctx, m.Version, m.UpSQL, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, checksum, applied_at) VALUES (?, ?, ?)",
				m.Version, m.Checksum, time.Now().UTC().Format(time.RFC3339))
			return err
		}); err != nil {
			return fmt.Errorf("applying %s_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// Rollback reverts the most recently applied migration using its down
// file. It is a no-op when nothing has been applied.
//
// Returns:
//   - string: The version rolled back, empty when there was none
//   - error: If the migration has no down file or the SQL fails
func (db *DB) Rollback(ctx context.Context) (string, error) {
	applied, _, err := db.MigrationStatus(ctx)
	if err != nil {
		return "", err
	}
	if len(applied) == 0 {
		return "", nil
	}
	last := applied[len(applied)-1].Version

	all, err := db.loadMigrations()
	if err != nil {
		return "", err
	}
	idx := slices.IndexFunc(all, func(m Migration) bool { return m.Version == last })
	if idx < 0 || all[idx].DownSQL == "" {
		return "", fmt.Errorf("migration %s has no down file", last)
	}

	if err := db.runMigration(ctx, last, all[idx].DownSQL, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", last)
		return err
	}); err != nil {
		return "", fmt.Errorf("rolling back %s: %w", last, err)
	}
	return last, nil
}

// MigrationStatus lists applied migrations and the ones still pending.
func (db *DB) MigrationStatus(ctx context.Context) (applied []MigrationRecord, pending []Migration, err error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			checksum   TEXT NOT NULL DEFAULT '',
			applied_at TEXT NOT NULL
		)`); err != nil {
		return nil, nil, fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied, err = db.appliedMigrations(ctx)
	if err != nil {
		return nil, nil, err
	}
	all, err := db.loadMigrations()
	if err != nil {
		return nil, nil, err
	}

	sums := make(map[string]string, len(applied))
	for _, r := range applied {
		sums[r.Version] = r.Checksum
	}
	for _, m := range all {
		sum, done := sums[m.Version]
		switch {
		case !done:
			pending = append(pending, m)
		case sum != "" && sum != m.Checksum:
			return nil, nil, fmt.Errorf("%w: %s_%s", ErrMigrationChanged, m.Version, m.Name)
		}
	}
	return applied, pending, nil
}

func (db *DB) appliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT version, checksum, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying schema_migrations: %w", err)
	}
	defer rows.Close()

	var out []MigrationRecord
	for rows.Next() {
		var r MigrationRecord
		var at string
		if err := rows.Scan(&r.Version, &r.Checksum, &at); err != nil {
			return nil, fmt.Errorf("scanning schema_migrations: %w", err)
		}
		r.AppliedAt, _ = time.Parse(time.RFC3339, at) //nolint:errcheck // written by Migrate
		out = append(out, r)
	}
	return out, rows.Err()
}

// runMigration executes body and a bookkeeping statement in one
// transaction.
func (db *DB) runMigration(ctx context.Context, version, body string, record func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("executing %s: %w", version, err)
	}
	if err := record(tx); err != nil {
		return fmt.Errorf("recording %s: %w", version, err)
	}
	return tx.Commit()
}

// loadMigrations reads the migration source, oldest first. No source, or
// a source without matching files, yields no migrations.
func (db *DB) loadMigrations() ([]Migration, error) {
	src := db.migrations
	if src == nil {
		src = registeredMigrations
	}
	if src == nil {
		return nil, nil
	}

	entries, err := fs.ReadDir(src, ".")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	byVersion := make(map[string]*Migration)
	for _, e := range entries {
		f, ok := parseMigrationFile(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		data, err := fs.ReadFile(src, e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}

		m := byVersion[f.version]
		if m == nil {
			m = &Migration{Version: f.version, Name: f.name}
			byVersion[f.version] = m
		}
		if f.up {
			m.UpSQL = string(data)
			sum := sha256.Sum256(data)
			m.Checksum = hex.EncodeToString(sum[:])
		} else {
			m.DownSQL = string(data)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL != "" {
			out = append(out, *m)
		}
	}
	slices.SortFunc(out, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })
	return out, nil
}

// migrationFile is a parsed migration filename.
type migrationFile struct {
	version string
	name    string
	up      bool
}

// parseMigrationFile splits "20261016_120000_activity_archive.up.sql" into
// version "20261016_120000", name "activity_archive" and direction.
func parseMigrationFile(filename string) (migrationFile, bool) {
	var f migrationFile

	base, ok := strings.CutSuffix(filename, ".sql")
	if !ok {
		return f, false
	}
	if b, isUp := strings.CutSuffix(base, ".up"); isUp {
		base, f.up = b, true
	} else if b, isDown := strings.CutSuffix(base, ".down"); isDown {
		base = b
	} else {
		return f, false
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 || len(parts[0]) != 8 || len(parts[1]) != 6 || parts[2] == "" {
		return f, false
	}
	f.version = parts[0] + "_" + parts[1]
	f.name = parts[2]
	return f, true
}
