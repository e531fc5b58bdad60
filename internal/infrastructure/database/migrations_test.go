package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
)

// sampleMigrations is a two-step schema used by the migration tests.
func sampleMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_sample_log.up.sql": {Data: []byte(
			"CREATE TABLE sample_log (id TEXT PRIMARY KEY, created_at TEXT NOT NULL);")},
		"20260101_000000_sample_log.down.sql": {Data: []byte(
			"DROP TABLE IF EXISTS sample_log;")},
		"20260102_090000_sample_index.up.sql": {Data: []byte(
			"CREATE INDEX idx_sample_created ON sample_log(created_at);")},
		"README.md": {Data: []byte("not a migration")},
	}
}

func openWithMigrations(t *testing.T, fsys fstest.MapFS) *DB {
	t.Helper()

	db, err := Open(Config{Path: MemoryPath, Migrations: fsys})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	return db
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()

	var n int
	if err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n); err != nil {
		t.Fatalf("sqlite_master query: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	db := openWithMigrations(t, sampleMigrations())
	ctx := context.Background()

	_, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 2 || pending[0].Name != "sample_log" || pending[1].Name != "sample_index" {
		t.Fatalf("pending = %+v, want sample_log then sample_index", pending)
	}
	if pending[0].DownSQL == "" || pending[1].DownSQL != "" {
		t.Error("down SQL not paired with the right migration")
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "sample_log") {
		t.Error("sample_log not created")
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied = %d, pending = %d; want 2, 0", len(applied), len(pending))
	}
	if applied[0].Checksum == "" || applied[0].AppliedAt.IsZero() {
		t.Errorf("applied record incomplete: %+v", applied[0])
	}

	if err := db.Migrate(ctx); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestMigrate_NoSource(t *testing.T) {
	orig := registeredMigrations
	registeredMigrations = nil
	t.Cleanup(func() { registeredMigrations = orig })

	db, err := Open(Config{Path: MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() without migrations error = %v", err)
	}
}

func TestMigrate_StopsAtFailure(t *testing.T) {
	fsys := sampleMigrations()
	fsys["20260103_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE (")}
	db := openWithMigrations(t, fsys)

	if err := db.Migrate(context.Background()); err == nil {
		t.Fatal("Migrate() error = nil, want failure from broken migration")
	}

	applied, pending, err := db.MigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 1 {
		t.Errorf("applied = %d, pending = %d; want 2, 1", len(applied), len(pending))
	}
}

func TestMigrate_DetectsEditedMigration(t *testing.T) {
	fsys := sampleMigrations()
	db := openWithMigrations(t, fsys)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	fsys["20260102_090000_sample_index.up.sql"] = &fstest.MapFile{Data: []byte(
		"CREATE INDEX idx_sample_id ON sample_log(id);")}

	if err := db.Migrate(ctx); !errors.Is(err, ErrMigrationChanged) {
		t.Errorf("Migrate() error = %v, want ErrMigrationChanged", err)
	}
}

func TestRollback(t *testing.T) {
	fsys := fstest.MapFS{
		"20260101_000000_sample_log.up.sql":   {Data: []byte("CREATE TABLE sample_log (id TEXT);")},
		"20260101_000000_sample_log.down.sql": {Data: []byte("DROP TABLE sample_log;")},
	}
	db := openWithMigrations(t, fsys)
	ctx := context.Background()

	if v, err := db.Rollback(ctx); err != nil || v != "" {
		t.Fatalf("Rollback() on empty = %q, %v; want no-op", v, err)
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	v, err := db.Rollback(ctx)
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if v != "20260101_000000" {
		t.Errorf("Rollback() version = %q", v)
	}
	if tableExists(t, db, "sample_log") {
		t.Error("sample_log still present after rollback")
	}

	_, pending, err := db.MigrationStatus(ctx)
	if err != nil || len(pending) != 1 {
		t.Errorf("pending after rollback = %d, %v; want 1", len(pending), err)
	}
}

func TestRollback_WithoutDownFile(t *testing.T) {
	db := openWithMigrations(t, sampleMigrations())
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := db.Rollback(ctx); err == nil {
		t.Error("Rollback() error = nil for migration without down file")
	}
}

func TestParseMigrationFile(t *testing.T) {
	tests := []struct {
		filename string
		want     migrationFile
		wantOk   bool
	}{
		{"20261016_120000_activity_archive.up.sql", migrationFile{"20261016_120000", "activity_archive", true}, true},
		{"20261016_120000_activity_archive.down.sql", migrationFile{"20261016_120000", "activity_archive", false}, true},
		{"readme.txt", migrationFile{}, false},
		{"20261016_120000_activity_archive.sql", migrationFile{}, false},
		{"invalid.up.sql", migrationFile{}, false},
		{"2026_120000_short_date.up.sql", migrationFile{}, false},
		{"20261016_120000_.up.sql", migrationFile{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := parseMigrationFile(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("parseMigrationFile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
