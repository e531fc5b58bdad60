// Package database opens the SQLite file backing the activity journal.
//
// The journal is optional (database.enabled) and write-only: ledger entries
// and alerts are appended for later inspection, never loaded back into the
// running session.
//
// This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Embedded schema migrations (see the migrations package)
//   - Retention pruning so the journal does not grow without bound
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
