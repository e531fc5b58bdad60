// Package activity holds the household event history and the set of active
// warnings.
//
// The Ledger is a bounded, newest-first log of human-readable events. When it
// is full, recording a new entry evicts the oldest one. The AlertRegistry is a
// keyed set of warning conditions: raising an alert whose key is already
// active is a no-op, so one condition never produces two simultaneous alerts.
// Clearing the registry writes a single system entry to the ledger.
//
// Both types are safe for concurrent use. An optional Archive receives a
// copy of every entry and alert; SQLiteArchive is the production
// implementation, a write-only journal that is never read back at startup.
package activity
