package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ledger is a bounded, newest-first event log.
//
// All public methods are thread-safe. Record never fails: archive errors
// are logged and otherwise ignored.
type Ledger struct {
	mu       sync.RWMutex
	entries  []Entry // newest first
	capacity int

	now      func() time.Time
	archive  Archive
	onRecord func(Entry)
	logger   Logger
}

// NewLedger creates a ledger retaining at most capacity entries.
// A non-positive capacity selects DefaultCapacity.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		now:      time.Now,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the ledger.
func (l *Ledger) SetLogger(logger Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = logger
}

// SetClock replaces the time source. Intended for tests.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// SetArchive attaches an archive that receives every recorded entry.
func (l *Ledger) SetArchive(archive Archive) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.archive = archive
}

// OnRecord registers a callback invoked after each entry is recorded.
// The callback runs outside the ledger lock.
func (l *Ledger) OnRecord(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onRecord = fn
}

// Record prepends a new entry stamped with the current time, evicting the
// oldest entry when the ledger is full. It returns the stored entry.
func (l *Ledger) Record(message string, category Category) Entry {
	l.mu.Lock()
	entry := Entry{
		ID:        uuid.NewString(),
		Message:   message,
		Category:  category,
		Timestamp: l.now(),
	}

	if len(l.entries) >= l.capacity {
		l.entries = l.entries[:l.capacity-1]
	}
	l.entries = append(l.entries, Entry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = entry

	archive, onRecord, logger := l.archive, l.onRecord, l.logger
	l.mu.Unlock()

	if archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		if err := archive.ArchiveEntry(ctx, entry); err != nil {
			logger.Warn("archiving activity entry failed", "id", entry.ID, "error", err)
		}
		cancel()
	}
	if onRecord != nil {
		onRecord(entry)
	}

	logger.Debug("activity recorded", "category", string(category), "message", message)
	return entry
}

// Entries returns a copy of the ledger, newest first.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Capacity returns the maximum number of retained entries.
func (l *Ledger) Capacity() int {
	return l.capacity
}

// Reset empties the ledger without recording anything.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}
