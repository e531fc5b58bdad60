package activity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AlertRegistry is a deduplicated set of active alerts keyed by condition.
//
// An alert stays active until ClearAll. Raising a key that is already
// active does nothing. All public methods are thread-safe.
type AlertRegistry struct {
	mu     sync.RWMutex
	alerts map[string]Alert
	ledger *Ledger

	now     func() time.Time
	archive Archive
	onRaise func(Alert)
	logger  Logger
}

// NewAlertRegistry creates an empty registry. ClearAll reports to ledger.
func NewAlertRegistry(ledger *Ledger) *AlertRegistry {
	return &AlertRegistry{
		alerts: make(map[string]Alert),
		ledger: ledger,
		now:    time.Now,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *AlertRegistry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// SetClock replaces the time source. Intended for tests.
func (r *AlertRegistry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// SetArchive attaches an archive that receives every raised alert.
func (r *AlertRegistry) SetArchive(archive Archive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archive = archive
}

// OnRaise registers a callback invoked after a new alert is raised.
// The callback runs outside the registry lock.
func (r *AlertRegistry) OnRaise(fn func(Alert)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRaise = fn
}

// Raise activates an alert under key. It returns false, and changes
// nothing, if an alert with that key is already active.
func (r *AlertRegistry) Raise(key, message string) bool {
	r.mu.Lock()
	if _, exists := r.alerts[key]; exists {
		r.mu.Unlock()
		return false
	}

	alert := Alert{
		ID:        uuid.NewString(),
		Key:       key,
		Message:   message,
		CreatedAt: r.now(),
	}
	r.alerts[key] = alert
	archive, onRaise, logger := r.archive, r.onRaise, r.logger
	r.mu.Unlock()

	logger.Info("alert raised", "key", key, "message", message)

	if archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		if err := archive.ArchiveAlert(ctx, alert); err != nil {
			logger.Warn("archiving alert failed", "key", key, "error", err)
		}
		cancel()
	}
	if onRaise != nil {
		onRaise(alert)
	}
	return true
}

// IsActive reports whether an alert with key is active.
func (r *AlertRegistry) IsActive(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.alerts[key]
	return ok
}

// Active returns the active alerts ordered by creation time, then key.
func (r *AlertRegistry) Active() []Alert {
	r.mu.RLock()
	out := make([]Alert, 0, len(r.alerts))
	for _, a := range r.alerts {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Len returns the number of active alerts.
func (r *AlertRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alerts)
}

// ClearAll removes every active alert and records exactly one system entry
// in the ledger. It returns the number of alerts removed.
func (r *AlertRegistry) ClearAll() int {
	r.mu.Lock()
	n := len(r.alerts)
	r.alerts = make(map[string]Alert)
	logger := r.logger
	r.mu.Unlock()

	if r.ledger != nil {
		r.ledger.Record(fmt.Sprintf("All alerts cleared (%d)", n), CategorySystem)
	}
	logger.Info("alerts cleared", "count", n)
	return n
}

// Reset empties the registry without touching the ledger.
func (r *AlertRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = make(map[string]Alert)
}
