package activity

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultArchiveQueue is the number of pending writes an ArchiveWriter
// holds before it starts dropping.
const DefaultArchiveQueue = 256

type archiveJob func(ctx context.Context) error

// ArchiveWriter forwards entries and alerts to another Archive on a single
// background goroutine. Enqueueing never blocks, so a Ledger or
// AlertRegistry can record while its caller holds a lock. Writes reach the
// underlying archive in the order they were enqueued.
//
// Thread Safety: All methods are safe for concurrent use.
type ArchiveWriter struct {
	next   Archive
	logger Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan archiveJob
	done   chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewArchiveWriter starts a writer in front of next. A non-positive depth
// selects DefaultArchiveQueue. A nil logger discards.
func NewArchiveWriter(next Archive, depth int, logger Logger) *ArchiveWriter {
	if depth <= 0 {
		depth = DefaultArchiveQueue
	}
	if logger == nil {
		logger = noopLogger{}
	}
	w := &ArchiveWriter{
		next:   next,
		logger: logger,
		jobs:   make(chan archiveJob, depth),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// ArchiveEntry queues entry. The context is not used; each write is bounded
// by its own timeout when it runs.
func (w *ArchiveWriter) ArchiveEntry(_ context.Context, entry Entry) error {
	return w.enqueue(func(ctx context.Context) error {
		return w.next.ArchiveEntry(ctx, entry)
	})
}

// ArchiveAlert queues alert.
func (w *ArchiveWriter) ArchiveAlert(_ context.Context, alert Alert) error {
	return w.enqueue(func(ctx context.Context) error {
		return w.next.ArchiveAlert(ctx, alert)
	})
}

func (w *ArchiveWriter) enqueue(job archiveJob) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrArchiveClosed
	}
	select {
	case w.jobs <- job:
		return nil
	default:
		w.dropped.Add(1)
		return ErrArchiveBacklog
	}
}

func (w *ArchiveWriter) run() {
	defer close(w.done)

	for job := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		if err := job(ctx); err != nil {
			w.failed.Add(1)
			w.logger.Warn("archive write failed", "error", err)
		}
		cancel()
	}
}

// Dropped returns how many writes were discarded because the queue was full.
func (w *ArchiveWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Failed returns how many writes the underlying archive rejected.
func (w *ArchiveWriter) Failed() uint64 {
	return w.failed.Load()
}

// Close stops accepting writes and waits for queued ones to finish. It is
// safe to call more than once.
func (w *ArchiveWriter) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}
