package activity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// blockingArchive holds every write until release is closed.
type blockingArchive struct {
	recordingArchive
	started chan struct{}
	release chan struct{}
}

func newBlockingArchive() *blockingArchive {
	return &blockingArchive{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (a *blockingArchive) ArchiveEntry(ctx context.Context, e Entry) error {
	a.started <- struct{}{}
	<-a.release
	return a.recordingArchive.ArchiveEntry(ctx, e)
}

func TestArchiveWriter_PreservesOrderAndDrainsOnClose(t *testing.T) {
	archive := &recordingArchive{}
	w := NewArchiveWriter(archive, 0, nil)

	for i := 0; i < 50; i++ {
		if err := w.ArchiveEntry(context.Background(), Entry{ID: fmt.Sprint(i)}); err != nil {
			t.Fatalf("ArchiveEntry(%d) error = %v", i, err)
		}
	}
	if err := w.ArchiveAlert(context.Background(), Alert{Key: "temp-high"}); err != nil {
		t.Fatalf("ArchiveAlert() error = %v", err)
	}
	w.Close()

	if len(archive.entries) != 50 || len(archive.alerts) != 1 {
		t.Fatalf("archived %d entries, %d alerts; want 50, 1", len(archive.entries), len(archive.alerts))
	}
	for i, e := range archive.entries {
		if e.ID != fmt.Sprint(i) {
			t.Fatalf("entry %d = %s, want writes in enqueue order", i, e.ID)
		}
	}
}

func TestArchiveWriter_FullQueueDrops(t *testing.T) {
	archive := newBlockingArchive()
	w := NewArchiveWriter(archive, 1, nil)

	if err := w.ArchiveEntry(context.Background(), Entry{ID: "running"}); err != nil {
		t.Fatalf("first write error = %v", err)
	}
	<-archive.started

	if err := w.ArchiveEntry(context.Background(), Entry{ID: "queued"}); err != nil {
		t.Fatalf("second write error = %v", err)
	}
	if err := w.ArchiveEntry(context.Background(), Entry{ID: "dropped"}); !errors.Is(err, ErrArchiveBacklog) {
		t.Errorf("third write error = %v, want ErrArchiveBacklog", err)
	}
	if w.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", w.Dropped())
	}

	close(archive.release)
	w.Close()

	if len(archive.entries) != 2 {
		t.Errorf("archived = %d, want 2", len(archive.entries))
	}
}

func TestArchiveWriter_CountsFailures(t *testing.T) {
	archive := &recordingArchive{err: errors.New("disk full")}
	w := NewArchiveWriter(archive, 4, nil)

	_ = w.ArchiveEntry(context.Background(), Entry{ID: "a"})
	_ = w.ArchiveAlert(context.Background(), Alert{Key: "b"})
	w.Close()

	if w.Failed() != 2 {
		t.Errorf("Failed() = %d, want 2", w.Failed())
	}
}

func TestArchiveWriter_Closed(t *testing.T) {
	w := NewArchiveWriter(&recordingArchive{}, 1, nil)
	w.Close()
	w.Close()

	if err := w.ArchiveEntry(context.Background(), Entry{}); !errors.Is(err, ErrArchiveClosed) {
		t.Errorf("write after Close error = %v, want ErrArchiveClosed", err)
	}
}

func TestLedger_RecordDoesNotWaitForArchive(t *testing.T) {
	archive := newBlockingArchive()
	w := NewArchiveWriter(archive, 0, nil)
	l := NewLedger(DefaultCapacity)
	l.SetArchive(w)

	recorded := make(chan struct{})
	go func() {
		l.Record("Kitchen light turned on", CategoryLights)
		l.Record("Kitchen light turned off", CategoryLights)
		close(recorded)
	}()

	select {
	case <-recorded:
	case <-time.After(2 * time.Second):
		t.Fatal("Record() blocked on a stalled archive")
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}

	close(archive.release)
	w.Close()
	if len(archive.entries) != 2 {
		t.Errorf("archived = %d, want 2 after drain", len(archive.entries))
	}
}
