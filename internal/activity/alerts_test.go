package activity

import (
	"sync"
	"testing"
)

// ============================================================================
// AlertRegistry
// ============================================================================

func TestAlertRegistry_RaiseDedup(t *testing.T) {
	r := NewAlertRegistry(NewLedger(DefaultCapacity))

	if !r.Raise("temp-high", "Temperature above 26°C") {
		t.Fatal("first Raise() = false, want true")
	}
	for i := 0; i < 5; i++ {
		if r.Raise("temp-high", "Temperature above 26°C again") {
			t.Fatalf("duplicate Raise() #%d = true, want false", i)
		}
	}

	active := r.Active()
	if len(active) != 1 {
		t.Fatalf("len(Active()) = %d, want 1", len(active))
	}
	if active[0].Message != "Temperature above 26°C" {
		t.Errorf("duplicate raise replaced message: %q", active[0].Message)
	}
}

func TestAlertRegistry_DistinctKeys(t *testing.T) {
	r := NewAlertRegistry(nil)
	r.SetClock(stepClock())

	r.Raise("security-door-main", "main opened")
	r.Raise("thermostat-high", "set above 28")
	r.Raise("security-door-back", "back opened")

	active := r.Active()
	if len(active) != 3 {
		t.Fatalf("len(Active()) = %d, want 3", len(active))
	}
	if active[0].Key != "security-door-main" || active[2].Key != "security-door-back" {
		t.Errorf("Active() not ordered by creation: %s, %s, %s", active[0].Key, active[1].Key, active[2].Key)
	}
	if !r.IsActive("thermostat-high") {
		t.Error("IsActive(thermostat-high) = false")
	}
}

func TestAlertRegistry_ClearAllRecordsOneSystemEntry(t *testing.T) {
	ledger := NewLedger(DefaultCapacity)
	r := NewAlertRegistry(ledger)

	r.Raise("a", "alert a")
	r.Raise("b", "alert b")

	if n := r.ClearAll(); n != 2 {
		t.Errorf("ClearAll() = %d, want 2", n)
	}
	if r.Len() != 0 {
		t.Errorf("Len() after ClearAll = %d, want 0", r.Len())
	}

	entries := ledger.Entries()
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want exactly 1", len(entries))
	}
	if entries[0].Category != CategorySystem {
		t.Errorf("entry category = %q, want %q", entries[0].Category, CategorySystem)
	}

	// After clearing, the same key may be raised again.
	if !r.Raise("a", "alert a") {
		t.Error("Raise() after ClearAll = false, want true")
	}
}

func TestAlertRegistry_ArchiveAndCallback(t *testing.T) {
	r := NewAlertRegistry(nil)
	archive := &recordingArchive{}
	r.SetArchive(archive)

	var raised []Alert
	r.OnRaise(func(a Alert) { raised = append(raised, a) })

	r.Raise("temp-high", "hot")
	r.Raise("temp-high", "hot")

	if len(archive.alerts) != 1 {
		t.Errorf("archived alerts = %d, want 1", len(archive.alerts))
	}
	if len(raised) != 1 || raised[0].Key != "temp-high" {
		t.Errorf("callback alerts = %+v, want one temp-high", raised)
	}
}

func TestAlertRegistry_Reset(t *testing.T) {
	ledger := NewLedger(DefaultCapacity)
	r := NewAlertRegistry(ledger)
	r.Raise("x", "y")

	r.Reset()

	if r.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", r.Len())
	}
	if ledger.Len() != 0 {
		t.Errorf("Reset should not record ledger entries, got %d", ledger.Len())
	}
}

func TestAlertRegistry_ConcurrentRaiseSameKey(t *testing.T) {
	r := NewAlertRegistry(nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Raise("temp-high", "hot") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("successful raises = %d, want exactly 1", wins)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}
