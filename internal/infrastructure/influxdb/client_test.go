package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
)

// fakeWriter records points instead of sending them.
type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakeWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
}

func newTestClient(w *fakeWriter) *Client {
	c := &Client{writer: w, siteID: "home-001"}
	c.open.Store(true)
	return c
}

func tagValue(p *write.Point, key string) string {
	for _, tag := range p.TagList() {
		if tag.Key == key {
			return tag.Value
		}
	}
	return ""
}

func fieldValue(p *write.Point, key string) any {
	for _, field := range p.FieldList() {
		if field.Key == key {
			return field.Value
		}
	}
	return nil
}

// ─── Connection ────────────────────────────────────────────────────

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{Enabled: false}, "home-001")
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Token:   "token",
		Org:     "home",
		Bucket:  "telemetry",
	}

	_, err := Connect(ctx, cfg, "home-001")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	c := newTestClient(w)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1", w.flushes)
	}

	// Second close is a no-op.
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if w.flushes != 1 {
		t.Errorf("flushes after second Close = %d, want 1", w.flushes)
	}
}

func TestClose_Nil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

// ─── Writes ────────────────────────────────────────────────────────

func TestWriteReading(t *testing.T) {
	w := &fakeWriter{}
	c := newTestClient(w)
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	c.WriteReading("temperature", "°C", 21.5, "simulation", at)

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.Name() != "reading" {
		t.Errorf("measurement = %q, want reading", p.Name())
	}
	if tagValue(p, "name") != "temperature" || tagValue(p, "unit") != "°C" || tagValue(p, "site") != "home-001" {
		t.Errorf("tags = %+v", p.TagList())
	}
	if got := fieldValue(p, "value"); got != 21.5 {
		t.Errorf("value = %v, want 21.5", got)
	}
	if !p.Time().Equal(at) {
		t.Errorf("time = %v, want %v", p.Time(), at)
	}
}

func TestWriteDeviceSignal(t *testing.T) {
	w := &fakeWriter{}
	c := newTestClient(w)
	battery := 73

	c.WriteDeviceSignal("camera_backyard", true, 80, &battery, time.Now())
	c.WriteDeviceSignal("hub", true, 95, nil, time.Now())

	if len(w.points) != 2 {
		t.Fatalf("points = %d, want 2", len(w.points))
	}
	if got := fieldValue(w.points[0], "battery_percent"); got != int64(73) {
		t.Errorf("battery_percent = %v (%T), want 73", got, got)
	}
	if got := fieldValue(w.points[1], "battery_percent"); got != nil {
		t.Errorf("hub battery_percent = %v, want absent", got)
	}
}

func TestWriteAlert(t *testing.T) {
	w := &fakeWriter{}
	c := newTestClient(w)

	c.WriteAlert("temp-high", "Temperature above 26°C", time.Now())

	if len(w.points) != 1 || tagValue(w.points[0], "key") != "temp-high" {
		t.Errorf("points = %+v", w.points)
	}
}

func TestWrite_NotConnectedIsNoop(t *testing.T) {
	w := &fakeWriter{}
	c := &Client{writer: w}

	c.WriteReading("temperature", "°C", 21.5, "simulation", time.Now())
	c.WritePoint("custom", nil, map[string]interface{}{"v": 1}, time.Now())

	if len(w.points) != 0 {
		t.Errorf("points = %d, want 0 when disconnected", len(w.points))
	}
}

func TestWritePoint_NilTagsGetSite(t *testing.T) {
	w := &fakeWriter{}
	c := newTestClient(w)

	c.WritePoint("custom", nil, map[string]interface{}{"v": 1.0}, time.Now())

	if tagValue(w.points[0], "site") != "home-001" {
		t.Errorf("site tag missing: %+v", w.points[0].TagList())
	}
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.InfluxDBConfig
		wantBatch uint
		wantFlush uint
	}{
		{"configured", config.InfluxDBConfig{BatchSize: 500, FlushInterval: 2}, 500, 2000},
		{"zero falls back", config.InfluxDBConfig{}, defaultBatchSize, 10000},
		{"negative falls back", config.InfluxDBConfig{BatchSize: -1, FlushInterval: -5}, defaultBatchSize, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := clientOptions(tt.cfg)
			if got := opts.BatchSize(); got != tt.wantBatch {
				t.Errorf("BatchSize() = %d, want %d", got, tt.wantBatch)
			}
			if got := opts.FlushInterval(); got != tt.wantFlush {
				t.Errorf("FlushInterval() = %d, want %d", got, tt.wantFlush)
			}
		})
	}
}

func TestDrainErrors(t *testing.T) {
	c := newTestClient(&fakeWriter{})

	var mu sync.Mutex
	var got []error
	c.SetOnError(func(err error) {
		mu.Lock()
		got = append(got, err)
		mu.Unlock()
	})

	errs := make(chan error, 2)
	errs <- errors.New("401 unauthorized")
	errs <- errors.New("bucket not found")
	close(errs)
	c.drainErrors(errs)

	if c.WriteErrors() != 2 {
		t.Errorf("WriteErrors() = %d, want 2", c.WriteErrors())
	}
	if len(got) != 2 || !errors.Is(got[0], ErrWriteFailed) {
		t.Errorf("callback errors = %v, want two wrapping ErrWriteFailed", got)
	}
}

func TestFlush_AfterCloseIsNoop(t *testing.T) {
	w := &fakeWriter{}
	c := newTestClient(w)

	c.Flush()
	_ = c.Close()
	c.Flush()

	if w.flushes != 2 {
		t.Errorf("flushes = %d, want 2 (one explicit, one from Close)", w.flushes)
	}
}
