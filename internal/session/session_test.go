package session

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/activity"
	"github.com/nerrad567/gray-logic-home/internal/bridges/broker"
	"github.com/nerrad567/gray-logic-home/internal/device"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-home/internal/network"
)

// failingClient refuses every dial.
type failingClient struct{ err error }

func (f failingClient) Dial(context.Context, config.MQTTConfig) (broker.Connection, error) {
	return nil, f.err
}

// recordingTelemetry captures telemetry writes.
type recordingTelemetry struct {
	mu       sync.Mutex
	readings []string
	origins  []string
	signals  int
	alerts   []string
}

func (r *recordingTelemetry) WriteReading(name, _ string, _ float64, origin string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, name)
	r.origins = append(r.origins, origin)
}

func (r *recordingTelemetry) WriteDeviceSignal(string, bool, int, *int, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals++
}

func (r *recordingTelemetry) WriteAlert(key, _ string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, key)
}

// steadySource draws mid-range values: readings do not drift and Intn
// returns draw. A hook armed with once runs on the next draw of its kind.
type steadySource struct {
	mu    sync.Mutex
	draw  int
	hooks map[string]func()
}

func (s *steadySource) once(kind string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hooks == nil {
		s.hooks = make(map[string]func())
	}
	s.hooks[kind] = fn
}

func (s *steadySource) fire(kind string) {
	s.mu.Lock()
	fn := s.hooks[kind]
	delete(s.hooks, kind)
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *steadySource) Float64() float64 {
	s.fire("float")
	return 0.5
}

func (s *steadySource) Intn(n int) int {
	s.fire("intn")
	return min(s.draw, n-1)
}

type fixture struct {
	session *Session
	stub    *broker.StubClient
	cfg     *config.Config
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Network.AddProbability = 0
	cfg.Network.RemoveProbability = 0
	stub := broker.NewStubClient()

	opts := Options{
		Config: cfg,
		Client: stub,
		Source: rand.New(rand.NewSource(1)),
	}
	if mutate != nil {
		mutate(&opts)
	}

	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return &fixture{session: s, stub: stub, cfg: cfg}
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	if _, err := f.session.ConnectConfiguredBroker(context.Background()); err != nil {
		t.Fatalf("ConnectConfiguredBroker() error = %v", err)
	}
}

func alertKeys(s *Session) []string {
	var keys []string
	for _, a := range s.Alerts() {
		keys = append(keys, a.Key)
	}
	return keys
}

func hasAlert(s *Session, key string) bool {
	for _, k := range alertKeys(s) {
		if k == key {
			return true
		}
	}
	return false
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{Client: broker.NewStubClient()}); err == nil {
		t.Error("New() without config: expected error")
	}
	if _, err := New(Options{Config: config.Default()}); err == nil {
		t.Error("New() without client: expected error")
	}
}

func TestNew_InitialState(t *testing.T) {
	f := newFixture(t, nil)
	snap := f.session.Snapshot()

	if l, ok := snap.Devices.Light("kitchen"); !ok || !l.On {
		t.Errorf("kitchen light = %+v, want on", l)
	}
	if snap.Devices.Thermostat.TargetC != 22 {
		t.Errorf("thermostat = %d, want 22", snap.Devices.Thermostat.TargetC)
	}
	for _, name := range []string{"temperature", "humidity", "daily_usage", "weekly_total", "monthly_total"} {
		if _, ok := snap.Devices.Readings[name]; !ok {
			t.Errorf("reading %q missing", name)
		}
	}
	if got := snap.Devices.Readings["temperature"].Value; got != 21.5 {
		t.Errorf("temperature = %v, want 21.5", got)
	}
	if snap.Network.State.ConnectedSSID != "Home_Network" {
		t.Errorf("wifi = %q, want Home_Network", snap.Network.State.ConnectedSSID)
	}
	if snap.Broker.State != broker.StateDisconnected {
		t.Errorf("broker state = %q, want disconnected", snap.Broker.State)
	}
	if len(snap.Activity) != 0 || len(snap.Alerts) != 0 {
		t.Errorf("activity=%d alerts=%d, want empty", len(snap.Activity), len(snap.Alerts))
	}
	if len(snap.Channels) != len(f.cfg.Channels) {
		t.Errorf("channels = %d, want %d", len(snap.Channels), len(f.cfg.Channels))
	}
}

// =============================================================================
// Device Intent Tests
// =============================================================================

// journal captures archived entries and alerts.
type journal struct {
	mu      sync.Mutex
	entries []activity.Entry
	alerts  []activity.Alert
}

func (j *journal) ArchiveEntry(_ context.Context, e activity.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *journal) ArchiveAlert(_ context.Context, a activity.Alert) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.alerts = append(j.alerts, a)
	return nil
}

func TestArchive_DrainedOnClose(t *testing.T) {
	archive := &journal{}
	f := newFixture(t, func(o *Options) { o.Archive = archive })
	s := f.session

	if _, err := s.SetThermostat(29); err != nil {
		t.Fatalf("SetThermostat() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	archive.mu.Lock()
	defer archive.mu.Unlock()
	if len(archive.entries) != 2 || len(archive.alerts) != 1 {
		t.Errorf("archived %d entries, %d alerts; want 2, 1", len(archive.entries), len(archive.alerts))
	}
	if s.ArchiveDropped() != 0 {
		t.Errorf("ArchiveDropped() = %d, want 0", s.ArchiveDropped())
	}
}

func TestThermostatAlertPersistsUntilCleared(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session

	if _, err := s.SetThermostat(29); err != nil {
		t.Fatalf("SetThermostat(29) error = %v", err)
	}
	if !hasAlert(s, device.AlertThermostatHigh) {
		t.Fatalf("alerts = %v, want thermostat-high", alertKeys(s))
	}

	if _, err := s.SetThermostat(22); err != nil {
		t.Fatalf("SetThermostat(22) error = %v", err)
	}
	if !hasAlert(s, device.AlertThermostatHigh) {
		t.Error("thermostat-high cleared by lower set-point")
	}

	res, err := s.ClearAlerts()
	if err != nil {
		t.Fatalf("ClearAlerts() error = %v", err)
	}
	if res.Message != "Cleared 1 alerts" {
		t.Errorf("ClearAlerts() message = %q", res.Message)
	}
	if len(s.Alerts()) != 0 {
		t.Errorf("alerts after clear = %v", alertKeys(s))
	}
	if newest := s.Activity()[0]; newest.Category != activity.CategorySystem {
		t.Errorf("newest entry = %+v, want system line", newest)
	}
}

func TestSetThermostat_OutOfRange(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session

	for _, v := range []int{15, 31} {
		if _, err := s.SetThermostat(v); !errors.Is(err, device.ErrOutOfRange) {
			t.Errorf("SetThermostat(%d) error = %v, want ErrOutOfRange", v, err)
		}
	}
	if got := s.Devices().Thermostat.TargetC; got != 22 {
		t.Errorf("thermostat = %d, want unchanged 22", got)
	}
	if len(s.Activity()) != 0 {
		t.Errorf("activity = %+v, want none for rejected intents", s.Activity())
	}
}

func TestToggleLight_LedgerBounded(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session

	var last Result
	for i := 0; i < 15; i++ {
		res, err := s.ToggleLight("kitchen")
		if err != nil {
			t.Fatalf("ToggleLight() #%d error = %v", i+1, err)
		}
		last = res
	}

	entries := s.Activity()
	if len(entries) != 10 {
		t.Fatalf("activity = %d entries, want 10", len(entries))
	}
	// Kitchen starts on, so the 15th toggle turns it off.
	if entries[0].Message != "Kitchen light turned off" {
		t.Errorf("newest entry = %q, want the 15th toggle", entries[0].Message)
	}
	if last.Message != "Light in kitchen turned off" {
		t.Errorf("last result = %q", last.Message)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Fatalf("entries not newest-first at %d", i)
		}
	}
}

func TestDeviceIntents(t *testing.T) {
	tests := []struct {
		name    string
		run     func(s *Session) (Result, error)
		wantErr error
		check   func(t *testing.T, snap device.Snapshot)
	}{
		{
			name: "fan by name",
			run:  func(s *Session) (Result, error) { return s.SetFanLevel("medium") },
			check: func(t *testing.T, snap device.Snapshot) {
				if snap.Fan != device.FanMedium {
					t.Errorf("fan = %v, want medium", snap.Fan)
				}
			},
		},
		{
			name:    "fan invalid",
			run:     func(s *Session) (Result, error) { return s.SetFanLevel("turbo") },
			wantErr: device.ErrInvalidValue,
		},
		{
			name: "camera toggle",
			run:  func(s *Session) (Result, error) { return s.ToggleCamera("backyard") },
			check: func(t *testing.T, snap device.Snapshot) {
				for _, c := range snap.Cameras {
					if c.ID == "backyard" && !c.Enabled {
						t.Error("backyard camera not enabled")
					}
				}
			},
		},
		{
			name:    "unknown camera",
			run:     func(s *Session) (Result, error) { return s.ToggleCamera("attic") },
			wantErr: device.ErrUnknownEntity,
		},
		{
			name: "door open while disarmed",
			run:  func(s *Session) (Result, error) { return s.SetDoor("back", "open") },
			check: func(t *testing.T, snap device.Snapshot) {
				if d, _ := snap.Door("back"); d.Status != device.DoorOpen {
					t.Errorf("back door = %q, want open", d.Status)
				}
			},
		},
		{
			name:    "door bad status",
			run:     func(s *Session) (Result, error) { return s.SetDoor("back", "ajar") },
			wantErr: device.ErrInvalidValue,
		},
		{
			name: "security mode",
			run:  func(s *Session) (Result, error) { return s.SetSecurityMode("armed_home") },
			check: func(t *testing.T, snap device.Snapshot) {
				if snap.Security != device.ArmedHome {
					t.Errorf("security = %q, want armed_home", snap.Security)
				}
			},
		},
		{
			name: "irrigation toggle",
			run:  func(s *Session) (Result, error) { return s.ToggleIrrigation("garden") },
			check: func(t *testing.T, snap device.Snapshot) {
				for _, z := range snap.Irrigation {
					if z.ID == "garden" && !z.Active {
						t.Error("garden not active")
					}
				}
			},
		},
		{
			name: "irrigation schedule",
			run:  func(s *Session) (Result, error) { return s.SetIrrigationSchedule("backyard", "18:30", 25) },
			check: func(t *testing.T, snap device.Snapshot) {
				for _, z := range snap.Irrigation {
					if z.ID == "backyard" && (z.ScheduleTime != "06:30 PM" || z.DurationMinutes != 25) {
						t.Errorf("backyard = %+v", z)
					}
				}
			},
		},
		{
			name:    "irrigation duration out of range",
			run:     func(s *Session) (Result, error) { return s.SetIrrigationSchedule("backyard", "07:00 AM", 90) },
			wantErr: device.ErrOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			res, err := tt.run(f.session)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if res.Message != "" {
					t.Errorf("result on error = %q, want empty", res.Message)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if res.Message == "" {
				t.Error("result message empty")
			}
			tt.check(t, f.session.Devices())
		})
	}
}

// =============================================================================
// WiFi Intent Tests
// =============================================================================

func TestGuestNetworkFlow(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session

	res, err := s.RequestConnect("GuestNetwork")
	if err != nil {
		t.Fatalf("RequestConnect() error = %v", err)
	}
	if !strings.Contains(res.Message, "password") {
		t.Errorf("RequestConnect() message = %q, want credential prompt", res.Message)
	}
	if got := s.Network().State.ConnectedSSID; got != "Home_Network" {
		t.Errorf("connected = %q, want unchanged Home_Network", got)
	}

	if _, err := s.SubmitCredentials("GuestNetwork", "x"); err != nil {
		t.Fatalf("SubmitCredentials() error = %v", err)
	}

	snap := s.Network()
	if snap.State.ConnectedSSID != "GuestNetwork" || snap.State.AssignedIP == "" {
		t.Errorf("state = %+v", snap.State)
	}
	for _, n := range snap.Networks {
		if n.Connected != (n.SSID == "GuestNetwork") {
			t.Errorf("%s connected = %v", n.SSID, n.Connected)
		}
	}
	if !snap.Consistent() {
		t.Error("network snapshot inconsistent")
	}
}

func TestSubmitCredentials_NoPending(t *testing.T) {
	f := newFixture(t, nil)

	if _, err := f.session.SubmitCredentials("GuestNetwork", "x"); !errors.Is(err, network.ErrNoPendingRequest) {
		t.Errorf("error = %v, want ErrNoPendingRequest", err)
	}
}

func TestWifiDisconnectAndToggle(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session

	res, _ := s.Disconnect()
	if res.Message != "Disconnected from Home_Network" {
		t.Errorf("Disconnect() = %q", res.Message)
	}
	res, _ = s.Disconnect()
	if res.Message != "Not connected" {
		t.Errorf("second Disconnect() = %q", res.Message)
	}

	if _, err := s.SetWifiEnabled(false); err != nil {
		t.Fatalf("SetWifiEnabled(false) error = %v", err)
	}
	if _, err := s.Scan(); !errors.Is(err, network.ErrDisabled) {
		t.Errorf("Scan() while disabled error = %v, want ErrDisabled", err)
	}
	if _, err := s.SetWifiEnabled(true); err != nil {
		t.Fatalf("SetWifiEnabled(true) error = %v", err)
	}
	if _, err := s.Scan(); err != nil {
		t.Errorf("Scan() error = %v", err)
	}
}

// =============================================================================
// Broker Tests
// =============================================================================

func TestInboundDoorWhileArmed(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session
	f.connect(t)

	if _, err := s.SetSecurityMode("armed_away"); err != nil {
		t.Fatalf("SetSecurityMode() error = %v", err)
	}

	if n := f.stub.Deliver("grayhome/doors", []byte(`{"door":"main","status":"open"}`)); n != 1 {
		t.Fatalf("Deliver() matched %d handlers, want 1", n)
	}

	if d, _ := s.Devices().Door("main"); d.Status != device.DoorOpen {
		t.Errorf("main door = %q, want open", d.Status)
	}
	if !hasAlert(s, device.DoorAlertKey("main")) {
		t.Errorf("alerts = %v, want security-door-main", alertKeys(s))
	}
	inbound := s.InboundMessages()
	if len(inbound) != 1 || !inbound[0].Applied || inbound[0].Channel != "doors" {
		t.Errorf("inbound = %+v", inbound)
	}
}

func TestInboundMalformedIgnored(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session
	f.connect(t)
	before := s.Devices()

	f.stub.Deliver("grayhome/temperature", []byte(`not json`))

	if !reflect.DeepEqual(before, s.Devices()) {
		t.Error("malformed message changed device state")
	}
	inbound := s.InboundMessages()
	if len(inbound) != 1 || inbound[0].Applied || inbound[0].Error == "" {
		t.Errorf("inbound = %+v, want one unapplied message with error", inbound)
	}
}

func TestPublish_NotConnected(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session
	before := s.Devices()

	_, err := s.Publish(context.Background(), "lights", map[string]any{"room": "living", "status": true})
	if !errors.Is(err, broker.ErrNotConnected) {
		t.Fatalf("Publish() error = %v, want ErrNotConnected", err)
	}
	if !reflect.DeepEqual(before, s.Devices()) {
		t.Error("failed publish changed device state")
	}
	if len(s.Activity()) != 0 {
		t.Errorf("activity = %+v, want none", s.Activity())
	}
}

func TestPublish_Connected(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session
	f.connect(t)

	if _, err := s.Publish(context.Background(), "lights", `{"room":"living","status":true}`); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if f.stub.Published() != 1 {
		t.Errorf("published = %d, want 1", f.stub.Published())
	}
	if got := s.Activity()[0].Message; got != "Published message to lights" {
		t.Errorf("newest entry = %q", got)
	}

	if _, err := s.Publish(context.Background(), "garage", "x"); !errors.Is(err, broker.ErrUnknownChannel) {
		t.Errorf("unknown channel error = %v, want ErrUnknownChannel", err)
	}
}

func TestOperatorChangesMirrored(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session

	// Not connected: nothing to mirror to.
	if _, err := s.ToggleLight("living"); err != nil {
		t.Fatalf("ToggleLight() error = %v", err)
	}

	f.connect(t)
	if _, err := s.ToggleLight("living"); err != nil {
		t.Fatalf("ToggleLight() error = %v", err)
	}
	if got := f.stub.Published(); got != 1 {
		t.Fatalf("published after operator toggle = %d, want 1", got)
	}

	// Broker-driven changes are not echoed back.
	f.stub.Deliver("grayhome/lights", []byte(`{"room":"bedroom","status":true}`))
	if l, _ := s.Devices().Light("bedroom"); !l.On {
		t.Fatal("inbound light message not applied")
	}
	if got := f.stub.Published(); got != 1 {
		t.Errorf("published after inbound change = %d, want 1", got)
	}
}

func TestConnectBroker_Failure(t *testing.T) {
	refused := errors.New("connection refused")
	f := newFixture(t, func(o *Options) { o.Client = failingClient{err: refused} })
	s := f.session

	_, err := s.ConnectBroker(context.Background(), "broker.local", 1883, broker.Credentials{})
	if !errors.Is(err, broker.ErrConnectionFailed) {
		t.Fatalf("ConnectBroker() error = %v, want ErrConnectionFailed", err)
	}
	if st := s.BrokerStatus(); st.State != broker.StateDisconnected || st.LastError == "" {
		t.Errorf("status = %+v", st)
	}
	if e := s.Activity(); len(e) != 1 || e[0].Category != activity.CategoryAlert {
		t.Errorf("activity = %+v, want one alert line", e)
	}
}

func TestDisconnectBroker(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session

	res, _ := s.DisconnectBroker()
	if res.Message != "Broker not connected" {
		t.Errorf("DisconnectBroker() = %q", res.Message)
	}

	f.connect(t)
	if _, err := s.DisconnectBroker(); err != nil {
		t.Fatalf("DisconnectBroker() error = %v", err)
	}
	if s.BrokerStatus().State != broker.StateDisconnected {
		t.Errorf("state = %q, want disconnected", s.BrokerStatus().State)
	}
}

// =============================================================================
// Tick Tests
// =============================================================================

func TestTick_ReadingsStayInBounds(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Config.Simulation.Temperature.High = 25
	})
	s := f.session

	for i := 0; i < 300; i++ {
		s.Tick()
		for name, r := range s.Devices().Readings {
			if r.Value < r.Low || r.Value > r.High {
				t.Fatalf("tick %d: %s = %v outside [%v, %v]", i, name, r.Value, r.Low, r.High)
			}
		}
		for _, d := range s.Devices().Devices {
			if d.SignalStrength < 0 || d.SignalStrength > 100 {
				t.Fatalf("tick %d: %s signal %d", i, d.ID, d.SignalStrength)
			}
		}
	}

	if len(s.Activity()) != 0 {
		t.Errorf("simulation wrote %d ledger lines, want 0", len(s.Activity()))
	}
}

func TestTick_TemperatureAlertDeduplicated(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Config.Simulation.Temperature.Initial = 30
		o.Config.Simulation.Temperature.Low = 27
		o.Config.Simulation.Temperature.High = 35
	})
	s := f.session

	for i := 0; i < 20; i++ {
		s.Tick()
	}

	if got := alertKeys(s); len(got) != 1 || got[0] != device.AlertTempHigh {
		t.Errorf("alerts = %v, want exactly [temp-high]", got)
	}
}

func TestTick_Telemetry(t *testing.T) {
	tel := &recordingTelemetry{}
	f := newFixture(t, func(o *Options) { o.Telemetry = tel })

	f.session.Tick()

	tel.mu.Lock()
	defer tel.mu.Unlock()
	if len(tel.readings) != 5 {
		t.Errorf("readings written = %v, want 5", tel.readings)
	}
	for _, o := range tel.origins {
		if o != string(device.OriginSimulation) {
			t.Errorf("origin = %q, want simulation", o)
		}
	}
}

func TestTick_KeepsBrokerReadingDeliveredMidTick(t *testing.T) {
	src := &steadySource{draw: signalJitter}
	f := newFixture(t, func(o *Options) { o.Source = src })
	f.connect(t)
	s := f.session

	delivered := make(chan int, 1)
	src.once("float", func() {
		go func() {
			delivered <- f.stub.Deliver("grayhome/temperature", []byte(`{"value": 25.0}`))
		}()
	})

	s.Tick()

	select {
	case n := <-delivered:
		if n != 1 {
			t.Fatalf("Deliver() reached %d handlers, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broker message was not applied")
	}

	if got := s.Devices().Readings[device.ReadingTemperature].Value; got != 25 {
		t.Errorf("temperature = %v, want 25 from the broker", got)
	}
	if msgs := s.InboundMessages(); len(msgs) != 1 || !msgs[0].Applied {
		t.Errorf("inbound = %+v, want one applied message", msgs)
	}
}

func TestTick_KeepsBrokerTelemetryDeliveredMidTick(t *testing.T) {
	src := &steadySource{draw: 0} // every connected signal drops by signalJitter
	f := newFixture(t, func(o *Options) {
		o.Source = src
		o.Config.Channels[device.ChannelDevices] = "grayhome/devices"
	})
	f.connect(t)
	s := f.session

	delivered := make(chan int, 1)
	src.once("intn", func() {
		go func() {
			delivered <- f.stub.Deliver("grayhome/devices", []byte(`{"device": "hub", "signal_strength": 42}`))
		}()
	})

	s.Tick()

	select {
	case n := <-delivered:
		if n != 1 {
			t.Fatalf("Deliver() reached %d handlers, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broker message was not applied")
	}

	hub, _ := s.state.Device("hub")
	if hub.SignalStrength != 42 {
		t.Errorf("hub signal = %d, want 42 from the broker", hub.SignalStrength)
	}
	thermostat, _ := s.state.Device("thermostat")
	if thermostat.SignalStrength != 88-signalJitter {
		t.Errorf("thermostat signal = %d, want %d", thermostat.SignalStrength, 88-signalJitter)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.session.Run(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

// =============================================================================
// Events / Reset Tests
// =============================================================================

func TestOnEvent(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session

	var mu sync.Mutex
	seen := map[EventType]int{}
	s.OnEvent(func(e Event) {
		mu.Lock()
		seen[e.Type]++
		mu.Unlock()
	})

	if _, err := s.SetThermostat(29); err != nil {
		t.Fatalf("SetThermostat() error = %v", err)
	}
	if _, err := s.Scan(); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	f.connect(t)

	mu.Lock()
	defer mu.Unlock()
	for _, want := range []EventType{EventStateChanged, EventActivity, EventAlertRaised, EventNetworkChanged, EventBrokerStatus} {
		if seen[want] == 0 {
			t.Errorf("no %s event", want)
		}
	}
}

func TestReset(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session
	f.connect(t)

	_, _ = s.SetThermostat(29)
	_, _ = s.ToggleLight("kitchen")
	_, _ = s.RequestConnect("CoffeeShop_Free")
	f.stub.Deliver("grayhome/motion", []byte(`{"value":true}`))

	s.Reset()

	snap := s.Snapshot()
	if len(snap.Activity) != 0 || len(snap.Alerts) != 0 || len(snap.Inbound) != 0 {
		t.Errorf("after reset activity=%d alerts=%d inbound=%d", len(snap.Activity), len(snap.Alerts), len(snap.Inbound))
	}
	if snap.Broker.State != broker.StateDisconnected {
		t.Errorf("broker = %q, want disconnected", snap.Broker.State)
	}
	if l, _ := snap.Devices.Light("kitchen"); !l.On {
		t.Error("kitchen light not restored")
	}
	if snap.Devices.Thermostat.TargetC != 22 || snap.Devices.Motion {
		t.Errorf("devices not restored: %+v", snap.Devices)
	}
	if snap.Network.State.ConnectedSSID != "Home_Network" {
		t.Errorf("wifi = %q, want Home_Network", snap.Network.State.ConnectedSSID)
	}
}
