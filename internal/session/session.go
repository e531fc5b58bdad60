package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/activity"
	"github.com/nerrad567/gray-logic-home/internal/bridges/broker"
	"github.com/nerrad567/gray-logic-home/internal/device"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-home/internal/network"
	"github.com/nerrad567/gray-logic-home/internal/sensor"
)

// mirrorTimeout bounds one outbound mirror publish.
const mirrorTimeout = 5 * time.Second

// Reading units.
var readingUnits = map[string]string{
	sensor.Temperature:  "°C",
	sensor.Humidity:     "%",
	sensor.DailyUsage:   "kWh",
	sensor.WeeklyTotal:  "kWh",
	sensor.MonthlyTotal: "kWh",
}

// Logger defines the logging interface used by the session.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Telemetry receives time-series points. *influxdb.Client satisfies it.
type Telemetry interface {
	WriteReading(name, unit string, value float64, origin string, at time.Time)
	WriteDeviceSignal(deviceID string, connected bool, signal int, battery *int, at time.Time)
	WriteAlert(key, message string, at time.Time)
}

// Options configures a Session.
type Options struct {
	// Config supplies simulation, network, broker and channel settings
	// (required).
	Config *config.Config

	// Client dials the broker (required). Use broker.NewStubClient for a
	// session without a real broker.
	Client broker.Client

	// Metrics is optional; nil creates unregistered collectors.
	Metrics *broker.Metrics

	// Archive journals ledger entries and alerts. Optional. Writes are
	// queued and performed off the mutation path; Close drains them.
	Archive activity.Archive

	// Telemetry records readings, device signals and alerts. Optional.
	Telemetry Telemetry

	// Verifier checks WiFi secrets. Nil accepts any secret.
	Verifier network.CredentialVerifier

	// Source drives the simulation. Nil seeds from Config.Simulation.Seed.
	Source sensor.Source

	// Logger is optional.
	Logger Logger
}

// Session is the household core for one process lifetime.
//
// All public methods are thread-safe.
type Session struct {
	cfg       *config.Config
	ledger    *activity.Ledger
	alerts    *activity.AlertRegistry
	state     *device.State
	network   *network.Manager
	bridge    *broker.Bridge
	sim       *sensor.Simulator
	src       sensor.Source
	archive   *activity.ArchiveWriter
	telemetry Telemetry
	logger    Logger
	now       func() time.Time

	eventMu sync.RWMutex
	onEvent func(Event)
}

// New builds a session in its initial state. The broker bridge starts
// disconnected.
func New(opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, errors.New("session: config is required")
	}
	if opts.Client == nil {
		return nil, errors.New("session: broker client is required")
	}

	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	src := opts.Source
	if src == nil {
		src = sensor.NewSource(cfg.Simulation.Seed)
	}

	signals := []sensor.Signal{
		sensor.FromConfig(sensor.Temperature, cfg.Simulation.Temperature),
		sensor.FromConfig(sensor.Humidity, cfg.Simulation.Humidity),
	}
	signals = append(signals, sensor.EnergySignals(src)...)
	sim := sensor.NewSimulator(src, signals...)

	ledger := activity.NewLedger(activity.DefaultCapacity)
	alerts := activity.NewAlertRegistry(ledger)
	ledger.SetLogger(logger)
	alerts.SetLogger(logger)
	var archive *activity.ArchiveWriter
	if opts.Archive != nil {
		archive = activity.NewArchiveWriter(opts.Archive, activity.DefaultArchiveQueue, logger)
		ledger.SetArchive(archive)
		alerts.SetArchive(archive)
	}

	state := device.NewState(catalogFor(sim), ledger, alerts)
	state.SetLogger(logger)

	wifi, err := network.NewManager(network.Options{
		HistorySize:       cfg.Network.HistorySize,
		AddProbability:    cfg.Network.AddProbability,
		RemoveProbability: cfg.Network.RemoveProbability,
		Source:            src,
		Verifier:          opts.Verifier,
		Ledger:            ledger,
	})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	wifi.SetLogger(logger)

	bridge, err := broker.NewBridge(broker.BridgeOptions{
		Config:   cfg.MQTT,
		Channels: cfg.Channels,
		Client:   opts.Client,
		State:    state,
		Ledger:   ledger,
		Metrics:  opts.Metrics,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &Session{
		cfg:       cfg,
		ledger:    ledger,
		alerts:    alerts,
		state:     state,
		network:   wifi,
		bridge:    bridge,
		sim:       sim,
		src:       src,
		archive:   archive,
		telemetry: opts.Telemetry,
		logger:    logger,
		now:       time.Now,
	}

	state.OnChange(s.handleChange)
	ledger.OnRecord(func(e activity.Entry) { s.emit(EventActivity, e) })
	alerts.OnRaise(s.handleAlert)
	bridge.OnMessage(func(m broker.InboundMessage) { s.emit(EventBrokerMessage, m) })
	bridge.OnStatus(func(st broker.Status) { s.emit(EventBrokerStatus, st) })

	return s, nil
}

// catalogFor returns the default catalog with readings taken from the
// simulator's signals.
func catalogFor(sim *sensor.Simulator) device.Catalog {
	catalog := device.DefaultCatalog()
	initial := sim.Initial()

	catalog.Readings = catalog.Readings[:0:0]
	for _, sig := range sim.Signals() {
		catalog.Readings = append(catalog.Readings, device.Reading{
			Name:  sig.Name,
			Value: initial[sig.Name],
			Low:   sig.Low,
			High:  sig.High,
			Unit:  readingUnits[sig.Name],
		})
	}
	return catalog
}

// handleChange mirrors operator changes to the broker and fans every
// change out to observers and telemetry. It runs outside the state lock.
func (s *Session) handleChange(c device.Change) {
	s.emit(EventStateChanged, StateChange{Channel: c.Channel, Origin: c.Origin, Payload: c.Payload})
	s.recordTelemetry(c)

	if c.Origin != device.OriginOperator || !s.bridge.IsConnected() {
		return
	}
	if _, ok := s.bridge.Channels().Topic(c.Channel); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := s.bridge.Publish(ctx, c.Channel, c.Payload); err != nil {
		s.logger.Warn("mirroring change to broker failed", "channel", c.Channel, "error", err)
	}
}

func (s *Session) recordTelemetry(c device.Change) {
	if s.telemetry == nil {
		return
	}
	at := s.now()

	switch c.Channel {
	case device.ChannelTemperature, device.ChannelHumidity:
		if v, ok := c.Payload["value"].(float64); ok {
			s.telemetry.WriteReading(c.Channel, readingUnits[c.Channel], v, string(c.Origin), at)
		}
	case device.ChannelEnergy:
		name, _ := c.Payload["name"].(string)
		if v, ok := c.Payload["value"].(float64); ok && name != "" {
			s.telemetry.WriteReading(name, readingUnits[name], v, string(c.Origin), at)
		}
	case device.ChannelDevices:
		id, _ := c.Payload["device"].(string)
		signal, _ := c.Payload["signal_strength"].(int)
		connected := c.Payload["connectivity"] == string(device.Connected)
		var battery *int
		if b, ok := c.Payload["battery_percent"].(int); ok {
			battery = &b
		}
		s.telemetry.WriteDeviceSignal(id, connected, signal, battery, at)
	}
}

func (s *Session) handleAlert(a activity.Alert) {
	s.emit(EventAlertRaised, a)
	if s.telemetry != nil {
		s.telemetry.WriteAlert(a.Key, a.Message, a.CreatedAt)
	}
}

// SetClock replaces the time source of the session and every component.
// Intended for tests.
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
	s.ledger.SetClock(now)
	s.alerts.SetClock(now)
	s.state.SetClock(now)
	s.network.SetClock(now)
	s.bridge.SetClock(now)
}

// Reset disconnects the broker and restores every component to its
// initial state. The ledger, alerts and inbound log end up empty.
func (s *Session) Reset() {
	if err := s.bridge.Disconnect(); err != nil {
		s.logger.Warn("broker disconnect during reset failed", "error", err)
	}
	s.state.Reset()
	s.network.Reset()
	s.alerts.Reset()
	s.ledger.Reset()
	s.bridge.InboundLog().Reset()
	s.logger.Info("session reset")
}

// Close disconnects the broker and waits for queued archive writes.
func (s *Session) Close() error {
	err := s.bridge.Disconnect()
	if s.archive != nil {
		s.archive.Close()
	}
	return err
}

// ArchiveDropped returns how many archive writes were discarded because
// the archive fell behind. It is zero without an archive.
func (s *Session) ArchiveDropped() uint64 {
	if s.archive == nil {
		return 0
	}
	return s.archive.Dropped()
}

// ============================================================================
// Read surface
// ============================================================================

// Snapshot is a read-only aggregate of the whole session.
type Snapshot struct {
	Devices  device.Snapshot         `json:"devices"`
	Activity []activity.Entry        `json:"activity"`
	Alerts   []activity.Alert        `json:"alerts"`
	Network  network.Snapshot        `json:"network"`
	Broker   broker.Status           `json:"broker"`
	Inbound  []broker.InboundMessage `json:"inbound"`
	Channels []broker.Channel        `json:"channels"`
}

// Snapshot returns copies of every component's read surface.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Devices:  s.state.Snapshot(),
		Activity: s.ledger.Entries(),
		Alerts:   s.alerts.Active(),
		Network:  s.network.Snapshot(),
		Broker:   s.bridge.Status(),
		Inbound:  s.bridge.InboundLog().Messages(),
		Channels: s.bridge.Channels().Channels(),
	}
}

// Devices returns the device state.
func (s *Session) Devices() device.Snapshot {
	return s.state.Snapshot()
}

// Activity returns the ledger, newest first.
func (s *Session) Activity() []activity.Entry {
	return s.ledger.Entries()
}

// Alerts returns the active alerts.
func (s *Session) Alerts() []activity.Alert {
	return s.alerts.Active()
}

// Network returns the WiFi networks, connection slot and history.
func (s *Session) Network() network.Snapshot {
	return s.network.Snapshot()
}

// BrokerStatus returns the bridge connection status.
func (s *Session) BrokerStatus() broker.Status {
	return s.bridge.Status()
}

// InboundMessages returns the recent inbound broker messages, newest first.
func (s *Session) InboundMessages() []broker.InboundMessage {
	return s.bridge.InboundLog().Messages()
}

// BrokerChannels returns the configured channel map.
func (s *Session) BrokerChannels() []broker.Channel {
	return s.bridge.Channels().Channels()
}
