package device

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/activity"
)

// Logger defines the logging interface used by State.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// State is the authoritative device state of one session.
//
// All public methods are thread-safe and serialise on a single mutex.
// The ledger and alert registry are referenced, not owned.
type State struct {
	mu sync.Mutex

	catalog    Catalog
	lights     map[string]bool
	thermostat int
	fan        FanLevel
	security   SecurityMode
	doors      map[string]DoorStatus
	cameras    map[string]bool
	irrigation map[string]IrrigationZone
	readings   map[string]Reading
	motion     bool
	devices    map[string]Device
	updatedAt  time.Time

	ledger   *activity.Ledger
	alerts   *activity.AlertRegistry
	now      func() time.Time
	onChange func(Change)
	logger   Logger
}

// NewState creates the device state from catalog.
func NewState(catalog Catalog, ledger *activity.Ledger, alerts *activity.AlertRegistry) *State {
	s := &State{
		catalog: catalog,
		ledger:  ledger,
		alerts:  alerts,
		now:     time.Now,
		logger:  noopLogger{},
	}
	s.load()
	return s
}

// SetLogger sets the logger for the state.
func (s *State) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetClock replaces the time source. Intended for tests.
func (s *State) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// OnChange registers a callback invoked after every applied mutation.
// The callback runs outside the state lock, in mutation order for a
// single caller.
func (s *State) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Reset restores the catalog the state was created with. It records
// nothing in the ledger.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
}

// load populates the maps from s.catalog. Caller holds mu or owns s.
func (s *State) load() {
	c := s.catalog

	s.lights = make(map[string]bool, len(c.Lights))
	for _, l := range c.Lights {
		s.lights[l.Room] = l.On
	}
	s.thermostat = c.Thermostat
	s.fan = c.Fan
	s.security = c.Security
	if s.security == "" {
		s.security = Disarmed
	}

	s.doors = make(map[string]DoorStatus, len(c.Doors))
	for _, d := range c.Doors {
		s.doors[d.ID] = d.Status
	}
	s.cameras = make(map[string]bool, len(c.Cameras))
	for _, cam := range c.Cameras {
		s.cameras[cam.ID] = cam.Enabled
	}
	s.irrigation = make(map[string]IrrigationZone, len(c.Irrigation))
	for _, z := range c.Irrigation {
		s.irrigation[z.ID] = z
	}
	s.readings = make(map[string]Reading, len(c.Readings))
	for _, r := range c.Readings {
		r.Value = clamp(r.Value, r.Low, r.High)
		s.readings[r.Name] = r
	}
	s.motion = c.Motion
	s.devices = make(map[string]Device, len(c.Devices))
	for _, d := range c.Devices {
		s.devices[d.ID] = d.DeepCopy()
	}
	s.updatedAt = s.now()
}

// apply runs fn under the mutation gate and then notifies the change
// listener outside the lock.
func (s *State) apply(fn func() (*Change, error)) error {
	return s.applyAll(func() ([]Change, error) {
		change, err := fn()
		if err != nil || change == nil {
			return nil, err
		}
		return []Change{*change}, nil
	})
}

// applyAll is apply for mutations that touch several entities at once.
// Changes are delivered in order after the lock is released.
func (s *State) applyAll(fn func() ([]Change, error)) error {
	s.mu.Lock()
	changes, err := fn()
	if err == nil {
		s.updatedAt = s.now()
	}
	onChange := s.onChange
	s.mu.Unlock()

	if err == nil && onChange != nil {
		for _, c := range changes {
			onChange(c)
		}
	}
	return err
}

// record writes a ledger line. Caller holds mu.
func (s *State) record(message string, category activity.Category, origin Origin) {
	if s.ledger == nil {
		return
	}
	if origin == OriginBroker {
		message += " (remote)"
	}
	s.ledger.Record(message, category)
}

// raise activates an alert. Caller holds mu.
func (s *State) raise(key, message string) bool {
	if s.alerts == nil {
		return false
	}
	return s.alerts.Raise(key, message)
}

// ============================================================================
// Lights
// ============================================================================

// ToggleLight flips the light in room and returns its new state.
func (s *State) ToggleLight(room string, origin Origin) (bool, error) {
	var on bool
	err := s.apply(func() (*Change, error) {
		current, ok := s.lights[room]
		if !ok {
			return nil, fmt.Errorf("%w: room %q", ErrUnknownEntity, room)
		}
		on = !current
		return s.setLightLocked(room, on, origin), nil
	})
	return on, err
}

// SetLight switches the light in room on or off.
func (s *State) SetLight(room string, on bool, origin Origin) error {
	return s.apply(func() (*Change, error) {
		if _, ok := s.lights[room]; !ok {
			return nil, fmt.Errorf("%w: room %q", ErrUnknownEntity, room)
		}
		return s.setLightLocked(room, on, origin), nil
	})
}

func (s *State) setLightLocked(room string, on bool, origin Origin) *Change {
	s.lights[room] = on
	s.record(fmt.Sprintf("%s light turned %s", displayName(room), onOff(on)), activity.CategoryLights, origin)
	return &Change{
		Channel: ChannelLights,
		Origin:  origin,
		Payload: map[string]any{"room": room, "status": on},
	}
}

// ============================================================================
// Climate
// ============================================================================

// SetThermostat changes the set-point. Values outside [16, 30] are
// rejected with ErrOutOfRange and leave the state unchanged. A set-point
// above 28 raises the thermostat-high alert.
func (s *State) SetThermostat(targetC int, origin Origin) error {
	return s.apply(func() (*Change, error) {
		if targetC < ThermostatMinC || targetC > ThermostatMaxC {
			return nil, fmt.Errorf("%w: thermostat %d not in [%d, %d]",
				ErrOutOfRange, targetC, ThermostatMinC, ThermostatMaxC)
		}

		old := s.thermostat
		s.thermostat = targetC
		s.record(fmt.Sprintf("thermostat: %d->%d", old, targetC), activity.CategoryClimate, origin)

		if targetC > ThermostatAlertAbove {
			msg := fmt.Sprintf("Thermostat set to %d°C, above %d°C", targetC, ThermostatAlertAbove)
			if s.raise(AlertThermostatHigh, msg) {
				s.record(msg, activity.CategoryAlert, origin)
			}
		}

		return &Change{
			Channel: ChannelThermostat,
			Origin:  origin,
			Payload: map[string]any{"value": targetC},
		}, nil
	})
}

// SetFanLevel changes the fan speed.
func (s *State) SetFanLevel(level FanLevel, origin Origin) error {
	return s.apply(func() (*Change, error) {
		if !level.Valid() {
			return nil, fmt.Errorf("%w: fan level %d", ErrInvalidValue, int(level))
		}
		s.fan = level
		s.record(fmt.Sprintf("Fan set to %s", level), activity.CategoryClimate, origin)
		return &Change{
			Channel: ChannelFan,
			Origin:  origin,
			Payload: map[string]any{"level": level.String()},
		}, nil
	})
}

// ============================================================================
// Security
// ============================================================================

// SetSecurityMode arms or disarms the alarm system.
func (s *State) SetSecurityMode(mode SecurityMode, origin Origin) error {
	return s.apply(func() (*Change, error) {
		parsed, err := ParseSecurityMode(string(mode))
		if err != nil {
			return nil, err
		}
		mode = parsed
		s.security = mode
		s.record(fmt.Sprintf("Security system set to %s", mode), activity.CategorySecurity, origin)
		return &Change{
			Channel: ChannelSecurity,
			Origin:  origin,
			Payload: map[string]any{"mode": string(mode)},
		}, nil
	})
}

// SetDoor opens or closes door id. Opening a door while the security
// system is armed raises the security-door-{id} alert and records an
// alert line in addition to the security line.
func (s *State) SetDoor(id string, status DoorStatus, origin Origin) error {
	return s.apply(func() (*Change, error) {
		if _, ok := s.doors[id]; !ok {
			return nil, fmt.Errorf("%w: door %q", ErrUnknownEntity, id)
		}
		parsed, err := ParseDoorStatus(string(status))
		if err != nil {
			return nil, err
		}
		status = parsed

		s.doors[id] = status
		verb := "closed"
		if status == DoorOpen {
			verb = "opened"
		}
		s.record(fmt.Sprintf("%s door %s", displayName(id), verb), activity.CategorySecurity, origin)

		if status == DoorOpen && s.security.Armed() {
			msg := fmt.Sprintf("%s door opened while security is %s", displayName(id), s.security)
			s.raise(DoorAlertKey(id), msg)
			s.record(msg, activity.CategoryAlert, origin)
		}

		return &Change{
			Channel: ChannelDoors,
			Origin:  origin,
			Payload: map[string]any{"door": id, "status": string(status)},
		}, nil
	})
}

// ToggleCamera flips camera id and returns its new state.
func (s *State) ToggleCamera(id string, origin Origin) (bool, error) {
	var enabled bool
	err := s.apply(func() (*Change, error) {
		current, ok := s.cameras[id]
		if !ok {
			return nil, fmt.Errorf("%w: camera %q", ErrUnknownEntity, id)
		}
		enabled = !current
		return s.setCameraLocked(id, enabled, origin), nil
	})
	return enabled, err
}

// SetCamera enables or disables camera id.
func (s *State) SetCamera(id string, enabled bool, origin Origin) error {
	return s.apply(func() (*Change, error) {
		if _, ok := s.cameras[id]; !ok {
			return nil, fmt.Errorf("%w: camera %q", ErrUnknownEntity, id)
		}
		return s.setCameraLocked(id, enabled, origin), nil
	})
}

func (s *State) setCameraLocked(id string, enabled bool, origin Origin) *Change {
	s.cameras[id] = enabled
	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	s.record(fmt.Sprintf("%s camera %s", displayName(id), verb), activity.CategoryCameras, origin)
	return &Change{
		Channel: ChannelCameras,
		Origin:  origin,
		Payload: map[string]any{"camera": id, "enabled": enabled},
	}
}

// ============================================================================
// Irrigation
// ============================================================================

// ToggleIrrigation starts or stops zone and returns whether it is active.
func (s *State) ToggleIrrigation(zone string, origin Origin) (bool, error) {
	var active bool
	err := s.apply(func() (*Change, error) {
		z, ok := s.irrigation[zone]
		if !ok {
			return nil, fmt.Errorf("%w: irrigation zone %q", ErrUnknownEntity, zone)
		}
		active = !z.Active
		return s.setIrrigationLocked(z, active, origin), nil
	})
	return active, err
}

// SetIrrigationActive starts or stops zone.
func (s *State) SetIrrigationActive(zone string, active bool, origin Origin) error {
	return s.apply(func() (*Change, error) {
		z, ok := s.irrigation[zone]
		if !ok {
			return nil, fmt.Errorf("%w: irrigation zone %q", ErrUnknownEntity, zone)
		}
		return s.setIrrigationLocked(z, active, origin), nil
	})
}

func (s *State) setIrrigationLocked(z IrrigationZone, active bool, origin Origin) *Change {
	z.Active = active
	s.irrigation[z.ID] = z
	verb := "stopped"
	if active {
		verb = "started"
	}
	s.record(fmt.Sprintf("%s irrigation %s", displayName(z.ID), verb), activity.CategoryIrrigation, origin)
	return irrigationChange(z, origin)
}

// SetIrrigationSchedule sets the daily start time and duration of zone.
// The duration must lie in [5, 60] minutes. The time accepts "06:00 AM"
// or 24-hour "18:30" and is stored in the 12-hour form.
func (s *State) SetIrrigationSchedule(zone, scheduleTime string, durationMinutes int, origin Origin) error {
	normalized, err := NormalizeScheduleTime(scheduleTime)
	if err != nil {
		return err
	}
	return s.apply(func() (*Change, error) {
		z, ok := s.irrigation[zone]
		if !ok {
			return nil, fmt.Errorf("%w: irrigation zone %q", ErrUnknownEntity, zone)
		}
		if durationMinutes < IrrigationMinMinutes || durationMinutes > IrrigationMaxMinutes {
			return nil, fmt.Errorf("%w: irrigation duration %d not in [%d, %d]",
				ErrOutOfRange, durationMinutes, IrrigationMinMinutes, IrrigationMaxMinutes)
		}

		z.ScheduleTime = normalized
		z.DurationMinutes = durationMinutes
		s.irrigation[zone] = z
		s.record(fmt.Sprintf("%s irrigation scheduled for %s (%d min)", displayName(zone), normalized, durationMinutes),
			activity.CategoryIrrigation, origin)
		return irrigationChange(z, origin), nil
	})
}

func irrigationChange(z IrrigationZone, origin Origin) *Change {
	return &Change{
		Channel: ChannelIrrigation,
		Origin:  origin,
		Payload: map[string]any{
			"zone":          z.ID,
			"active":        z.Active,
			"schedule_time": z.ScheduleTime,
			"duration":      z.DurationMinutes,
		},
	}
}

// NormalizeScheduleTime parses "06:00 AM" or "18:30" and returns the
// 12-hour form.
func NormalizeScheduleTime(v string) (string, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	for _, layout := range []string{"03:04 PM", "3:04 PM", "15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("03:04 PM"), nil
		}
	}
	return "", fmt.Errorf("%w: schedule time %q", ErrInvalidValue, v)
}

// ============================================================================
// Sensors
// ============================================================================

// SetReading updates reading name, clamping the value to the reading's
// bounds, and returns the stored value. A temperature above 26 raises the
// temp-high alert; the alert is not raised again while it is active.
// Simulation-driven updates are not written to the ledger.
func (s *State) SetReading(name string, value float64, origin Origin) (float64, error) {
	var stored float64
	err := s.apply(func() (*Change, error) {
		change, err := s.setReadingLocked(name, value, origin)
		if err != nil {
			return nil, err
		}
		stored = s.readings[name].Value
		return change, nil
	})
	return stored, err
}

// AdvanceReadings moves every reading one step in a single mutation. next
// receives the current values and returns the values to store; names it
// omits keep their value. next runs under the state lock, so it sees the
// values it replaces. Values that cannot be stored are logged and skipped.
func (s *State) AdvanceReadings(next func(current map[string]float64) map[string]float64, origin Origin) {
	_ = s.applyAll(func() ([]Change, error) {
		current := make(map[string]float64, len(s.readings))
		for name, r := range s.readings {
			current[name] = r.Value
		}
		values := next(current)

		changes := make([]Change, 0, len(values))
		for _, name := range sortedKeys(values) {
			change, err := s.setReadingLocked(name, values[name], origin)
			if err != nil {
				s.logger.Warn("reading not advanced", "reading", name, "error", err)
				continue
			}
			changes = append(changes, *change)
		}
		return changes, nil
	})
}

// setReadingLocked stores a clamped reading and raises the temperature
// alert. Caller holds mu.
func (s *State) setReadingLocked(name string, value float64, origin Origin) (*Change, error) {
	r, ok := s.readings[name]
	if !ok {
		return nil, fmt.Errorf("%w: reading %q", ErrUnknownEntity, name)
	}
	if math.IsNaN(value) {
		return nil, fmt.Errorf("%w: reading %q is NaN", ErrInvalidValue, name)
	}

	r.Value = clamp(value, r.Low, r.High)
	s.readings[name] = r

	if origin != OriginSimulation {
		s.record(fmt.Sprintf("%s reading %s", displayName(name), formatReading(r)), activity.CategorySensors, origin)
	}

	if name == ReadingTemperature && r.Value > TemperatureAlertAbove {
		msg := fmt.Sprintf("Temperature %s above %.0f°C", formatReading(r), TemperatureAlertAbove)
		if s.raise(AlertTempHigh, msg) {
			s.record(msg, activity.CategoryAlert, origin)
		}
	}

	return readingChange(r, origin), nil
}

// SetTemperatureReading updates the indoor temperature.
func (s *State) SetTemperatureReading(value float64, origin Origin) (float64, error) {
	return s.SetReading(ReadingTemperature, value, origin)
}

// SetHumidityReading updates the indoor relative humidity.
func (s *State) SetHumidityReading(value float64, origin Origin) (float64, error) {
	return s.SetReading(ReadingHumidity, value, origin)
}

func readingChange(r Reading, origin Origin) *Change {
	switch r.Name {
	case ReadingTemperature:
		return &Change{Channel: ChannelTemperature, Origin: origin, Payload: map[string]any{"value": r.Value}}
	case ReadingHumidity:
		return &Change{Channel: ChannelHumidity, Origin: origin, Payload: map[string]any{"value": r.Value}}
	default:
		return &Change{Channel: ChannelEnergy, Origin: origin, Payload: map[string]any{"name": r.Name, "value": r.Value}}
	}
}

// SetMotion records whether the motion sensor currently detects movement.
func (s *State) SetMotion(detected bool, origin Origin) error {
	return s.apply(func() (*Change, error) {
		s.motion = detected
		msg := "Motion cleared"
		if detected {
			msg = "Motion detected"
		}
		s.record(msg, activity.CategorySensors, origin)
		return &Change{
			Channel: ChannelMotion,
			Origin:  origin,
			Payload: map[string]any{"value": detected},
		}, nil
	})
}

// ============================================================================
// Catalog devices
// ============================================================================

// UpdateDeviceTelemetry applies a partial telemetry update to device id.
// Signal strength and battery must lie in [0, 100]. Simulation-driven
// updates are not written to the ledger.
func (s *State) UpdateDeviceTelemetry(id string, t Telemetry, origin Origin) error {
	return s.apply(func() (*Change, error) {
		return s.updateTelemetryLocked(id, t, origin)
	})
}

// AdjustSignals recomputes the signal strength of every connected device in
// a single mutation, in device ID order. next receives the current signal
// and returns the new one; an unchanged value produces no change. Values
// outside [0, 100] are logged and skipped.
func (s *State) AdjustSignals(next func(id string, signal int) int, origin Origin) {
	_ = s.applyAll(func() ([]Change, error) {
		var changes []Change
		for _, id := range sortedKeys(s.devices) {
			d := s.devices[id]
			if d.Connectivity != Connected {
				continue
			}
			signal := next(id, d.SignalStrength)
			if signal == d.SignalStrength {
				continue
			}
			change, err := s.updateTelemetryLocked(id, Telemetry{SignalStrength: &signal}, origin)
			if err != nil {
				s.logger.Warn("signal not adjusted", "device", id, "error", err)
				continue
			}
			changes = append(changes, *change)
		}
		return changes, nil
	})
}

// updateTelemetryLocked validates and applies a partial telemetry update.
// Caller holds mu.
func (s *State) updateTelemetryLocked(id string, t Telemetry, origin Origin) (*Change, error) {
	d, ok := s.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: device %q", ErrUnknownEntity, id)
	}
	if t.SignalStrength != nil && !percent(*t.SignalStrength) {
		return nil, fmt.Errorf("%w: signal strength %d", ErrOutOfRange, *t.SignalStrength)
	}
	if t.BatteryPercent != nil && !percent(*t.BatteryPercent) {
		return nil, fmt.Errorf("%w: battery %d", ErrOutOfRange, *t.BatteryPercent)
	}
	if t.Connectivity != nil && *t.Connectivity != Connected && *t.Connectivity != Disconnected {
		return nil, fmt.Errorf("%w: connectivity %q", ErrInvalidValue, *t.Connectivity)
	}

	wasConnectivity := d.Connectivity
	if t.Connectivity != nil {
		d.Connectivity = *t.Connectivity
	}
	if t.SignalStrength != nil {
		d.SignalStrength = *t.SignalStrength
	}
	if t.BatteryPercent != nil {
		b := *t.BatteryPercent
		d.BatteryPercent = &b
	}
	if t.LastActiveLabel != nil {
		d.LastActiveLabel = *t.LastActiveLabel
	}
	s.devices[id] = d

	if origin != OriginSimulation {
		msg := fmt.Sprintf("%s telemetry updated", d.Name)
		if d.Connectivity != wasConnectivity {
			msg = fmt.Sprintf("%s %s", d.Name, d.Connectivity)
		}
		s.record(msg, activity.CategorySystem, origin)
	}

	payload := map[string]any{
		"device":          id,
		"connectivity":    string(d.Connectivity),
		"signal_strength": d.SignalStrength,
	}
	if d.BatteryPercent != nil {
		payload["battery_percent"] = *d.BatteryPercent
	}
	return &Change{Channel: ChannelDevices, Origin: origin, Payload: payload}, nil
}

// ============================================================================
// Read surface
// ============================================================================

// Snapshot returns a consistent copy of the whole state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Thermostat: Thermostat{TargetC: s.thermostat, MinC: ThermostatMinC, MaxC: ThermostatMaxC},
		Fan:        s.fan,
		Security:   s.security,
		Motion:     s.motion,
		Readings:   make(map[string]Reading, len(s.readings)),
		UpdatedAt:  s.updatedAt,
	}

	for _, room := range sortedKeys(s.lights) {
		snap.Lights = append(snap.Lights, Light{Room: room, On: s.lights[room]})
	}
	for _, id := range sortedKeys(s.doors) {
		snap.Doors = append(snap.Doors, Door{ID: id, Status: s.doors[id]})
	}
	for _, id := range sortedKeys(s.cameras) {
		snap.Cameras = append(snap.Cameras, Camera{ID: id, Enabled: s.cameras[id]})
	}
	for _, id := range sortedKeys(s.irrigation) {
		snap.Irrigation = append(snap.Irrigation, s.irrigation[id])
	}
	for _, id := range sortedKeys(s.devices) {
		snap.Devices = append(snap.Devices, s.devices[id].DeepCopy())
	}
	for name, r := range s.readings {
		snap.Readings[name] = r
	}
	return snap
}

// Device returns a copy of catalog device id.
func (s *State) Device(id string) (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok {
		return Device{}, false
	}
	return d.DeepCopy(), true
}

// ============================================================================
// Helpers
// ============================================================================

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func percent(v int) bool {
	return v >= 0 && v <= 100
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// displayName turns an ID such as "front_lawn" into "Front lawn".
func displayName(id string) string {
	s := strings.ReplaceAll(id, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatReading(r Reading) string {
	return fmt.Sprintf("%g%s", r.Value, r.Unit)
}
