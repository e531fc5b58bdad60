package device

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Connectivity is the link status of a catalog device.
type Connectivity string

// Connectivity values.
const (
	Connected    Connectivity = "connected"
	Disconnected Connectivity = "disconnected"
)

// FanLevel is the speed of the ceiling fan.
type FanLevel int

// Fan levels.
const (
	FanOff FanLevel = iota
	FanLow
	FanMedium
	FanHigh
)

var fanLevelNames = [...]string{"off", "low", "medium", "high"}

// String returns the lower-case name of the level.
func (l FanLevel) String() string {
	if l < FanOff || l > FanHigh {
		return "unknown"
	}
	return fanLevelNames[l]
}

// Valid reports whether l is one of the defined levels.
func (l FanLevel) Valid() bool {
	return l >= FanOff && l <= FanHigh
}

// MarshalText encodes the level by name.
func (l FanLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: fan level %d", ErrInvalidValue, int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name or number.
func (l *FanLevel) UnmarshalText(b []byte) error {
	parsed, err := ParseFanLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseFanLevel accepts a level name ("off", "low", "medium", "high") or
// its number (0-3).
func ParseFanLevel(s string) (FanLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range fanLevelNames {
		if s == name {
			return FanLevel(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && FanLevel(n).Valid() {
		return FanLevel(n), nil
	}
	return FanOff, fmt.Errorf("%w: fan level %q", ErrInvalidValue, s)
}

// SecurityMode is the state of the alarm system.
type SecurityMode string

// Security modes.
const (
	Disarmed  SecurityMode = "disarmed"
	ArmedHome SecurityMode = "armed_home"
	ArmedAway SecurityMode = "armed_away"
)

// ParseSecurityMode validates a security mode name.
func ParseSecurityMode(s string) (SecurityMode, error) {
	switch m := SecurityMode(strings.ToLower(strings.TrimSpace(s))); m {
	case Disarmed, ArmedHome, ArmedAway:
		return m, nil
	default:
		return Disarmed, fmt.Errorf("%w: security mode %q", ErrInvalidValue, s)
	}
}

// Armed reports whether the mode is anything other than Disarmed.
func (m SecurityMode) Armed() bool {
	return m != Disarmed
}

// DoorStatus is whether a door is open.
type DoorStatus string

// Door statuses.
const (
	DoorOpen   DoorStatus = "open"
	DoorClosed DoorStatus = "closed"
)

// ParseDoorStatus validates a door status.
func ParseDoorStatus(s string) (DoorStatus, error) {
	switch st := DoorStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case DoorOpen, DoorClosed:
		return st, nil
	default:
		return DoorClosed, fmt.Errorf("%w: door status %q", ErrInvalidValue, s)
	}
}

// Origin identifies which change source drove a mutation.
type Origin string

// Mutation origins.
const (
	OriginOperator   Origin = "operator"
	OriginBroker     Origin = "broker"
	OriginSimulation Origin = "simulation"
)

// Reading is a bounded numeric sensor value.
type Reading struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Unit  string  `json:"unit,omitempty"`
}

// Device is a catalog entry for a physical device.
type Device struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Connectivity    Connectivity `json:"connectivity"`
	SignalStrength  int          `json:"signal_strength"`
	BatteryPercent  *int         `json:"battery_percent,omitempty"`
	LastActiveLabel string       `json:"last_active"`
	Capabilities    []string     `json:"capabilities"`
}

// DeepCopy returns an independent copy of the device.
func (d Device) DeepCopy() Device {
	cpy := d
	if d.BatteryPercent != nil {
		b := *d.BatteryPercent
		cpy.BatteryPercent = &b
	}
	if d.Capabilities != nil {
		cpy.Capabilities = make([]string, len(d.Capabilities))
		copy(cpy.Capabilities, d.Capabilities)
	}
	return cpy
}

// HasCapability reports whether the device declares capability c.
func (d Device) HasCapability(c string) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Telemetry is a partial update to a catalog device. Nil fields are left
// unchanged.
type Telemetry struct {
	Connectivity    *Connectivity `json:"connectivity,omitempty"`
	SignalStrength  *int          `json:"signal_strength,omitempty"`
	BatteryPercent  *int          `json:"battery_percent,omitempty"`
	LastActiveLabel *string       `json:"last_active,omitempty"`
}

// Light is the on/off state of one room's lighting.
type Light struct {
	Room string `json:"room"`
	On   bool   `json:"on"`
}

// Thermostat holds the heating set-point.
type Thermostat struct {
	TargetC int `json:"target_c"`
	MinC    int `json:"min_c"`
	MaxC    int `json:"max_c"`
}

// Door is one monitored door.
type Door struct {
	ID     string     `json:"id"`
	Status DoorStatus `json:"status"`
}

// Camera is one security camera.
type Camera struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// IrrigationZone is one watering zone and its daily schedule.
type IrrigationZone struct {
	ID              string `json:"id"`
	Active          bool   `json:"active"`
	ScheduleTime    string `json:"schedule_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Snapshot is a consistent, independent copy of the whole device state.
// Slices are sorted by ID.
type Snapshot struct {
	Lights     []Light            `json:"lights"`
	Thermostat Thermostat         `json:"thermostat"`
	Fan        FanLevel           `json:"fan"`
	Security   SecurityMode       `json:"security"`
	Doors      []Door             `json:"doors"`
	Cameras    []Camera           `json:"cameras"`
	Irrigation []IrrigationZone   `json:"irrigation"`
	Readings   map[string]Reading `json:"readings"`
	Motion     bool               `json:"motion"`
	Devices    []Device           `json:"devices"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Light returns the named room's light from the snapshot.
func (s Snapshot) Light(room string) (Light, bool) {
	for _, l := range s.Lights {
		if l.Room == room {
			return l, true
		}
	}
	return Light{}, false
}

// Door returns the named door from the snapshot.
func (s Snapshot) Door(id string) (Door, bool) {
	for _, d := range s.Doors {
		if d.ID == id {
			return d, true
		}
	}
	return Door{}, false
}

// Change describes one applied mutation.
type Change struct {
	// Channel is the logical broker channel the change belongs to.
	Channel string

	// Origin is the change source that drove the mutation.
	Origin Origin

	// Payload is the wire record for Channel describing the new state.
	Payload map[string]any
}

// Logical channel names shared with the broker bridge.
const (
	ChannelTemperature = "temperature"
	ChannelHumidity    = "humidity"
	ChannelMotion      = "motion"
	ChannelLights      = "lights"
	ChannelThermostat  = "thermostat"
	ChannelFan         = "fan"
	ChannelSecurity    = "security"
	ChannelDoors       = "doors"
	ChannelCameras     = "cameras"
	ChannelIrrigation  = "irrigation"
	ChannelEnergy      = "energy"
	ChannelDevices     = "devices"
)
