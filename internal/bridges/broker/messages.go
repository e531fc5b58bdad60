package broker

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-home/internal/device"
)

// DeviceState is the mutation surface inbound messages are applied to.
// It is satisfied by *device.State, which serializes every call.
type DeviceState interface {
	SetReading(name string, value float64, origin device.Origin) (float64, error)
	SetMotion(detected bool, origin device.Origin) error
	SetLight(room string, on bool, origin device.Origin) error
	SetThermostat(targetC int, origin device.Origin) error
	SetFanLevel(level device.FanLevel, origin device.Origin) error
	SetSecurityMode(mode device.SecurityMode, origin device.Origin) error
	SetDoor(id string, status device.DoorStatus, origin device.Origin) error
	SetCamera(id string, enabled bool, origin device.Origin) error
	SetIrrigationActive(zone string, active bool, origin device.Origin) error
	UpdateDeviceTelemetry(id string, t device.Telemetry, origin device.Origin) error
}

// Wire payloads, one per channel.
// Pointer fields distinguish "absent" from the zero value.

// ValueMessage is the payload of the temperature, humidity, thermostat and
// motion channels: {"value": 21.5} or {"value": true}.
type ValueMessage struct {
	Value json.RawMessage `json:"value"`
}

// LightMessage is the payload of the lights channel.
type LightMessage struct {
	Room   string `json:"room"`
	Status *bool  `json:"status"`
}

// FanMessage is the payload of the fan channel. Level is a name or number.
type FanMessage struct {
	Level json.RawMessage `json:"level"`
}

// SecurityMessage is the payload of the security channel.
type SecurityMessage struct {
	Mode string `json:"mode"`
}

// DoorMessage is the payload of the doors channel.
type DoorMessage struct {
	Door   string `json:"door"`
	Status string `json:"status"`
}

// CameraMessage is the payload of the cameras channel.
type CameraMessage struct {
	Camera  string `json:"camera"`
	Enabled *bool  `json:"enabled"`
}

// IrrigationMessage is the payload of the irrigation channel.
type IrrigationMessage struct {
	Zone   string `json:"zone"`
	Active *bool  `json:"active"`
}

// TelemetryMessage is the payload of the devices channel.
type TelemetryMessage struct {
	Device string `json:"device"`
	device.Telemetry
}

// EnergyMessage is the payload of the energy channel.
type EnergyMessage struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

// applyFunc applies a decoded message to the device state.
type applyFunc func(DeviceState) error

// decodeMessage decodes payload for channel. Errors wrap ErrDecode.
func decodeMessage(channel string, payload []byte) (applyFunc, error) {
	origin := device.OriginBroker

	switch channel {
	case device.ChannelTemperature, device.ChannelHumidity:
		v, err := decodeNumber(payload)
		if err != nil {
			return nil, err
		}
		return func(s DeviceState) error {
			_, err := s.SetReading(channel, v, origin)
			return err
		}, nil

	case device.ChannelThermostat:
		v, err := decodeNumber(payload)
		if err != nil {
			return nil, err
		}
		return func(s DeviceState) error {
			return s.SetThermostat(int(math.Round(v)), origin)
		}, nil

	case device.ChannelMotion:
		var msg ValueMessage
		if err := unmarshal(payload, &msg); err != nil {
			return nil, err
		}
		var detected bool
		if absent(msg.Value) || json.Unmarshal(msg.Value, &detected) != nil {
			return nil, fmt.Errorf("%w: value must be a boolean", ErrDecode)
		}
		return func(s DeviceState) error { return s.SetMotion(detected, origin) }, nil

	case device.ChannelLights:
		var msg LightMessage
		if err := unmarshal(payload, &msg); err != nil {
			return nil, err
		}
		if msg.Room == "" || msg.Status == nil {
			return nil, fmt.Errorf("%w: room and status are required", ErrDecode)
		}
		return func(s DeviceState) error { return s.SetLight(msg.Room, *msg.Status, origin) }, nil

	case device.ChannelFan:
		var msg FanMessage
		if err := unmarshal(payload, &msg); err != nil {
			return nil, err
		}
		level, err := decodeFanLevel(msg.Level)
		if err != nil {
			return nil, err
		}
		return func(s DeviceState) error { return s.SetFanLevel(level, origin) }, nil

	case device.ChannelSecurity:
		var msg SecurityMessage
		if err := unmarshal(payload, &msg); err != nil {
			return nil, err
		}
		mode, err := device.ParseSecurityMode(msg.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return func(s DeviceState) error { return s.SetSecurityMode(mode, origin) }, nil

	case device.ChannelDoors:
		var msg DoorMessage
		if err := unmarshal(payload, &msg); err != nil {
			return nil, err
		}
		if msg.Door == "" {
			return nil, fmt.Errorf("%w: door is required", ErrDecode)
		}
		status, err := device.ParseDoorStatus(msg.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return func(s DeviceState) error { return s.SetDoor(msg.Door, status, origin) }, nil

	case device.ChannelCameras:
		var msg CameraMessage
		if err := unmarshal(payload, &msg); err != nil {
			return nil, err
		}
		if msg.Camera == "" || msg.Enabled == nil {
			return nil, fmt.Errorf("%w: camera and enabled are required", ErrDecode)
		}
		return func(s DeviceState) error { return s.SetCamera(msg.Camera, *msg.Enabled, origin) }, nil

	case device.ChannelIrrigation:
		var msg IrrigationMessage
		if err := unmarshal(payload, &msg); err != nil {
			return nil, err
		}
		if msg.Zone == "" || msg.Active == nil {
			return nil, fmt.Errorf("%w: zone and active are required", ErrDecode)
		}
		return func(s DeviceState) error { return s.SetIrrigationActive(msg.Zone, *msg.Active, origin) }, nil

	case device.ChannelEnergy:
		var msg EnergyMessage
		if err := unmarshal(payload, &msg); err != nil {
			return nil, err
		}
		if msg.Name == "" || msg.Value == nil {
			return nil, fmt.Errorf("%w: name and value are required", ErrDecode)
		}
		if !device.IsEnergyReading(msg.Name) {
			return nil, fmt.Errorf("%w: %q is not an energy reading", ErrDecode, msg.Name)
		}
		return func(s DeviceState) error {
			_, err := s.SetReading(msg.Name, *msg.Value, origin)
			return err
		}, nil

	case device.ChannelDevices:
		var msg TelemetryMessage
		if err := unmarshal(payload, &msg); err != nil {
			return nil, err
		}
		if msg.Device == "" {
			return nil, fmt.Errorf("%w: device is required", ErrDecode)
		}
		return func(s DeviceState) error { return s.UpdateDeviceTelemetry(msg.Device, msg.Telemetry, origin) }, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
}

func unmarshal(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// absent reports whether a raw field was missing or null.
func absent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// decodeNumber reads {"value": <number>}.
func decodeNumber(payload []byte) (float64, error) {
	var msg ValueMessage
	if err := unmarshal(payload, &msg); err != nil {
		return 0, err
	}
	var v float64
	if absent(msg.Value) || json.Unmarshal(msg.Value, &v) != nil {
		return 0, fmt.Errorf("%w: value must be a number", ErrDecode)
	}
	return v, nil
}

// decodeFanLevel accepts "medium", "2" or 2.
func decodeFanLevel(raw json.RawMessage) (device.FanLevel, error) {
	if absent(raw) {
		return device.FanOff, fmt.Errorf("%w: level is required", ErrDecode)
	}

	text := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	level, err := device.ParseFanLevel(text)
	if err != nil {
		return device.FanOff, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return level, nil
}

// encodePayload serializes an outbound payload. Byte slices and raw JSON
// are sent as-is. A string holding a JSON document is sent as-is; any
// other string is encoded as a JSON string so the wire always carries JSON.
func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	case string:
		if json.Valid([]byte(p)) {
			return []byte(p), nil
		}
		return json.Marshal(p)
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		return data, nil
	}
}
