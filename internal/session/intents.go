package session

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-home/internal/activity"
	"github.com/nerrad567/gray-logic-home/internal/bridges/broker"
	"github.com/nerrad567/gray-logic-home/internal/device"
	"github.com/nerrad567/gray-logic-home/internal/network"
)

// Result is the user-facing outcome of a successful intent.
type Result struct {
	Message string `json:"message"`
}

func resultf(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// rejected logs a failed intent and returns err unchanged.
func (s *Session) rejected(intent string, err error) (Result, error) {
	s.logger.Warn("intent rejected", "intent", intent, "error", err)
	return Result{}, err
}

// ============================================================================
// Devices
// ============================================================================

// ToggleLight flips the light in room.
func (s *Session) ToggleLight(room string) (Result, error) {
	on, err := s.state.ToggleLight(room, device.OriginOperator)
	if err != nil {
		return s.rejected("toggle_light", err)
	}
	return resultf("Light in %s turned %s", room, onOff(on)), nil
}

// SetThermostat changes the set-point. Values outside [16, 30] fail with
// device.ErrOutOfRange.
func (s *Session) SetThermostat(targetC int) (Result, error) {
	if err := s.state.SetThermostat(targetC, device.OriginOperator); err != nil {
		return s.rejected("set_thermostat", err)
	}
	return resultf("Thermostat set to %d°C", targetC), nil
}

// SetFanLevel changes the fan speed. level is a name or number.
func (s *Session) SetFanLevel(level string) (Result, error) {
	parsed, err := device.ParseFanLevel(level)
	if err != nil {
		return s.rejected("set_fan_level", err)
	}
	if err := s.state.SetFanLevel(parsed, device.OriginOperator); err != nil {
		return s.rejected("set_fan_level", err)
	}
	return resultf("Fan set to %s", parsed), nil
}

// ToggleCamera enables or disables camera id.
func (s *Session) ToggleCamera(id string) (Result, error) {
	enabled, err := s.state.ToggleCamera(id, device.OriginOperator)
	if err != nil {
		return s.rejected("toggle_camera", err)
	}
	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	return resultf("Camera %s %s", id, verb), nil
}

// SetDoor opens or closes door id.
func (s *Session) SetDoor(id, status string) (Result, error) {
	parsed, err := device.ParseDoorStatus(status)
	if err != nil {
		return s.rejected("set_door", err)
	}
	if err := s.state.SetDoor(id, parsed, device.OriginOperator); err != nil {
		return s.rejected("set_door", err)
	}
	return resultf("Door %s is now %s", id, parsed), nil
}

// SetSecurityMode arms or disarms the alarm.
func (s *Session) SetSecurityMode(mode string) (Result, error) {
	parsed, err := device.ParseSecurityMode(mode)
	if err != nil {
		return s.rejected("set_security_mode", err)
	}
	if err := s.state.SetSecurityMode(parsed, device.OriginOperator); err != nil {
		return s.rejected("set_security_mode", err)
	}
	return resultf("Security system set to %s", parsed), nil
}

// ToggleIrrigation starts or stops zone.
func (s *Session) ToggleIrrigation(zone string) (Result, error) {
	active, err := s.state.ToggleIrrigation(zone, device.OriginOperator)
	if err != nil {
		return s.rejected("toggle_irrigation", err)
	}
	verb := "stopped"
	if active {
		verb = "started"
	}
	return resultf("Irrigation %s %s", zone, verb), nil
}

// SetIrrigationSchedule sets the start time and duration of zone.
func (s *Session) SetIrrigationSchedule(zone, scheduleTime string, durationMinutes int) (Result, error) {
	if err := s.state.SetIrrigationSchedule(zone, scheduleTime, durationMinutes, device.OriginOperator); err != nil {
		return s.rejected("set_irrigation_schedule", err)
	}
	return resultf("Irrigation %s scheduled at %s for %d minutes", zone, scheduleTime, durationMinutes), nil
}

// ClearAlerts removes every active alert. The registry records one
// system line in the ledger.
func (s *Session) ClearAlerts() (Result, error) {
	n := s.alerts.ClearAll()
	s.emit(EventAlertsCleared, map[string]int{"cleared": n})
	return resultf("Cleared %d alerts", n), nil
}

// ============================================================================
// WiFi
// ============================================================================

// Scan refreshes the visible networks.
func (s *Session) Scan() (Result, error) {
	if err := s.network.Scan(); err != nil {
		return s.rejected("scan", err)
	}
	s.emitNetwork()
	return resultf("Found %d networks", len(s.network.Networks())), nil
}

// RequestConnect starts joining ssid. Secured networks answer with a
// prompt for credentials and leave the connection unchanged.
func (s *Session) RequestConnect(ssid string) (Result, error) {
	outcome, err := s.network.RequestConnect(ssid)
	if err != nil {
		return s.rejected("request_connect", err)
	}
	s.emitNetwork()
	if outcome == network.OutcomeAwaitingCredentials {
		return resultf("Enter the password for %s", ssid), nil
	}
	return resultf("Connected to %s", ssid), nil
}

// SubmitCredentials completes a pending connect request.
func (s *Session) SubmitCredentials(ssid, secret string) (Result, error) {
	err := s.network.SubmitCredentials(ssid, secret)
	s.emitNetwork()
	if err != nil {
		return s.rejected("submit_credentials", err)
	}
	return resultf("Connected to %s (%s)", ssid, s.network.State().AssignedIP), nil
}

// Disconnect leaves the current WiFi network.
func (s *Session) Disconnect() (Result, error) {
	ssid := s.network.State().ConnectedSSID
	if !s.network.Disconnect() {
		return Result{Message: "Not connected"}, nil
	}
	s.emitNetwork()
	return resultf("Disconnected from %s", ssid), nil
}

// SetWifiEnabled switches WiFi on or off.
func (s *Session) SetWifiEnabled(enabled bool) (Result, error) {
	s.network.SetEnabled(enabled)
	s.emitNetwork()
	if enabled {
		return Result{Message: "WiFi enabled"}, nil
	}
	return Result{Message: "WiFi disabled"}, nil
}

func (s *Session) emitNetwork() {
	s.emit(EventNetworkChanged, s.network.Snapshot())
}

// ============================================================================
// Broker
// ============================================================================

// ConnectBroker connects the bridge to host:port, replacing any live
// connection. A failure leaves the bridge disconnected and records an
// alert line.
func (s *Session) ConnectBroker(ctx context.Context, host string, port int, creds broker.Credentials) (Result, error) {
	if err := s.bridge.Connect(ctx, host, port, creds); err != nil {
		return s.rejected("connect_broker", err)
	}
	return resultf("Connected to broker at %s", s.bridge.Status().Endpoint), nil
}

// ConnectConfiguredBroker connects to the broker named in the
// configuration.
func (s *Session) ConnectConfiguredBroker(ctx context.Context) (Result, error) {
	mq := s.cfg.MQTT
	return s.ConnectBroker(ctx, mq.Broker.Host, mq.Broker.Port, broker.Credentials{
		Username: mq.Auth.Username,
		Password: mq.Auth.Password,
	})
}

// DisconnectBroker closes the bridge connection.
func (s *Session) DisconnectBroker() (Result, error) {
	if s.bridge.Status().State == broker.StateDisconnected {
		return Result{Message: "Broker not connected"}, nil
	}
	if err := s.bridge.Disconnect(); err != nil {
		return s.rejected("disconnect_broker", err)
	}
	return Result{Message: "Disconnected from broker"}, nil
}

// Publish sends payload on channel. It fails with broker.ErrNotConnected
// when the bridge has no live connection; device state is never touched.
func (s *Session) Publish(ctx context.Context, channel string, payload any) (Result, error) {
	if err := s.bridge.Publish(ctx, channel, payload); err != nil {
		return s.rejected("publish", err)
	}
	s.ledger.Record(fmt.Sprintf("Published message to %s", channel), activity.CategoryBroker)
	return resultf("Published to %s", channel), nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
