package network

import (
	"strings"
	"time"
)

// Security is the authentication scheme a network advertises.
type Security string

// Security schemes.
const (
	SecurityOpen Security = "Open"
	SecurityWEP  Security = "WEP"
	SecurityWPA  Security = "WPA"
	SecurityWPA2 Security = "WPA2"
)

// RequiresCredentials reports whether joining needs a secret.
func (s Security) RequiresCredentials() bool {
	return !strings.EqualFold(string(s), string(SecurityOpen))
}

// Network is one visible WiFi network.
type Network struct {
	SSID           string   `json:"ssid"`
	SignalStrength int      `json:"signal_strength"`
	Security       Security `json:"security"`
	Connected      bool     `json:"connected"`
}

// ConnectionState is the single global connection slot.
type ConnectionState struct {
	Enabled         bool   `json:"enabled"`
	ConnectedSSID   string `json:"connected_ssid,omitempty"`
	AssignedIP      string `json:"assigned_ip,omitempty"`
	PendingAuthSSID string `json:"pending_auth_ssid,omitempty"`
}

// HistoryEntry is one line of the connection history.
type HistoryEntry struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Outcome is the result of a connect request.
type Outcome string

// Connect request outcomes.
const (
	OutcomeConnected           Outcome = "connected"
	OutcomeAwaitingCredentials Outcome = "awaiting_credentials"
)

// Snapshot is a consistent copy of the manager's state.
type Snapshot struct {
	State    ConnectionState `json:"state"`
	Networks []Network       `json:"networks"`
	History  []HistoryEntry  `json:"history"`
}

// CredentialVerifier decides whether secret unlocks ssid. Returning a
// non-nil error rejects the join.
type CredentialVerifier func(ssid, secret string) error

// AcceptAnySecret is the default verifier. It accepts every secret.
func AcceptAnySecret(string, string) error {
	return nil
}

// DefaultNetworks returns the networks visible when the home is set up.
// Home_Network starts connected.
func DefaultNetworks() []Network {
	return []Network{
		{SSID: "Home_Network", SignalStrength: 90, Security: SecurityWPA2, Connected: true},
		{SSID: "Neighbor_5G", SignalStrength: 65, Security: SecurityWPA2},
		{SSID: "GuestNetwork", SignalStrength: 45, Security: SecurityWPA},
		{SSID: "IoT_Network", SignalStrength: 80, Security: SecurityWPA2},
		{SSID: "CoffeeShop_Free", SignalStrength: 25, Security: SecurityOpen},
	}
}

// Logger defines the logging interface used by Manager.
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
