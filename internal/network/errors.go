package network

import "errors"

// Domain errors for the network package.
var (
	// ErrNoPendingRequest is returned when credentials are submitted for a
	// network that is not awaiting them.
	ErrNoPendingRequest = errors.New("network: no pending connection request")

	// ErrUnknownNetwork is returned when an SSID is not in the scan list.
	ErrUnknownNetwork = errors.New("network: unknown network")

	// ErrDisabled is returned when WiFi is switched off.
	ErrDisabled = errors.New("network: wifi disabled")

	// ErrAuthenticationFailed is returned when the credential verifier
	// rejects a secret. The pending request is cleared.
	ErrAuthenticationFailed = errors.New("network: authentication failed")
)
