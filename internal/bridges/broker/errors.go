package broker

import "errors"

// Domain errors for the broker bridge package.
var (
	// ErrNotConnected is returned when publishing without a live connection.
	ErrNotConnected = errors.New("broker: not connected")

	// ErrConnectionFailed is returned when dialling or subscribing fails.
	ErrConnectionFailed = errors.New("broker: connection failed")

	// ErrInvalidEndpoint is returned for an empty host or a port outside 1-65535.
	ErrInvalidEndpoint = errors.New("broker: invalid endpoint")

	// ErrDecode marks an inbound payload that could not be decoded.
	// It is recorded in the InboundLog and never returned to callers.
	ErrDecode = errors.New("broker: decode failed")

	// ErrUnknownChannel is returned for a channel name with no configured topic.
	ErrUnknownChannel = errors.New("broker: unknown channel")

	// ErrInvalidPayload is returned for an outbound payload that is missing
	// or cannot be encoded as JSON.
	ErrInvalidPayload = errors.New("broker: invalid payload")

	// ErrPublishFailed is returned when the broker rejects a publish.
	ErrPublishFailed = errors.New("broker: publish failed")
)
