package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// Telemetry is optional, so callers usually treat it as "skip".
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed means the server could not be pinged at startup.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by queries and health checks after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrWriteFailed wraps every error delivered to the SetOnError callback.
	ErrWriteFailed = errors.New("influxdb: batch write failed")

	// ErrInvalidQuery means a history request was rejected before any
	// Flux was sent.
	ErrInvalidQuery = errors.New("influxdb: invalid query")
)
