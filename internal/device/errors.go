package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrOutOfRange) {
//	    // reject the request, state is unchanged
//	}
var (
	// ErrOutOfRange is returned when a numeric value lies outside its
	// permitted range. State is unchanged.
	ErrOutOfRange = errors.New("device: value out of range")

	// ErrUnknownEntity is returned when a room, door, camera, zone, reading
	// or device ID does not exist.
	ErrUnknownEntity = errors.New("device: unknown entity")

	// ErrInvalidValue is returned when a value cannot be interpreted, such
	// as an unknown fan level or a malformed schedule time.
	ErrInvalidValue = errors.New("device: invalid value")
)
