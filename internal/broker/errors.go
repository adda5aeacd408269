package broker

import "errors"

var (
	// ErrEmptyDeviceID is returned when a connect or disconnect names no device.
	ErrEmptyDeviceID = errors.New("broker: device id required")

	// ErrEmptyInterfaceID is returned when a pairing request names no interface.
	ErrEmptyInterfaceID = errors.New("broker: interface id required")

	// ErrInterfaceNotFound is returned when a pairing request names an
	// interface the registry does not know.
	ErrInterfaceNotFound = errors.New("broker: interface not found")

	// ErrCodeMismatch is returned when the supplied connection code does not
	// match the code the interface registered with.
	ErrCodeMismatch = errors.New("broker: connection code mismatch")

	// ErrDeviceNotConnected is returned when the target device has no live
	// session to pair against.
	ErrDeviceNotConnected = errors.New("broker: device not connected")
)
