package registry

import "errors"

// Domain errors for the registry package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, registry.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("registry: device not found")

	// ErrDeviceExists is returned when registering a device whose (ip, port)
	// pair is already taken.
	ErrDeviceExists = errors.New("registry: device with this ip and port already exists")

	// ErrInterfaceNotFound is returned when an interface ID does not exist.
	ErrInterfaceNotFound = errors.New("registry: interface not found")

	// ErrInterfaceExists is returned when an interface already exists for
	// the same (email, device code) pair.
	ErrInterfaceExists = errors.New("registry: interface already registered for this user and device")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("registry: invalid device")

	// ErrInvalidInterface is returned when interface validation fails.
	ErrInvalidInterface = errors.New("registry: invalid interface")
)
