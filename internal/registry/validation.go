package registry

import (
	"fmt"
	"strings"
)

// maxPort is the highest valid TCP port number.
const maxPort = 65535

// Validate checks that a device registration request carries every
// required field. It runs before any mutation, so a failing device never
// touches the store.
func (d *Device) Validate() error {
	if strings.TrimSpace(d.Type) == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidDevice)
	}
	if strings.TrimSpace(d.IP) == "" {
		return fmt.Errorf("%w: ip is required", ErrInvalidDevice)
	}
	if d.Port < 1 || d.Port > maxPort {
		return fmt.Errorf("%w: port must be between 1 and %d", ErrInvalidDevice, maxPort)
	}
	return nil
}

// Validate checks that an interface registration request carries every
// required field.
func (i *Interface) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInterface)
	}
	if strings.TrimSpace(i.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInterface)
	}
	if !strings.Contains(i.Email, "@") {
		return fmt.Errorf("%w: email is malformed", ErrInvalidInterface)
	}
	if strings.TrimSpace(i.DeviceCode) == "" {
		return fmt.Errorf("%w: deviceCode is required", ErrInvalidInterface)
	}
	return nil
}
