package registry

import "time"

// Device represents a remote controllable endpoint registered with the
// dispatcher. Devices are immutable after creation except via deletion.
type Device struct {
	// Identity, assigned at registration.
	ID string `json:"device_id"`

	// Type is the device category (e.g. "scope", "stage").
	Type string `json:"type"`

	// Network address the device is reachable on.
	IP   string `json:"ip"`
	Port int    `json:"port"`

	// Subnet the device lives on, used by interfaces to decide local
	// versus relayed access.
	Subnet string `json:"subnet"`

	// IsPublic marks the device as visible outside its owner's account.
	IsPublic bool `json:"is_public"`

	// ConnectionCode is the short random pairing token generated at
	// registration and shared out-of-band.
	ConnectionCode string `json:"connection_code"`

	CreatedAt time.Time `json:"created_at"`
}

// Interface represents a user-facing client identity that wants to pair
// with a device via its connection code.
type Interface struct {
	// Identity, assigned at registration.
	ID string `json:"interface_id"`

	// Display name chosen by the user.
	Name string `json:"name"`

	// Email of the owning user.
	Email string `json:"email"`

	// DeviceCode is the connection code of the device this interface
	// wants to pair with.
	DeviceCode string `json:"device_code"`

	CreatedAt time.Time `json:"created_at"`
}

// InterfaceDetail is an Interface enriched with details of its target
// device. The enrichment is best-effort: if no device carries the stored
// code the fields are null, which is not an error.
type InterfaceDetail struct {
	Interface

	DeviceType   *string `json:"type"`
	DeviceSubnet *string `json:"subnet"`
}
