package session

import "time"

// Session records a device's current live transport and, optionally, the
// interface paired to it. One row per device; the transport id is the
// last writer's.
type Session struct {
	DeviceID    string    `json:"device_id"`
	TransportID string    `json:"transport_id"`
	InterfaceID *string   `json:"interface_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Paired reports whether an interface is currently linked to the session.
func (s *Session) Paired() bool {
	return s.InterfaceID != nil && *s.InterfaceID != ""
}
