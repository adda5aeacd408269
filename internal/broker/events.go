package broker

// Broadcast event names. Transports subscribe to the channels they care
// about; the announcer fans each event out to subscribers only.
const (
	EventDeviceRegistered      = "device_registered"
	EventDeviceDeleted         = "device_deleted"
	EventDeviceConnected       = "device_connected"
	EventDeviceDisconnected    = "device_disconnected"
	EventInterfaceRegistered   = "interface_registered"
	EventInterfaceDeleted      = "interface_deleted"
	EventInterfaceDisconnected = "interface_disconnected"
)

// Direct notification names. A peer bound to a session that is torn down by
// the other side receives the originating command name echoed to its own
// transport, so a device can tell a client-requested disconnect apart from
// the interface_disconnected broadcast.
const (
	NoticeInterfaceDisconnect = "interface_disconnect_from_dispatcher"
	NoticeDeviceDisconnect    = "device_disconnect_from_dispatcher"
)
