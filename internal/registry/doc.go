// Package registry provides the durable store of Device and Interface
// records for the LabLink Dispatcher.
//
// Devices are remote controllable endpoints; interfaces are user-facing
// client identities that pair with a device through its connection code.
// Both are persisted in SQLite behind the Repository interface.
//
// Uniqueness is enforced by the store, not by check-then-insert:
// a UNIQUE(ip, port) constraint on devices and a UNIQUE(email, device_code)
// constraint on interfaces surface as ErrDeviceExists / ErrInterfaceExists,
// so concurrent registrations cannot race past the duplicate check.
//
// Deletions cascade atomically: removing a device also removes its session
// row, and removing an interface clears (but keeps) any session that
// references it. Both run in a single transaction.
//
// # Usage
//
//	repo := registry.NewSQLiteRepository(db.DB)
//
//	code, _ := registry.NewConnectionCode()
//	dev := &registry.Device{
//	    ID:             registry.NewID(),
//	    Type:           "scope",
//	    IP:             "10.0.0.5",
//	    Port:           9000,
//	    ConnectionCode: code,
//	}
//	if err := dev.Validate(); err != nil {
//	    return err
//	}
//	if err := repo.CreateDevice(ctx, dev); err != nil {
//	    return err
//	}
package registry
