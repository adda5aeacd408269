// Package database provides SQLite connection management and schema
// migrations for the LabLink Dispatcher.
//
// The dispatcher keeps three tables: devices, interfaces and sessions.
// Devices and interfaces are durable registry records; sessions are
// ephemeral rows that exist only while a device holds a live transport
// connection, and are purged at process start and shutdown.
//
// # Usage
//
//	db, err := database.Open(database.Config{Path: "./data/dispatcher.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded SQL files registered by the top-level migrations
// package via database.MigrationsFS.
package database
