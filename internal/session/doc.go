// Package session tracks which transport each device is currently
// connected on, and which interface (if any) is paired to it.
//
// Sessions are keyed by device id: a device has at most one live
// session, and a reconnect simply overwrites the transport id. The
// store exposes only atomic operations so that concurrent connects,
// pairings, and disconnects never interleave into a torn row. All
// rows are purged at startup and shutdown because transport ids are
// meaningless across process restarts.
package session
