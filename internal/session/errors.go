package session

import "errors"

var (
	// ErrNotFound is returned when no session matches the lookup key.
	ErrNotFound = errors.New("session: not found")

	// ErrInvalidKey is returned when a lookup or mutation key is empty.
	ErrInvalidKey = errors.New("session: invalid key")
)
