package registry

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// connectionCodeLength is the number of characters in a connection code.
const connectionCodeLength = 8

// connectionCodeAlphabet is the character set for connection codes.
// Uppercase alphanumerics keep codes easy to read out over the phone.
const connectionCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewID returns a new opaque identifier for a device or interface.
func NewID() string {
	return uuid.NewString()
}

// NewConnectionCode generates a short random pairing token.
// The code is shared out-of-band and proves intent to pair with a
// specific device, so it must come from a CSPRNG.
func NewConnectionCode() (string, error) {
	buf := make([]byte, connectionCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating connection code: %w", err)
	}

	code := make([]byte, connectionCodeLength)
	for i, b := range buf {
		code[i] = connectionCodeAlphabet[int(b)%len(connectionCodeAlphabet)]
	}
	return string(code), nil
}
