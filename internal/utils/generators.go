package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateCartToken returns the opaque bearer credential that identifies an
// anonymous cart: 32 bytes from a cryptographically secure source, hex
// encoded. A weak source here would make guest carts guessable.
func GenerateCartToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate cart token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
