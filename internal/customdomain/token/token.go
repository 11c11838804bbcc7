// Package token generates domain verification tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Generate creates a cryptographically secure verification token.
// Returns a base64-encoded string of 32 random bytes (43 characters).
// Tokens are generated once per domain at registration and never reused.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate verification token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
