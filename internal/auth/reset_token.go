package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// ResetTokenBytes is the entropy of a reset token: 256 bits.
	ResetTokenBytes = 32

	// ResetTokenExpiry is how long a reset token stays redeemable.
	ResetTokenExpiry = time.Hour
)

// randRead is swapped in tests to simulate an exhausted entropy source.
var randRead = rand.Read

// GenerateResetToken returns a new hex encoded reset token and the digest
// under which it is stored. Only the digest is persisted; the token itself
// leaves the service in the reset email.
func GenerateResetToken() (token, digest string, err error) {
	b := make([]byte, ResetTokenBytes)
	if _, err := randRead(b); err != nil {
		return "", "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	token = hex.EncodeToString(b)
	return token, HashResetToken(token), nil
}

// HashResetToken returns the hex SHA-256 digest of a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
