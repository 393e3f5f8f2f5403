package auth

import "time"

// TokenVerifier checks a session token and returns its claims.
type TokenVerifier interface {
	Verify(tokenString string) (*SessionClaims, error)
}

// SessionTokens issues and verifies session tokens.
type SessionTokens interface {
	TokenVerifier

	// Issue mints a token for the user and returns it with its expiry.
	Issue(userID int64, email string) (string, time.Time, error)
}
