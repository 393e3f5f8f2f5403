// Package auth provides password hashing, session tokens, reset tokens and
// the HTTP middleware that authenticates requests with a session token.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// ContextKey is a custom type for context keys to prevent collisions.
type ContextKey string

// Context keys for storing authenticated user information.
const (
	UserIDContextKey ContextKey = constants.UserIDContextKey
	EmailContextKey  ContextKey = constants.EmailContextKey
	claimsContextKey ContextKey = "session_claims"
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(constants.HeaderAuthorization)
	if !strings.HasPrefix(header, constants.BearerTokenPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, constants.BearerTokenPrefix))
	return token, token != ""
}

// RequireAuth rejects requests without a valid session token and stores the
// verified claims in the request context.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				utils.Unauthorized(w, constants.MsgAuthRequired)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				log.Info().
					Err(err).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Authentication failed")
				utils.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns a context carrying the verified session claims.
func WithClaims(ctx context.Context, claims *SessionClaims) context.Context {
	ctx = context.WithValue(ctx, claimsContextKey, claims)
	ctx = context.WithValue(ctx, UserIDContextKey, claims.UserID)
	return context.WithValue(ctx, EmailContextKey, claims.Email)
}

// ClaimsFromContext returns the session claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*SessionClaims)
	return claims, ok
}

// GetUserID extracts the user ID from the request context.
func GetUserID(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value(UserIDContextKey).(int64)
	return userID, ok
}

// GetEmail extracts the email from the request context.
func GetEmail(r *http.Request) (string, bool) {
	email, ok := r.Context().Value(EmailContextKey).(string)
	return email, ok
}
