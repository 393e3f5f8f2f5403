// Package handlers provides the HTTP handlers of the auth API.
package handlers

import (
	"context"

	"github.com/yasinhessnawi1/authkeeper/internal/models"
)

// AuthServiceInterface defines the methods required from the authentication service.
// This interface is used by the auth handlers to interact with the authentication business logic
// without being tightly coupled to the implementation.
type AuthServiceInterface interface {
	// Register creates an account.
	//
	// Returns:
	//   - The generated user id
	//   - An error wrapping utils.ErrDuplicate if the email is taken
	Register(ctx context.Context, email, password string) (*models.RegisterResult, error)

	// Login checks credentials and issues a session token.
	//
	// Returns:
	//   - The session token with its expiry
	//   - utils.ErrNotFound for an unknown email, utils.ErrInvalidCredentials for a wrong password
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)

	// ForgotPassword issues a reset token and emails it.
	//
	// Returns:
	//   - Delivery metadata of the reset email
	//   - utils.ErrDeliveryFailed if the email could not be sent
	ForgotPassword(ctx context.Context, email string) (*models.DeliveryResult, error)

	// ResetPassword redeems a reset token.
	//
	// Returns:
	//   - utils.ErrInvalidResetToken if the token is unknown, expired or already used
	ResetPassword(ctx context.Context, token, newPassword string) error

	// VerifyToken checks a session token.
	//
	// Returns:
	//   - What the token asserts
	//   - utils.ErrInvalidToken on a bad signature or an expired token
	VerifyToken(ctx context.Context, token string) (*models.SessionInfo, error)
}

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
