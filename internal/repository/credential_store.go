// Package repository holds the credential store: the persistence contract the
// auth service depends on and its SQL and in-memory implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yasinhessnawi1/authkeeper/internal/models"
)

// ErrResetTokenConsumed is returned by SetPasswordAndClearReset when the
// record no longer holds the presented reset token, or the token expired
// before the write. A concurrent redemption that got there first is the usual
// cause.
var ErrResetTokenConsumed = errors.New("reset token no longer valid")

// CredentialStore is the keyed record store behind the auth service.
//
// Reset tokens are stored and looked up by digest only. Every method that
// writes the reset token also writes its expiry, so the two are either both
// set or both cleared.
type CredentialStore interface {
	// FindByEmail returns the user with exactly this email, or an error
	// wrapping utils.ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// Create inserts a user and returns the generated id. A taken email is
	// reported as an error wrapping utils.ErrDuplicate.
	Create(ctx context.Context, email, passwordHash string) (int64, error)

	// SetResetToken stores a reset token digest and expiry on the user,
	// replacing any earlier token.
	SetResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error

	// FindByUnexpiredResetToken returns the user holding tokenHash with an
	// expiry strictly after now.
	FindByUnexpiredResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)

	// SetPasswordAndClearReset replaces the password hash and clears the
	// reset token in one conditional write. The write only applies while the
	// user still holds tokenHash unexpired at now; otherwise it returns
	// ErrResetTokenConsumed and changes nothing.
	SetPasswordAndClearReset(ctx context.Context, userID int64, tokenHash, newPasswordHash string, now time.Time) error

	// ClearExpiredResetTokens removes reset tokens that expired at or before
	// now and returns how many records were cleaned.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
