package server

import (
	"context"
)

// SenderVerifier is implemented by notification senders that can check their
// transport before the first message goes out.
type SenderVerifier interface {
	Verify(ctx context.Context) error
}

// ResetTokenJanitor clears reset tokens whose validity window has passed.
type ResetTokenJanitor interface {
	ClearExpiredResetTokens(ctx context.Context) (int64, error)
}
