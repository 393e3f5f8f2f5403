package repository

import (
	"context"
	"sync"
	"time"

	"github.com/yasinhessnawi1/authkeeper/internal/models"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// MemoryCredentialStore is an in-process CredentialStore. It backs the
// interactive harness in -memory mode and the service tests.
type MemoryCredentialStore struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	byEmail map[string]int64
	nextID  int64
	now     func() time.Time
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)

// NewMemoryCredentialStore creates an empty store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		users:   make(map[int64]*models.User),
		byEmail: make(map[string]int64),
		nextID:  1,
		now:     time.Now,
	}
}

// FindByEmail implements CredentialStore.
func (s *MemoryCredentialStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, utils.NewNotFoundError("User", email)
	}
	return s.users[id].Clone(), nil
}

// Create implements CredentialStore.
func (s *MemoryCredentialStore) Create(ctx context.Context, email, passwordHash string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return 0, utils.NewDuplicateError("User", "email", email)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           s.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	s.byEmail[email] = user.ID
	s.nextID++

	return user.ID, nil
}

// SetResetToken implements CredentialStore.
func (s *MemoryCredentialStore) SetResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return utils.NewNotFoundError("User", email)
	}

	user := s.users[id]
	hash := tokenHash
	expiry := expiresAt.UTC()
	user.ResetTokenHash = &hash
	user.ResetTokenExpiresAt = &expiry
	user.UpdatedAt = s.now().UTC()
	return nil
}

// FindByUnexpiredResetToken implements CredentialStore with a linear scan.
func (s *MemoryCredentialStore) FindByUnexpiredResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if holdsToken(user, tokenHash, now) {
			return user.Clone(), nil
		}
	}
	return nil, utils.NewNotFoundError("User", "reset token")
}

// SetPasswordAndClearReset implements CredentialStore. The check and the write
// happen under one lock acquisition.
func (s *MemoryCredentialStore) SetPasswordAndClearReset(ctx context.Context, userID int64, tokenHash, newPasswordHash string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok || !holdsToken(user, tokenHash, now) {
		return ErrResetTokenConsumed
	}

	user.PasswordHash = newPasswordHash
	user.ResetTokenHash = nil
	user.ResetTokenExpiresAt = nil
	user.UpdatedAt = now.UTC()
	return nil
}

// ClearExpiredResetTokens implements CredentialStore.
func (s *MemoryCredentialStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared int64
	for _, user := range s.users {
		if user.ResetTokenExpiresAt != nil && !user.ResetTokenExpiresAt.After(now) {
			user.ResetTokenHash = nil
			user.ResetTokenExpiresAt = nil
			cleared++
		}
	}
	return cleared, nil
}

// Len returns the number of stored users.
func (s *MemoryCredentialStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func holdsToken(user *models.User, tokenHash string, now time.Time) bool {
	return user.ResetTokenHash != nil &&
		*user.ResetTokenHash == tokenHash &&
		user.HasPendingReset(now)
}
