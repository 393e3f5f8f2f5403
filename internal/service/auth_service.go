package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/auth"
	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/metrics"
	"github.com/yasinhessnawi1/authkeeper/internal/models"
	"github.com/yasinhessnawi1/authkeeper/internal/repository"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// AuthService handles registration, login and the password reset flow.
//
// It holds no mutable state after construction. Every outcome a caller is
// expected to handle is returned as a *utils.AppError wrapping one of the
// utils sentinels; anything the store could not answer becomes
// utils.ErrStoreUnavailable. Nothing is retried.
type AuthService struct {
	store    repository.CredentialStore
	sender   NotificationSender
	tokens   auth.SessionTokens
	hasher   auth.PasswordHasher
	resetURL string
	now      func() time.Time
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithClock replaces the time source used for reset token expiry.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

// WithResetURL sets the page the reset link points at.
func WithResetURL(resetURL string) AuthOption {
	return func(s *AuthService) {
		s.resetURL = resetURL
	}
}

// NewAuthService creates a new AuthService
func NewAuthService(
	store repository.CredentialStore,
	sender NotificationSender,
	tokens auth.SessionTokens,
	hasher auth.PasswordHasher,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		store:    store,
		sender:   sender,
		tokens:   tokens,
		hasher:   hasher,
		resetURL: constants.DefaultResetURL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account and returns its id.
func (s *AuthService) Register(ctx context.Context, email, password string) (result *models.RegisterResult, err error) {
	defer observe(metrics.OperationRegister, time.Now(), &err)

	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err = s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		utils.LogAuth(constants.LogEventRegister, 0, email, false, "email already registered")
		return nil, utils.NewDuplicateError("User", "email", email)
	case !utils.IsNotFoundError(err):
		return nil, storeError(err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, utils.NewInternalServerError(fmt.Errorf("failed to hash password: %w", err))
	}

	userID, err := s.store.Create(ctx, email, passwordHash)
	if err != nil {
		// A concurrent registration can win between the lookup and the insert.
		if utils.IsDuplicateError(err) {
			utils.LogAuth(constants.LogEventRegister, 0, email, false, "email already registered")
			return nil, utils.NewDuplicateError("User", "email", email)
		}
		return nil, storeError(err)
	}

	utils.LogAuth(constants.LogEventRegister, userID, email, true, "")

	return &models.RegisterResult{UserID: userID}, nil
}

// Login checks the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (result *models.LoginResult, err error) {
	defer observe(metrics.OperationLogin, time.Now(), &err)

	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, err
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if utils.IsNotFoundError(err) {
			// Spend the same hashing time as a wrong password would.
			s.hasher.VerifyDummy(password)
			utils.LogAuth(constants.LogEventLogin, 0, email, false, "user not found")
			return nil, utils.NewNotFoundError("User", email)
		}
		return nil, storeError(err)
	}

	match, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, utils.NewInternalServerError(fmt.Errorf("failed to verify password: %w", err))
	}
	if !match {
		utils.LogAuth(constants.LogEventLogin, user.ID, email, false, "invalid password")
		return nil, utils.NewInvalidCredentialsError()
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, utils.NewInternalServerError(fmt.Errorf("failed to issue session token: %w", err))
	}

	utils.LogAuth(constants.LogEventLogin, user.ID, email, true, "")

	return &models.LoginResult{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		Email:     user.Email,
	}, nil
}

// ForgotPassword issues a reset token for the account and emails it. Any
// earlier token of the account stops working. When delivery fails the new
// token stays stored and valid until it expires.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (result *models.DeliveryResult, err error) {
	defer observe(metrics.OperationForgotPassword, time.Now(), &err)

	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if utils.IsNotFoundError(err) {
			utils.LogAuth(constants.LogEventForgotPassword, 0, email, false, "user not found")
			return nil, utils.NewNotFoundError("User", email)
		}
		return nil, storeError(err)
	}

	token, digest, err := auth.GenerateResetToken()
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}
	expiresAt := s.now().Add(auth.ResetTokenExpiry)

	if err := s.store.SetResetToken(ctx, user.Email, digest, expiresAt); err != nil {
		return nil, storeError(err)
	}

	msg, err := BuildResetEmail(user.Email, s.resetURL, token, auth.ResetTokenExpiry)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}

	receipt, err := s.sender.Send(ctx, msg)
	if err != nil {
		utils.LogAuth(constants.LogEventForgotPassword, user.ID, email, false, "delivery failed")
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to deliver password reset email")
		return nil, utils.NewDeliveryFailedError(err)
	}

	utils.LogAuth(constants.LogEventForgotPassword, user.ID, email, true, "")

	return &models.DeliveryResult{
		Delivered: true,
		MessageID: receipt.MessageID,
		Accepted:  receipt.Accepted,
		ExpiresAt: expiresAt,
	}, nil
}

// ResetPassword redeems a reset token. The password change and the token
// removal are a single conditional store write, so a token can be redeemed
// at most once even under concurrent requests.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer observe(metrics.OperationResetPassword, time.Now(), &err)

	if token == "" {
		return utils.NewInvalidResetTokenError()
	}
	if err := utils.ValidatePassword(newPassword); err != nil {
		return err
	}

	digest := auth.HashResetToken(token)

	user, err := s.store.FindByUnexpiredResetToken(ctx, digest, s.now())
	if err != nil {
		if utils.IsNotFoundError(err) {
			utils.LogAuth(constants.LogEventResetPassword, 0, "", false, "invalid or expired token")
			return utils.NewInvalidResetTokenError()
		}
		return storeError(err)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return utils.NewInternalServerError(fmt.Errorf("failed to hash password: %w", err))
	}

	// The clock is read again: hashing takes time and the token may have
	// expired meanwhile.
	if err := s.store.SetPasswordAndClearReset(ctx, user.ID, digest, passwordHash, s.now()); err != nil {
		if errors.Is(err, repository.ErrResetTokenConsumed) {
			utils.LogAuth(constants.LogEventResetPassword, user.ID, user.Email, false, "token already redeemed")
			return utils.NewInvalidResetTokenError()
		}
		return storeError(err)
	}

	utils.LogAuth(constants.LogEventResetPassword, user.ID, user.Email, true, "")
	return nil
}

// VerifyToken checks a session token. It touches neither the store nor the
// network.
func (s *AuthService) VerifyToken(_ context.Context, token string) (info *models.SessionInfo, err error) {
	defer observe(metrics.OperationVerifyToken, time.Now(), &err)

	claims, err := s.tokens.Verify(token)
	if err != nil {
		utils.LogAuth(constants.LogEventVerifyToken, 0, "", false, err.Error())
		return nil, err
	}

	info = &models.SessionInfo{
		UserID: claims.UserID,
		Email:  claims.Email,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return info, nil
}

// ClearExpiredResetTokens removes reset tokens past their expiry. It backs
// the periodic maintenance task.
func (s *AuthService) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	cleared, err := s.store.ClearExpiredResetTokens(ctx, s.now())
	if err != nil {
		return 0, storeError(err)
	}
	return cleared, nil
}

// storeError keeps domain errors reported by the store and classifies
// everything else as the store being unavailable.
func storeError(err error) error {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return utils.NewStoreUnavailableError(err)
}

// observe records the operation's outcome. err points at the named result of
// the calling method.
func observe(operation string, start time.Time, err *error) {
	metrics.RecordOperation(operation, outcome(*err), time.Since(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, utils.ErrDuplicate):
		return metrics.OutcomeAlreadyExists
	case errors.Is(err, utils.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, utils.ErrInvalidCredentials):
		return metrics.OutcomeInvalidCredentials
	case errors.Is(err, utils.ErrInvalidResetToken):
		return metrics.OutcomeInvalidResetToken
	case errors.Is(err, utils.ErrInvalidToken):
		return metrics.OutcomeInvalidToken
	case errors.Is(err, utils.ErrDeliveryFailed):
		return metrics.OutcomeDeliveryFailed
	case errors.Is(err, utils.ErrStoreUnavailable):
		return metrics.OutcomeStoreUnavailable
	case errors.Is(err, utils.ErrValidation):
		return metrics.OutcomeInvalidInput
	default:
		return metrics.OutcomeError
	}
}
