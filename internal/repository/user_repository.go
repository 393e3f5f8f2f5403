package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/database"
	"github.com/yasinhessnawi1/authkeeper/internal/models"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

const userColumns = `user_id, email, password_hash, reset_token_hash, reset_token_expires_at, created_at, updated_at`

// SQLCredentialStore is the database/sql implementation of CredentialStore.
// Queries are written once with "?" placeholders and rebound for the pool's
// dialect, so the same code serves MySQL and PostgreSQL.
type SQLCredentialStore struct {
	db *database.Pool
}

// NewSQLCredentialStore creates a new SQLCredentialStore
func NewSQLCredentialStore(db *database.Pool) *SQLCredentialStore {
	return &SQLCredentialStore{db: db}
}

var _ CredentialStore = (*SQLCredentialStore)(nil)

// scanUser reads a row selected with userColumns.
func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var (
		user      models.User
		tokenHash sql.NullString
		expiresAt sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&tokenHash,
		&expiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if tokenHash.Valid && expiresAt.Valid {
		h := tokenHash.String
		e := expiresAt.Time.UTC()
		user.ResetTokenHash = &h
		user.ResetTokenExpiresAt = &e
	}
	return &user, nil
}

// FindByEmail retrieves a user by email. The comparison is exact.
func (r *SQLCredentialStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	startTime := time.Now()

	query := r.db.Dialect.Rebind(fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ?",
		userColumns, constants.TableUsers, constants.ColumnEmail,
	))

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))

	utils.LogDBQuery(query, []interface{}{email}, time.Since(startTime), ignoreNoRows(err))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("User", email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// Create adds a new user to the database
func (r *SQLCredentialStore) Create(ctx context.Context, email, passwordHash string) (int64, error) {
	startTime := time.Now()
	now := time.Now().UTC()

	query := fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s, %s) VALUES (?, ?, ?, ?)",
		constants.TableUsers,
		constants.ColumnEmail, constants.ColumnPasswordHash,
		constants.ColumnCreatedAt, constants.ColumnUpdatedAt,
	)

	id, err := r.db.Dialect.InsertReturningID(ctx, r.db.DB, query, constants.ColumnUserID,
		email, passwordHash, now, now)

	utils.LogDBQuery(query, []interface{}{email, passwordHash, now, now}, time.Since(startTime), err)

	if err != nil {
		if utils.IsDuplicateError(err) {
			return 0, utils.NewDuplicateError("User", "email", email)
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().
		Int64("user_id", id).
		Str("email", utils.MaskEmail(email)).
		Msg("User created")

	return id, nil
}

// SetResetToken stores a reset token digest and its expiry on the user.
func (r *SQLCredentialStore) SetResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	startTime := time.Now()

	query := r.db.Dialect.Rebind(fmt.Sprintf(
		"UPDATE %s SET %s = ?, %s = ?, %s = ? WHERE %s = ?",
		constants.TableUsers,
		constants.ColumnResetTokenHash, constants.ColumnResetTokenExpiresAt, constants.ColumnUpdatedAt,
		constants.ColumnEmail,
	))

	args := []interface{}{tokenHash, expiresAt.UTC(), time.Now().UTC(), email}
	result, err := r.db.ExecContext(ctx, query, args...)

	utils.LogDBQuery(query, args, time.Since(startTime), err)

	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return utils.NewNotFoundError("User", email)
	}

	return nil
}

// FindByUnexpiredResetToken retrieves the user holding a reset token digest
// that expires after now.
func (r *SQLCredentialStore) FindByUnexpiredResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	startTime := time.Now()

	query := r.db.Dialect.Rebind(fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ? AND %s > ?",
		userColumns, constants.TableUsers,
		constants.ColumnResetTokenHash, constants.ColumnResetTokenExpiresAt,
	))

	args := []interface{}{tokenHash, now.UTC()}
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))

	utils.LogDBQuery(query, args, time.Since(startTime), ignoreNoRows(err))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("User", "reset token")
		}
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}

	return user, nil
}

// SetPasswordAndClearReset replaces the password and clears the reset token
// with a single UPDATE guarded by the token digest and its expiry. Of two
// concurrent redemptions only one matches the guard.
func (r *SQLCredentialStore) SetPasswordAndClearReset(ctx context.Context, userID int64, tokenHash, newPasswordHash string, now time.Time) error {
	startTime := time.Now()

	query := r.db.Dialect.Rebind(fmt.Sprintf(
		"UPDATE %s SET %s = ?, %s = NULL, %s = NULL, %s = ? WHERE %s = ? AND %s = ? AND %s > ?",
		constants.TableUsers,
		constants.ColumnPasswordHash, constants.ColumnResetTokenHash, constants.ColumnResetTokenExpiresAt,
		constants.ColumnUpdatedAt,
		constants.ColumnUserID, constants.ColumnResetTokenHash, constants.ColumnResetTokenExpiresAt,
	))

	args := []interface{}{newPasswordHash, now.UTC(), userID, tokenHash, now.UTC()}
	result, err := r.db.ExecContext(ctx, query, args...)

	utils.LogDBQuery(query, args, time.Since(startTime), err)

	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrResetTokenConsumed
	}

	log.Info().Int64("user_id", userID).Msg("Password reset applied")
	return nil
}

// ClearExpiredResetTokens removes reset tokens that expired at or before now.
func (r *SQLCredentialStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	startTime := time.Now()

	query := r.db.Dialect.Rebind(fmt.Sprintf(
		"UPDATE %s SET %s = NULL, %s = NULL WHERE %s IS NOT NULL AND %s <= ?",
		constants.TableUsers,
		constants.ColumnResetTokenHash, constants.ColumnResetTokenExpiresAt,
		constants.ColumnResetTokenExpiresAt, constants.ColumnResetTokenExpiresAt,
	))

	result, err := r.db.ExecContext(ctx, query, now.UTC())

	utils.LogDBQuery(query, []interface{}{now.UTC()}, time.Since(startTime), err)

	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}

	return result.RowsAffected()
}

// ignoreNoRows keeps "no rows" out of the error log; it is an expected miss.
func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
