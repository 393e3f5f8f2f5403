package models

import (
	"time"
)

// User is the credential record of a registered account.
// ResetTokenHash and ResetTokenExpiresAt are set together by a forgot-password
// request and cleared together by a successful reset.
type User struct {
	ID                  int64      `json:"id" db:"user_id"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	ResetTokenHash      *string    `json:"-" db:"reset_token_hash"`
	ResetTokenExpiresAt *time.Time `json:"-" db:"reset_token_expires_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// HasPendingReset reports whether the record holds a reset token that is
// still valid at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(now)
}

// Clone returns a deep copy, so stores can hand out records without sharing
// the pointer fields.
func (u *User) Clone() *User {
	c := *u
	if u.ResetTokenHash != nil {
		h := *u.ResetTokenHash
		c.ResetTokenHash = &h
	}
	if u.ResetTokenExpiresAt != nil {
		e := *u.ResetTokenExpiresAt
		c.ResetTokenExpiresAt = &e
	}
	return &c
}

// UserCredentials is the login request body.
type UserCredentials struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,password_bytes"`
}

// UserRegistration is the registration request body.
type UserRegistration struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,password_bytes"`
}

// RegisterResult is returned by a successful registration.
type RegisterResult struct {
	UserID int64 `json:"user_id"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
}

// SessionInfo is what a verified session token asserts.
type SessionInfo struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyTokenRequest carries a session token in the body. The token can also
// arrive as a Bearer header, so it is optional here.
type VerifyTokenRequest struct {
	Token string `json:"token" validate:"omitempty,max=4096"`
}
