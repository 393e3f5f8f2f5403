package models

import (
	"time"
)

// ForgotPasswordRequest is the body of a reset request.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// ResetPasswordRequest redeems a reset token. Tokens are 64 hex characters.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required,len=64,hexadecimal"`
	NewPassword string `json:"new_password" validate:"required,min=8,password_bytes"`
}

// DeliveryResult reports the outcome of sending a reset email.
type DeliveryResult struct {
	Delivered bool      `json:"delivered"`
	MessageID string    `json:"message_id,omitempty"`
	Accepted  []string  `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EmailMessage is a single outgoing HTML email.
type EmailMessage struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// DeliveryReceipt is what a notification sender reports back after handing a
// message to its transport.
type DeliveryReceipt struct {
	MessageID string
	Accepted  []string
	Rejected  []string
	Response  string
}
