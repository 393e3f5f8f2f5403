// Package constants provides shared constant values used throughout the application.
//
// The errorcodes.go file defines constants related to error handling, categorization,
// and messaging. User-facing messages are informative without revealing
// implementation details.
package constants

// Error Types define the categories of errors that can occur in the application.
const (
	ErrorNotFound           = "resource not found"
	ErrorUnauthorized       = "unauthorized access"
	ErrorBadRequest         = "invalid request"
	ErrorInternalServer     = "internal server error"
	ErrorValidation         = "validation error"
	ErrorDuplicate          = "duplicate resource"
	ErrorInvalidCredentials = "invalid credentials"
	ErrorInvalidToken       = "invalid token"
	ErrorInvalidResetToken  = "invalid or expired reset token"
	ErrorDeliveryFailed     = "notification delivery failed"
	ErrorStoreUnavailable   = "credential store unavailable"
)

// User-Facing Error Messages define standardized messages that can be safely presented to users.
const (
	MsgAuthRequired          = "Authentication required"
	MsgInvalidPassword       = "Invalid email or password"
	MsgInternalServerError   = "An internal server error occurred"
	MsgTokenExpired          = "Authentication token has expired"
	MsgInvalidToken          = "Invalid token"
	MsgInvalidResetToken     = "Invalid or expired reset token"
	MsgDeliveryFailed        = "Failed to send password reset email"
	MsgStoreUnavailable      = "Service temporarily unavailable"
	MsgRequestBodyTooLarge   = "Request body too large"
	MsgEmptyRequestBody      = "Request body must not be empty"
	MsgMalformedJSON         = "Request body contains malformed JSON"
	MsgResourceNotFound      = "The requested resource could not be found"
	MsgResourceAlreadyExists = "A resource with the same unique identifier already exists"
	MsgMethodNotAllowed      = "This method is not allowed for this resource"
	MsgTooManyRequests       = "Too many requests, please try again later"
	MsgPasswordReset         = "Password has been reset successfully"
	MsgResetEmailSent        = "Password reset email sent"
)

// Database Error Types define driver error codes for constraint violations.
const (
	// PGErrorDuplicateConstraint is the PostgreSQL error code for unique constraint violations.
	PGErrorDuplicateConstraint = "23505"

	// PGErrorNotNullConstraint is the PostgreSQL error code for not-null constraint violations.
	PGErrorNotNullConstraint = "23502"

	// MySQLErrorDuplicateEntry is the MySQL error number for unique key violations.
	MySQLErrorDuplicateEntry = 1062

	// MySQLErrorBadNull is the MySQL error number for not-null violations.
	MySQLErrorBadNull = 1048
)

// Logger Constants define values used for structured logging.
const (
	LogCategoryAuth = "auth"

	LogEventLogin          = "login"
	LogEventRegister       = "register"
	LogEventForgotPassword = "forgot_password"
	LogEventResetPassword  = "reset_password"
	LogEventVerifyToken    = "verify_token"

	// LogRedactedValue is used to replace sensitive values in logs.
	LogRedactedValue = "[REDACTED]"
)
