package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
)

// Custom error types for the application. Every domain outcome of the auth
// service wraps exactly one of these, so callers can branch with errors.Is.
var (
	ErrNotFound           = errors.New(constants.ErrorNotFound)
	ErrUnauthorized       = errors.New(constants.ErrorUnauthorized)
	ErrBadRequest         = errors.New(constants.ErrorBadRequest)
	ErrInternalServer     = errors.New(constants.ErrorInternalServer)
	ErrValidation         = errors.New(constants.ErrorValidation)
	ErrDuplicate          = errors.New(constants.ErrorDuplicate)
	ErrInvalidCredentials = errors.New(constants.ErrorInvalidCredentials)
	ErrInvalidToken       = errors.New(constants.ErrorInvalidToken)
	ErrInvalidResetToken  = errors.New(constants.ErrorInvalidResetToken)
	ErrDeliveryFailed     = errors.New(constants.ErrorDeliveryFailed)
	ErrStoreUnavailable   = errors.New(constants.ErrorStoreUnavailable)
)

// AppError represents an application error with additional context
type AppError struct {
	Err        error  // The sentinel this error belongs to
	Cause      error  // The underlying infrastructure error, if any
	StatusCode int    // HTTP status code
	Message    string // User-friendly error message
	DevInfo    string // Additional information for developers
	Field      string // Field related to the error (for validation errors)
	Details    map[string]any
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// New creates a new AppError with the given error and status code
func New(err error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewValidationError creates a new validation error for a specific field
func NewValidationError(field, message string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Field:      field,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		StatusCode: http.StatusBadRequest,
		Message:    message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resourceType string, identifier interface{}) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("%s with identifier '%v' not found", resourceType, identifier),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = constants.MsgAuthRequired
	}
	return &AppError{
		Err:        ErrUnauthorized,
		StatusCode: http.StatusUnauthorized,
		Message:    message,
	}
}

// NewInternalServerError creates a new internal server error
func NewInternalServerError(err error) *AppError {
	devInfo := ""
	if err != nil {
		devInfo = err.Error()
	}
	return &AppError{
		Err:        ErrInternalServer,
		Cause:      err,
		StatusCode: http.StatusInternalServerError,
		Message:    constants.MsgInternalServerError,
		DevInfo:    devInfo,
	}
}

// NewDuplicateError creates a new duplicate resource error
func NewDuplicateError(resourceType, field string, value interface{}) *AppError {
	return &AppError{
		Err:        ErrDuplicate,
		StatusCode: http.StatusConflict,
		Message:    fmt.Sprintf("%s with %s '%v' already exists", resourceType, field, value),
		Field:      field,
	}
}

// NewInvalidCredentialsError creates a new invalid credentials error
func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Err:        ErrInvalidCredentials,
		StatusCode: http.StatusUnauthorized,
		Message:    constants.MsgInvalidPassword,
	}
}

// NewInvalidTokenError creates a new invalid token error. The message can be
// overridden to tell an expired token apart from a forged one.
func NewInvalidTokenError(message string) *AppError {
	if message == "" {
		message = constants.MsgInvalidToken
	}
	return &AppError{
		Err:        ErrInvalidToken,
		StatusCode: http.StatusUnauthorized,
		Message:    message,
	}
}

// NewInvalidResetTokenError is returned when a reset token is unknown,
// expired, or already redeemed.
func NewInvalidResetTokenError() *AppError {
	return &AppError{
		Err:        ErrInvalidResetToken,
		StatusCode: http.StatusBadRequest,
		Message:    constants.MsgInvalidResetToken,
	}
}

// NewDeliveryFailedError wraps a notification sender failure.
func NewDeliveryFailedError(cause error) *AppError {
	devInfo := ""
	if cause != nil {
		devInfo = cause.Error()
	}
	return &AppError{
		Err:        ErrDeliveryFailed,
		Cause:      cause,
		StatusCode: http.StatusBadGateway,
		Message:    constants.MsgDeliveryFailed,
		DevInfo:    devInfo,
	}
}

// NewStoreUnavailableError wraps a credential store failure.
func NewStoreUnavailableError(cause error) *AppError {
	devInfo := ""
	if cause != nil {
		devInfo = cause.Error()
	}
	return &AppError{
		Err:        ErrStoreUnavailable,
		Cause:      cause,
		StatusCode: http.StatusServiceUnavailable,
		Message:    constants.MsgStoreUnavailable,
		DevInfo:    devInfo,
	}
}

// ParseError attempts to parse various types of errors into an AppError
func ParseError(err error) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, return it
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NewNotFoundError("Resource", "")
	case errors.Is(err, ErrUnauthorized):
		return NewUnauthorizedError("")
	case errors.Is(err, ErrBadRequest):
		return NewBadRequestError(err.Error())
	case errors.Is(err, ErrValidation):
		return NewValidationError("", err.Error())
	case errors.Is(err, ErrDuplicate):
		return NewDuplicateError("Resource", "", "")
	case errors.Is(err, ErrInvalidCredentials):
		return NewInvalidCredentialsError()
	case errors.Is(err, ErrInvalidToken):
		return NewInvalidTokenError("")
	case errors.Is(err, ErrInvalidResetToken):
		return NewInvalidResetTokenError()
	case errors.Is(err, ErrDeliveryFailed):
		return NewDeliveryFailedError(err)
	case errors.Is(err, ErrStoreUnavailable):
		return NewStoreUnavailableError(err)
	}

	if dup := parseDriverError(err); dup != nil {
		return dup
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "duplicate entry") {
		return &AppError{
			Err:        ErrDuplicate,
			Cause:      err,
			StatusCode: http.StatusConflict,
			Message:    constants.MsgResourceAlreadyExists,
			DevInfo:    err.Error(),
		}
	}

	// Default to internal server error
	return NewInternalServerError(err)
}

// parseDriverError classifies constraint violations reported by the MySQL and
// PostgreSQL drivers. It returns nil for anything else.
func parseDriverError(err error) *AppError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case constants.PGErrorDuplicateConstraint:
			return &AppError{
				Err:        ErrDuplicate,
				Cause:      err,
				StatusCode: http.StatusConflict,
				Message:    constants.MsgResourceAlreadyExists,
				DevInfo:    pqErr.Error(),
				Field:      pqErr.Column,
			}
		case constants.PGErrorNotNullConstraint:
			return &AppError{
				Err:        ErrValidation,
				Cause:      err,
				StatusCode: http.StatusBadRequest,
				Message:    fmt.Sprintf("The %s field cannot be empty", pqErr.Column),
				DevInfo:    pqErr.Error(),
				Field:      pqErr.Column,
			}
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case constants.MySQLErrorDuplicateEntry:
			return &AppError{
				Err:        ErrDuplicate,
				Cause:      err,
				StatusCode: http.StatusConflict,
				Message:    constants.MsgResourceAlreadyExists,
				DevInfo:    myErr.Error(),
			}
		case constants.MySQLErrorBadNull:
			return &AppError{
				Err:        ErrValidation,
				Cause:      err,
				StatusCode: http.StatusBadRequest,
				Message:    "A required field cannot be empty",
				DevInfo:    myErr.Error(),
			}
		}
	}

	return nil
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if an error is a duplicate resource error, including
// raw unique-key violations from either SQL driver.
func IsDuplicateError(err error) bool {
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	if parsed := parseDriverError(err); parsed != nil {
		return errors.Is(parsed.Err, ErrDuplicate)
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// StatusCode returns the HTTP status code for an error
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
