// Package utils provides utility functions and helpers for the application.
// This file implements the standard API response envelope so every endpoint
// answers in the same shape.
package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
)

// Response represents a standardized API response.
type Response struct {
	Success bool        `json:"success"`         // Whether the request was successful
	Data    interface{} `json:"data,omitempty"`  // The response data (omitted for error responses)
	Error   *ErrorInfo  `json:"error,omitempty"` // Error information (omitted for successful responses)
}

// ErrorInfo represents error information in the response.
type ErrorInfo struct {
	Code    string            `json:"code"`              // A machine-readable error code
	Message string            `json:"message"`           // A human-readable error message
	Details map[string]string `json:"details,omitempty"` // Additional details about the error (e.g., validation errors)
}

// JSON sends a JSON response with the given status code and data.
// The success flag is derived from the status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response := Response{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	}

	SendJSON(w, statusCode, response)
}

// Error sends an error response with the given status code and error information.
func Error(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	response := Response{
		Success: constants.ResponseFailure,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	SendJSON(w, statusCode, response)
}

// errorCodes maps sentinels to the machine readable codes sent to clients.
var errorCodes = []struct {
	sentinel error
	code     string
}{
	{ErrNotFound, constants.CodeNotFound},
	{ErrBadRequest, constants.CodeBadRequest},
	{ErrUnauthorized, constants.CodeUnauthorized},
	{ErrValidation, constants.CodeValidationError},
	{ErrDuplicate, constants.CodeDuplicateResource},
	{ErrInvalidCredentials, constants.CodeInvalidCredentials},
	{ErrInvalidToken, constants.CodeTokenInvalid},
	{ErrInvalidResetToken, constants.CodeInvalidResetToken},
	{ErrDeliveryFailed, constants.CodeDeliveryFailed},
	{ErrStoreUnavailable, constants.CodeStoreUnavailable},
}

// ErrorCode returns the response code for an application error.
func ErrorCode(err *AppError) string {
	for _, ec := range errorCodes {
		if errors.Is(err.Err, ec.sentinel) {
			return ec.code
		}
	}
	return constants.CodeInternalError
}

// ErrorFromAppError sends an error response based on an AppError.
// DevInfo and the underlying cause are logged, never returned to the client.
func ErrorFromAppError(w http.ResponseWriter, err *AppError) {
	if err.StatusCode >= http.StatusInternalServerError {
		log.Error().Err(err.Cause).Str("dev_info", err.DevInfo).Msg(err.Message)
	}

	var details map[string]string
	if err.Field != "" {
		details = map[string]string{
			err.Field: err.Message,
		}
	}
	for k, v := range err.Details {
		if details == nil {
			details = make(map[string]string, len(err.Details))
		}
		if s, ok := v.(string); ok {
			details[k] = s
		}
	}

	Error(w, err.StatusCode, ErrorCode(err), err.Message, details)
}

// WriteError converts any error into the response envelope.
func WriteError(w http.ResponseWriter, err error) {
	ErrorFromAppError(w, ParseError(err))
}

// SendJSON is a helper function to send JSON data with proper headers.
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		if _, err := w.Write([]byte(`{"success":false,"error":{"code":"internal_error","message":"Failed to generate response"}}`)); err != nil {
			log.Error().Err(err).Msg("Failed to write error response")
		}
		return
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)

	if _, err = w.Write(jsonData); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// BadRequest sends a 400 Bad Request response with the given message.
func BadRequest(w http.ResponseWriter, message string, details map[string]string) {
	Error(w, http.StatusBadRequest, constants.CodeBadRequest, message, details)
}

// Unauthorized sends a 401 Unauthorized response with the given message.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = constants.MsgAuthRequired
	}
	Error(w, http.StatusUnauthorized, constants.CodeUnauthorized, message, nil)
}

// NotFound sends a 404 Not Found response with the given message.
func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = constants.MsgResourceNotFound
	}
	Error(w, http.StatusNotFound, constants.CodeNotFound, message, nil)
}

// MethodNotAllowed sends a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, constants.CodeMethodNotAllowed, constants.MsgMethodNotAllowed, nil)
}

// TooManyRequests sends a 429 response.
func TooManyRequests(w http.ResponseWriter) {
	Error(w, http.StatusTooManyRequests, constants.CodeTooManyRequests, constants.MsgTooManyRequests, nil)
}

// InternalServerError sends a 500 Internal Server Error response.
// The error is logged but not exposed to the client.
func InternalServerError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("Internal server error")
	Error(w, http.StatusInternalServerError, constants.CodeInternalError, constants.MsgInternalServerError, nil)
}

// ValidationError sends a 400 Bad Request response with validation error details.
func ValidationError(w http.ResponseWriter, errors map[string]string) {
	Error(w, http.StatusBadRequest, constants.CodeValidationError, "Validation failed", errors)
}
