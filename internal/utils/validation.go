// internal/utils/validation.go
package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate
)

// InitValidator initializes the validator with custom validations
func InitValidator() {
	validate = validator.New()

	// Report json tag names instead of struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations(validate)

	log.Debug().Msg("Validator initialized")
}

// GetValidator returns the singleton validator instance
func GetValidator() *validator.Validate {
	if validate == nil {
		InitValidator()
	}
	return validate
}

// DecodeJSON decodes a JSON request body into the provided struct
// with size limits and strict field checking.
func DecodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, constants.MaxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &maxBytesError):
			return NewBadRequestError(constants.MsgRequestBodyTooLarge)

		case errors.Is(err, io.EOF):
			return NewBadRequestError(constants.MsgEmptyRequestBody)

		case errors.Is(err, io.ErrUnexpectedEOF):
			return NewBadRequestError(constants.MsgMalformedJSON)

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return NewValidationError("unknown_field", fmt.Sprintf("Request body contains unknown field %s", fieldName))

		case errors.As(err, &syntaxError):
			return NewBadRequestError(fmt.Sprintf("Request body contains malformed JSON (at position %d)", syntaxError.Offset))

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return NewValidationError(unmarshalTypeError.Field, fmt.Sprintf("Must be a %s", unmarshalTypeError.Type.String()))
			}
			return NewBadRequestError(fmt.Sprintf("Request body contains incorrect JSON type (at position %d)", unmarshalTypeError.Offset))

		default:
			return NewBadRequestError(fmt.Sprintf("Error decoding JSON: %s", err.Error()))
		}
	}

	if dec.More() {
		return NewBadRequestError("Request body must only contain a single JSON object")
	}

	return nil
}

// ValidateStruct validates a struct using the validator
func ValidateStruct(v interface{}) error {
	err := GetValidator().Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		if len(validationErrors) == 1 {
			e := validationErrors[0]
			return NewValidationError(e.Field(), getErrorMessage(e))
		}

		details := make(map[string]string)
		for _, e := range validationErrors {
			details[e.Field()] = getErrorMessage(e)
		}

		return NewValidationErrorWithDetails("Multiple validation errors", details)
	}

	return NewBadRequestError(err.Error())
}

// DecodeAndValidate decodes a JSON request body and validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := DecodeJSON(r, v); err != nil {
		return err
	}
	return ValidateStruct(v)
}

// getErrorMessage returns a user-friendly error message for a validation error
func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		if e.Type().Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters long", e.Param())
		}
		return fmt.Sprintf("Must be at least %s", e.Param())
	case "max":
		if e.Type().Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters long", e.Param())
		}
		return fmt.Sprintf("Must be at most %s", e.Param())
	case "hexadecimal":
		return "Must be a hexadecimal string"
	case "password_bytes":
		return fmt.Sprintf("Must be at most %d bytes long", constants.MaxPasswordLength)
	default:
		return fmt.Sprintf("Failed validation on the '%s' tag", e.Tag())
	}
}

// registerCustomValidations adds custom validation functions to the validator
func registerCustomValidations(v *validator.Validate) {
	if err := v.RegisterValidation("password_bytes", validatePasswordBytes); err != nil {
		log.Error().Err(err).Msg("Failed to register password_bytes validation")
	}
}

// validatePasswordBytes enforces the bcrypt input limit. The built-in max tag
// counts runes, while bcrypt counts bytes.
func validatePasswordBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= constants.MaxPasswordLength
}

// NewValidationErrorWithDetails creates a validation error with multiple field details
func NewValidationErrorWithDetails(message string, details map[string]string) *AppError {
	detailsMap := make(map[string]interface{})
	for k, v := range details {
		detailsMap[k] = v
	}

	return &AppError{
		Err:        ErrValidation,
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Details:    detailsMap,
	}
}

// IsValidEmail checks if a string is a valid email address
func IsValidEmail(email string) bool {
	return GetValidator().Var(email, "email") == nil
}

// ValidateEmail validates an email address supplied outside of a request body.
func ValidateEmail(email string) error {
	if email == "" {
		return NewValidationError(constants.ColumnEmail, "Email is required")
	}
	if len(email) > constants.MaxEmailLength {
		return NewValidationError(constants.ColumnEmail, fmt.Sprintf("Email must be at most %d characters long", constants.MaxEmailLength))
	}
	if !IsValidEmail(email) {
		return NewValidationError(constants.ColumnEmail, "Must be a valid email address")
	}
	return nil
}

// ValidatePassword checks the limits every password must satisfy regardless
// of the surface it arrived through.
func ValidatePassword(password string) error {
	if password == "" {
		return NewValidationError("password", "Password is required")
	}
	if err := GetValidator().Var(password, "password_bytes"); err != nil {
		return NewValidationError("password", fmt.Sprintf("Password must be at most %d bytes long", constants.MaxPasswordLength))
	}
	return nil
}
