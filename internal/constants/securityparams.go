package constants

// Context keys set by the JWT middleware.
const (
	UserIDContextKey    = "user_id"
	EmailContextKey     = "email"
	RequestIDContextKey = "request_id"
)

// Input limits.
const (
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72
	MaxEmailLength    = 255
)
