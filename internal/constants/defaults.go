// Package constants provides shared constant values used throughout the application.
//
// The defaults.go file defines default values and limits used throughout the application.
// Changes to these values may significantly impact application behavior, performance, and security.
package constants

import "time"

// Default Configuration Values define fallback settings when not specified in configuration.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultDBDriver is the database driver used when none is configured.
	DefaultDBDriver = DriverMySQL

	// DefaultDBMaxConnections is the default maximum number of database connections.
	DefaultDBMaxConnections = 20

	// DefaultDBMinConnections is the default minimum number of database connections.
	DefaultDBMinConnections = 5

	// DefaultLogLevel is the default logging verbosity level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default logging output format.
	DefaultLogFormat = "json"
)

// Environment Types define the recognized application running environments.
const (
	// EnvDevelopment identifies a development environment with debugging features enabled.
	EnvDevelopment = "development"

	// EnvTesting identifies a testing environment for automated tests.
	EnvTesting = "testing"

	// EnvProduction identifies a production environment with optimized settings.
	EnvProduction = "production"
)

// MaxRequestBodySize is the maximum size in bytes for HTTP request bodies.
const MaxRequestBodySize = 1048576 // 1MB in bytes

// Session token defaults.
const (
	// DefaultJWTIssuer is the issuer claim value for session tokens.
	DefaultJWTIssuer = "authkeeper"

	// DefaultJWTExpiry is the session token lifetime.
	DefaultJWTExpiry = 24 * time.Hour

	// BearerTokenPrefix is the prefix for Authorization header bearer tokens.
	BearerTokenPrefix = "Bearer "

	// MinJWTSecretLength is the minimum secret length accepted outside development.
	MinJWTSecretLength = 32
)

// DefaultBcryptCost is the work factor used for password hashing when none is configured.
const DefaultBcryptCost = 10

// Email defaults. They follow the reset message the service has always sent.
const (
	DefaultEmailProvider = "smtp"
	DefaultEmailFromName = "Auth System"
	DefaultSMTPPort      = 587
	DefaultResetURL      = "http://localhost:3000/reset-password"
	ResetEmailSubject    = "Password Reset Request"
)

// Supported email providers.
const (
	EmailProviderSMTP     = "smtp"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderLog      = "log"
)

// Rate limit defaults for the unauthenticated auth endpoints.
const (
	// DefaultAuthRateLimit is the number of requests per minute a client may make.
	DefaultAuthRateLimit = 10

	// DefaultAuthRateBurst is the bucket size for bursts.
	DefaultAuthRateBurst = 5

	// RateLimitCategoryAuth is the limiter category for auth endpoints.
	RateLimitCategoryAuth = "auth"
)
