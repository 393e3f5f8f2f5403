package constants

// Top level paths.
const (
	APIBasePath = "/api"
	HealthPath  = "/health"
	MetricsPath = "/metrics"
)

// Auth routes, relative to AuthBasePath.
const (
	AuthBasePath           = "/api/auth"
	AuthRegisterPath       = "/register"
	AuthLoginPath          = "/login"
	AuthForgotPasswordPath = "/forgot-password"
	AuthResetPasswordPath  = "/reset-password"
	AuthVerifyPath         = "/verify"
	AuthMePath             = "/me"
)
