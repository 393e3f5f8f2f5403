package constants

import "time"

// Server Timeouts
const (
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
)

// Database Timeouts
const (
	DBConnectionTimeout   = 10 * time.Second
	DBHealthCheckTimeout  = 5 * time.Second
	DBConnMaxLifetime     = 1 * time.Hour
	DBConnMaxIdleTime     = 30 * time.Minute
	DBMaintenanceInterval = 1 * time.Hour
)

// Email Timeouts
const (
	SMTPDialTimeout = 15 * time.Second
)

// Rate limiter housekeeping.
const (
	RateLimitCleanupInterval = 10 * time.Minute
	RateLimitIdleTimeout     = 30 * time.Minute
)
