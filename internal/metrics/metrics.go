// Package metrics exposes Prometheus collectors for the auth operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names used as the "operation" label.
const (
	OperationRegister       = "register"
	OperationLogin          = "login"
	OperationForgotPassword = "forgot_password"
	OperationResetPassword  = "reset_password"
	OperationVerifyToken    = "verify_token"
)

// Outcome labels. Domain failures get their own outcome so dashboards can
// tell a wrong password from a broken database.
const (
	OutcomeSuccess            = "success"
	OutcomeAlreadyExists      = "already_exists"
	OutcomeNotFound           = "not_found"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidResetToken  = "invalid_reset_token"
	OutcomeInvalidToken       = "invalid_token"
	OutcomeDeliveryFailed     = "delivery_failed"
	OutcomeStoreUnavailable   = "store_unavailable"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeError              = "error"
)

// AuthOperations counts auth operations by outcome.
// Use Register to register this with a Prometheus registry.
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Total number of auth operations",
	},
	[]string{"operation", "outcome"},
)

// AuthOperationDuration observes how long auth operations take, hashing and
// delivery included.
var AuthOperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "auth_operation_duration_seconds",
		Help:    "Auth operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// RateLimited counts requests rejected by the rate limiter.
var RateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	},
	[]string{"category"},
)

// Register registers the collectors with the given registry.
// Panics if registration fails (following prometheus convention).
func Register(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
	reg.MustRegister(AuthOperationDuration)
	reg.MustRegister(RateLimited)
}

// RecordOperation counts one operation and observes its duration.
func RecordOperation(operation, outcome string, duration time.Duration) {
	AuthOperations.WithLabelValues(operation, outcome).Inc()
	AuthOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRateLimited counts a rejected request.
func RecordRateLimited(category string) {
	RateLimited.WithLabelValues(category).Inc()
}
