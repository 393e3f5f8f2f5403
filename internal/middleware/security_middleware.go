// Package middleware provides HTTP middleware components.
package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/metrics"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
	"github.com/yasinhessnawi1/authkeeper/internal/utils/ratelimit"
)

// RateLimit is middleware that limits the rate of requests from clients.
// Every client IP gets its own token bucket within category.
//
// Parameters:
//   - store: The limiter store holding one bucket per client
//   - category: The endpoint category to apply limits for (e.g., "auth")
//
// Returns:
//   - A middleware function that can be used with an HTTP handler
func RateLimit(store *ratelimit.Store, category string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := getClientIP(r)
			limiter := store.GetLimiter(clientIP, category)
			if !limiter.Allow() {
				log.Warn().
					Str("client_ip", clientIP).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Str("category", category).
					Msg("Rate limit exceeded")
				metrics.RecordRateLimited(category)

				w.Header().Set(constants.HeaderRetryAfter, retryAfterSeconds(limiter.RetryAfter()))
				utils.TooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds security-related HTTP headers to responses
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set(constants.HeaderXContentTypeOptions, constants.ContentTypeOptionsNoSniff)
			h.Set(constants.HeaderXFrameOptions, constants.FrameOptionsDeny)
			h.Set(constants.HeaderReferrerPolicy, constants.ReferrerPolicyStrictOrigin)
			h.Set(constants.HeaderContentSecurityPolicy, constants.CSPDefaultSrc)

			// Nothing under the auth API may be cached
			if strings.HasPrefix(r.URL.Path, constants.APIBasePath) {
				h.Set(constants.HeaderCacheControl, constants.CacheControlNoStore)
				h.Set(constants.HeaderPragma, constants.PragmaNoCache)
				h.Set(constants.HeaderExpires, constants.ExpiresZero)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds renders a wait as whole seconds, at least one.
func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// getClientIP extracts the client IP address from the request. Forwarding
// headers are never read here; ClientIP rewrites RemoteAddr beforehand when
// the peer is a trusted proxy.
func getClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If there's no port in the address, use it as is
		return r.RemoteAddr
	}
	return ip
}

// isExemptedPath returns true if the path should be exempted from
// rate limiting (health checks and metric scrapes).
func isExemptedPath(path string) bool {
	return path == constants.HealthPath || path == constants.MetricsPath
}
