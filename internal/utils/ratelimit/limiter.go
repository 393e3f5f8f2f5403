// Package ratelimit provides rate limiting functionality for protecting API endpoints.
// It implements the token bucket algorithm with configurable rates and capacities.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Limiter is a token bucket for a single client identity. Tokens are added at
// a fixed rate and every request consumes one.
type Limiter struct {
	tokens   float64
	lastTime time.Time
	rate     float64 // tokens per second
	capacity float64
	now      func() time.Time
	mu       sync.Mutex
}

// Rate controls how many requests per second are allowed
type Rate struct {
	// RequestsPerSecond defines how many tokens are added per second
	RequestsPerSecond float64

	// Burst defines the maximum size of the token bucket
	Burst int
}

// PerMinute builds a Rate from a requests-per-minute budget.
func PerMinute(requests, burst int) Rate {
	return Rate{RequestsPerSecond: float64(requests) / 60, Burst: burst}
}

// NewLimiter creates a new rate limiter with the specified rate and burst capacity.
func NewLimiter(rate float64, burst int) *Limiter {
	return newLimiterWithClock(rate, burst, time.Now)
}

func newLimiterWithClock(rate float64, burst int, now func() time.Time) *Limiter {
	return &Limiter{
		tokens:   float64(burst),
		lastTime: now(),
		rate:     rate,
		capacity: float64(burst),
		now:      now,
	}
}

// Allow reports whether a request may proceed and consumes a token if so.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()

	if l.tokens < 1 {
		return false
	}

	l.tokens--
	return true
}

// RetryAfter returns how long until the next token is available.
func (l *Limiter) RetryAfter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 || l.rate <= 0 {
		return 0
	}
	missing := 1 - l.tokens
	return time.Duration(math.Ceil(missing/l.rate*1000)) * time.Millisecond
}

// LastSeen returns the time of the last refill, which happens on every request.
func (l *Limiter) LastSeen() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastTime
}

// ResetTokens refills the bucket.
func (l *Limiter) ResetTokens() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = l.capacity
	l.lastTime = l.now()
}

// refill must be called with mu held.
func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastTime).Seconds()
	l.lastTime = now

	l.tokens += elapsed * l.rate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
}
