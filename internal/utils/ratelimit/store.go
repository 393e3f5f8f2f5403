package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultCategory = "default"

// Store manages rate limiters for multiple clients, one bucket per
// (category, client) pair.
type Store struct {
	limiters map[string]*Limiter
	rates    map[string]Rate
	now      func() time.Time
	mu       sync.RWMutex
}

// NewStore creates a new store for managing rate limiters.
func NewStore(defaultRate Rate) *Store {
	return &Store{
		limiters: make(map[string]*Limiter),
		rates:    map[string]Rate{defaultCategory: defaultRate},
		now:      time.Now,
	}
}

// SetClock replaces the time source. Only tests use it.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// GetLimiter returns the limiter for clientID within category, creating it on
// first use.
func (s *Store) GetLimiter(clientID string, category string) *Limiter {
	key := category + "|" + clientID

	s.mu.RLock()
	limiter, exists := s.limiters[key]
	s.mu.RUnlock()
	if exists {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have created it while we waited for the lock
	if limiter, exists = s.limiters[key]; exists {
		return limiter
	}

	rate, ok := s.rates[category]
	if !ok {
		rate = s.rates[defaultCategory]
	}

	limiter = newLimiterWithClock(rate.RequestsPerSecond, rate.Burst, s.now)
	s.limiters[key] = limiter
	return limiter
}

// SetRate sets a rate limit for a specific category.
func (s *Store) SetRate(category string, rate Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[category] = rate
}

// Cleanup removes limiters idle for longer than maxIdle and returns how many
// were dropped.
func (s *Store) Cleanup(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for key, l := range s.limiters {
		if l.LastSeen().Before(cutoff) {
			delete(s.limiters, key)
			removed++
		}
	}

	if removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(s.limiters)).Msg("Rate limiter cleanup")
	}
	return removed
}

// Len returns the number of tracked limiters.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limiters)
}
