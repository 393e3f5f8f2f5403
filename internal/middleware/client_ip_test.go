package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/middleware"
	"github.com/yasinhessnawi1/authkeeper/internal/utils/ratelimit"
)

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.1/32"),
	}

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "No trusted proxies ignores headers",
			remoteAddr: "203.0.113.9:4000",
			headers:    map[string]string{constants.HeaderXForwardedFor: "198.51.100.7", constants.HeaderXRealIP: "198.51.100.8"},
			want:       "203.0.113.9:4000",
		},
		{
			name:       "Untrusted peer ignores headers",
			trusted:    trusted,
			remoteAddr: "203.0.113.9:4000",
			headers:    map[string]string{constants.HeaderXForwardedFor: "198.51.100.7"},
			want:       "203.0.113.9:4000",
		},
		{
			name:       "Trusted peer with single hop",
			trusted:    trusted,
			remoteAddr: "192.0.2.1:4000",
			headers:    map[string]string{constants.HeaderXForwardedFor: "198.51.100.7"},
			want:       "198.51.100.7",
		},
		{
			name:       "Spoofed leftmost hop is skipped",
			trusted:    trusted,
			remoteAddr: "10.0.0.5:4000",
			headers:    map[string]string{constants.HeaderXForwardedFor: "1.2.3.4, 198.51.100.7, 10.0.0.2"},
			want:       "198.51.100.7",
		},
		{
			name:       "X-Real-IP from trusted peer",
			trusted:    trusted,
			remoteAddr: "192.0.2.1:4000",
			headers:    map[string]string{constants.HeaderXRealIP: "198.51.100.8"},
			want:       "198.51.100.8",
		},
		{
			name:       "Malformed hop keeps the peer",
			trusted:    trusted,
			remoteAddr: "192.0.2.1:4000",
			headers:    map[string]string{constants.HeaderXForwardedFor: "198.51.100.7, not-an-ip"},
			want:       "192.0.2.1:4000",
		},
		{
			name:       "Only trusted hops keeps the peer",
			trusted:    trusted,
			remoteAddr: "192.0.2.1:4000",
			headers:    map[string]string{constants.HeaderXForwardedFor: "10.0.0.3"},
			want:       "192.0.2.1:4000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := middleware.ClientIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimit_ForwardedForCannotPickBucket(t *testing.T) {
	captureLogs(t)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := ratelimit.NewStore(ratelimit.PerMinute(60, 2))
	store.SetClock(func() time.Time { return now })
	handler := middleware.ClientIP(nil)(middleware.RateLimit(store, constants.RateLimitCategoryAuth)(okHandler))

	limited := 0
	for i := 0; i < 20; i++ {
		req := requestFrom("/api/auth/login", "203.0.113.9:4000")
		req.Header.Set(constants.HeaderXForwardedFor, fmt.Sprintf("198.51.100.%d", i+1))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	assert.Equal(t, 18, limited)
	assert.Equal(t, 1, store.Len())
}
