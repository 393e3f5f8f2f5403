package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yasinhessnawi1/authkeeper/internal/config"
	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/repository"
	"github.com/yasinhessnawi1/authkeeper/internal/service"
)

var resetTokenPattern = regexp.MustCompile(`reset token: ([0-9a-f]{64})`)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App: config.AppSettings{Environment: constants.EnvTesting, Name: "authkeeper", Version: "test-version"},
		Server: config.ServerSettings{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
			RequestTimeout:  5 * time.Second,
		},
		JWT:          config.JWTSettings{Secret: "0123456789abcdef0123456789abcdef", Expiry: time.Hour, Issuer: "authkeeper-test"},
		PasswordHash: config.HashSettings{Cost: bcrypt.MinCost},
		Email:        config.EmailSettings{Provider: constants.EmailProviderLog, ResetURL: "https://app.example.com/reset"},
		RateLimit:    config.RateLimitSettings{AuthRequestsPerMinute: 600, AuthBurst: 50},
	}
}

type testServer struct {
	*Server
	store  *repository.MemoryCredentialStore
	sender *service.LogSender
}

func newTestServer(t *testing.T, cfg *config.AppConfig) *testServer {
	t.Helper()
	store := repository.NewMemoryCredentialStore()
	sender := service.NewLogSender(nil)
	s, err := New(cfg, Dependencies{Store: store, Sender: sender})
	require.NoError(t, err)
	return &testServer{Server: s, store: store, sender: sender}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, header http.Header) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:5000"
	for k, v := range header {
		req.Header[k] = v
	}

	rr := httptest.NewRecorder()
	ts.GetRouter().ServeHTTP(rr, req)

	var envelope map[string]interface{}
	if rr.Header().Get(constants.HeaderContentType) == constants.ContentTypeJSON {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	}
	return rr, envelope
}

func data(t *testing.T, envelope map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", envelope)
	return d
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(testConfig(), Dependencies{Sender: service.NewLogSender(nil)})
	assert.Error(t, err)

	_, err = New(testConfig(), Dependencies{Store: repository.NewMemoryCredentialStore()})
	assert.Error(t, err)

	cfg := testConfig()
	cfg.PasswordHash.Cost = bcrypt.MaxCost + 1
	_, err = New(cfg, Dependencies{Store: repository.NewMemoryCredentialStore(), Sender: service.NewLogSender(nil)})
	assert.Error(t, err)
}

func TestServer_CredentialLifecycle(t *testing.T) {
	ts := newTestServer(t, testConfig())
	const email = "alice@example.com"

	rr, env := ts.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": email, "password": "password123"}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	userID := data(t, env)["user_id"]
	assert.NotZero(t, userID)

	rr, _ = ts.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": email, "password": "password456"}, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr, env = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	session := data(t, env)["token"].(string)
	assert.NotEmpty(t, session)

	rr, env = ts.do(t, http.MethodGet, "/api/auth/me", nil, http.Header{"Authorization": {"Bearer " + session}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, email, data(t, env)["email"])
	assert.Equal(t, userID, data(t, env)["user_id"])

	rr, _ = ts.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, env = ts.do(t, http.MethodPost, "/api/auth/verify", map[string]string{"token": session}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, email, data(t, env)["email"])

	rr, _ = ts.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": email}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	msg, ok := ts.sender.Last()
	require.True(t, ok)
	assert.Equal(t, email, msg.To)
	match := resetTokenPattern.FindStringSubmatch(msg.TextBody)
	require.Len(t, match, 2)
	token := match[1]

	rr, _ = ts.do(t, http.MethodPost, "/api/auth/reset-password", map[string]string{"token": token, "new_password": "brand-new-pw"}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, _ = ts.do(t, http.MethodPost, "/api/auth/reset-password", map[string]string{"token": token, "new_password": "another-pw1"}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "password123"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "brand-new-pw"}, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServer_UnknownAccount(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rr, env := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ghost@example.com", "password": "whatever1"}, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, constants.CodeNotFound, env["error"].(map[string]interface{})["code"])

	rr, _ = ts.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ghost@example.com"}, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, ts.sender.Sent())
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitSettings{AuthRequestsPerMinute: 1, AuthBurst: 2}
	ts := newTestServer(t, cfg)

	body := map[string]string{"email": "ghost@example.com", "password": "whatever1"}
	for i := 0; i < 2; i++ {
		rr, _ := ts.do(t, http.MethodPost, "/api/auth/login", body, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}

	rr, _ := ts.do(t, http.MethodPost, "/api/auth/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(constants.HeaderRetryAfter))

	// Registration is not limited
	rr, _ = ts.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": "new@example.com", "password": "password123"}, nil)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr, _ = ts.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `auth_rate_limited_total{category="auth"}`)
	assert.Contains(t, rr.Body.String(), "auth_operations_total")
}

func TestServer_RateLimitIgnoresForwardedHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitSettings{AuthRequestsPerMinute: 1, AuthBurst: 2}
	ts := newTestServer(t, cfg)

	body := map[string]string{"email": "ghost@example.com", "password": "whatever1"}
	limited := 0
	for i := 0; i < 20; i++ {
		header := http.Header{constants.HeaderXForwardedFor: {fmt.Sprintf("198.51.100.%d", i+1)}}
		rr, _ := ts.do(t, http.MethodPost, "/api/auth/login", body, header)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	assert.Equal(t, 18, limited)
	assert.Equal(t, 1, ts.limiter.Len())
}

func TestServer_RateLimitBehindTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitSettings{AuthRequestsPerMinute: 1, AuthBurst: 2}
	// do() sends every request from 192.0.2.10
	cfg.Server.TrustedProxies = []string{"192.0.2.10"}
	ts := newTestServer(t, cfg)

	body := map[string]string{"email": "ghost@example.com", "password": "whatever1"}
	for i := 0; i < 2; i++ {
		rr, _ := ts.do(t, http.MethodPost, "/api/auth/login", body, http.Header{constants.HeaderXForwardedFor: {"198.51.100.1"}})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}

	rr, _ := ts.do(t, http.MethodPost, "/api/auth/login", body, http.Header{constants.HeaderXForwardedFor: {"198.51.100.1"}})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr, _ = ts.do(t, http.MethodPost, "/api/auth/login", body, http.Header{constants.HeaderXForwardedFor: {"198.51.100.2"}})
	assert.Equal(t, http.StatusNotFound, rr.Code, "a different client behind the proxy has its own bucket")
}

func TestNew_RejectsInvalidTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.Server.TrustedProxies = []string{"not-an-ip"}

	_, err := New(cfg, Dependencies{Store: repository.NewMemoryCredentialStore(), Sender: service.NewLogSender(nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trusted proxy")
}

func TestServer_InfrastructureRoutes(t *testing.T) {
	ts := newTestServer(t, testConfig())

	t.Run("health without database", func(t *testing.T) {
		rr, env := ts.do(t, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "healthy", data(t, env)["status"])
		assert.Equal(t, "test-version", data(t, env)["version"])
	})

	t.Run("route listing", func(t *testing.T) {
		rr, env := ts.do(t, http.MethodGet, "/api/routes", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		routes := data(t, env)["routes"].([]interface{})
		assert.Contains(t, routes, "POST /api/auth/register")
		assert.Contains(t, routes, "POST /api/auth/reset-password")
		assert.Contains(t, routes, "GET /api/auth/me")
	})

	t.Run("unknown route", func(t *testing.T) {
		rr, env := ts.do(t, http.MethodGet, "/api/nope", nil, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, false, env["success"])
	})

	t.Run("wrong method", func(t *testing.T) {
		rr, _ := ts.do(t, http.MethodGet, "/api/auth/login", nil, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})

	t.Run("security headers", func(t *testing.T) {
		rr, _ := ts.do(t, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, constants.FrameOptionsDeny, rr.Header().Get(constants.HeaderXFrameOptions))
	})
}

func TestServer_CORS(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	ts := newTestServer(t, testConfig())

	rr, _ := ts.do(t, http.MethodOptions, "/api/auth/login", nil, http.Header{"Origin": {"https://app.example.com"}})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")

	rr, _ = ts.do(t, http.MethodGet, "/health", nil, http.Header{"Origin": {"https://evil.example.com"}})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

// MockJanitor counts cleanup passes.
type MockJanitor struct {
	mock.Mock
}

func (m *MockJanitor) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestServer_ClearExpiredResetTokens(t *testing.T) {
	t.Run("clears expired tokens in the store", func(t *testing.T) {
		ts := newTestServer(t, testConfig())
		ctx := context.Background()

		id, err := ts.store.Create(ctx, "bob@example.com", "hash")
		require.NoError(t, err)
		past := time.Now().Add(-time.Minute)
		require.NoError(t, ts.store.SetResetToken(ctx, "bob@example.com", "digest", past))

		ts.ClearExpiredResetTokens(ctx)

		user, err := ts.store.FindByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Nil(t, user.ResetTokenHash)
		assert.Nil(t, user.ResetTokenExpiresAt)
	})

	t.Run("store errors are logged, not fatal", func(t *testing.T) {
		ts := newTestServer(t, testConfig())
		janitor := new(MockJanitor)
		janitor.On("ClearExpiredResetTokens", mock.Anything).Return(int64(0), errors.New("connection reset")).Once()
		ts.janitor = janitor

		assert.NotPanics(t, func() { ts.ClearExpiredResetTokens(context.Background()) })
		janitor.AssertExpectations(t)
	})
}

func TestRunEvery_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan struct{}, 10)
	done := make(chan struct{})

	go func() {
		runEvery(ctx, time.Millisecond, func() { ticks <- struct{}{} })
		close(done)
	}()

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runEvery did not stop")
	}
}

// stubVerifier is a sender that also verifies its transport.
type stubVerifier struct {
	*service.LogSender
	err   error
	calls int
}

func (s *stubVerifier) Verify(ctx context.Context) error {
	s.calls++
	return s.err
}

func TestVerifySender(t *testing.T) {
	t.Run("verifies when supported", func(t *testing.T) {
		v := &stubVerifier{LogSender: service.NewLogSender(nil), err: errors.New("dial tcp: refused")}
		verifySender(context.Background(), v, &config.EmailSettings{Host: "smtp.example.com", Port: 587})
		assert.Equal(t, 1, v.calls)
	})

	t.Run("skipped by config", func(t *testing.T) {
		v := &stubVerifier{LogSender: service.NewLogSender(nil)}
		verifySender(context.Background(), v, &config.EmailSettings{SkipVerifyOnStartup: true})
		assert.Zero(t, v.calls)
	})

	t.Run("senders without verification", func(t *testing.T) {
		assert.NotPanics(t, func() {
			verifySender(context.Background(), service.NewLogSender(nil), &config.EmailSettings{})
		})
	})
}
