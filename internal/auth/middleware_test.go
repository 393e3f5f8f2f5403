package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/authkeeper/internal/auth"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// mockVerifier is a TokenVerifier that accepts a single token.
type mockVerifier struct {
	validToken string
	claims     *auth.SessionClaims
	calls      int
}

func (m *mockVerifier) Verify(token string) (*auth.SessionClaims, error) {
	m.calls++
	if token != m.validToken {
		return nil, utils.NewInvalidTokenError("")
	}
	return m.claims, nil
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"valid", "Bearer abc.def", "abc.def", true},
		{"missing", "", "", false},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", false},
		{"empty token", "Bearer ", "", false},
		{"padded", "Bearer   tok  ", "tok", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, ok := auth.BearerToken(req)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	verifier := &mockVerifier{
		validToken: "good",
		claims: &auth.SessionClaims{
			UserID: 42,
			Email:  "alice@example.com",
		},
	}

	var gotUserID int64
	var gotEmail string
	var gotClaims *auth.SessionClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = auth.GetUserID(r)
		gotEmail, _ = auth.GetEmail(r)
		gotClaims, _ = auth.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.RequireAuth(verifier)(next)

	t.Run("missing header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, 0, verifier.calls)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		var body utils.Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.False(t, body.Success)
		require.NotNil(t, body.Error)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, int64(42), gotUserID)
		assert.Equal(t, "alice@example.com", gotEmail)
		assert.Same(t, verifier.claims, gotClaims)
	})
}

func TestContextHelpers_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := auth.GetUserID(req)
	assert.False(t, ok)
	_, ok = auth.GetEmail(req)
	assert.False(t, ok)
	_, ok = auth.ClaimsFromContext(context.Background())
	assert.False(t, ok)
}

func TestWithClaims(t *testing.T) {
	claims := &auth.SessionClaims{UserID: 3, Email: "c@example.com"}
	ctx := auth.WithClaims(context.Background(), claims)

	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	id, ok := auth.GetUserID(req)
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)

}
