package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/yasinhessnawi1/authkeeper/internal/middleware"
)

func TestRequestLogger(t *testing.T) {
	logBuf := captureLogs(t)
	prevLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	teapot := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("logs status", func(t *testing.T) {
		logBuf.Reset()
		rr := httptest.NewRecorder()
		middleware.RequestLogger()(teapot).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

		assert.Equal(t, http.StatusTeapot, rr.Code)
		assert.Contains(t, logBuf.String(), `"status":418`)
		assert.Contains(t, logBuf.String(), `"path":"/api/auth/login"`)
	})

	t.Run("implicit 200", func(t *testing.T) {
		logBuf.Reset()
		silent := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
		middleware.RequestLogger()(silent).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

		assert.Contains(t, logBuf.String(), `"status":200`)
	})

	t.Run("health checks stay quiet", func(t *testing.T) {
		logBuf.Reset()
		middleware.RequestLogger()(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Empty(t, logBuf.String())
	})
}
