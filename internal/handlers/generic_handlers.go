package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// HealthHandler reports service health.
type HealthHandler struct {
	db        HealthChecker
	version   string
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler. db may be nil when the service
// runs without a database.
func NewHealthHandler(db HealthChecker, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version, startedAt: time.Now()}
}

// HealthCheck answers 200 when the database responds and 503 otherwise.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "healthy",
		"version": h.version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	}

	if h.db != nil {
		if err := h.db.HealthCheck(r.Context()); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			status["status"] = "unhealthy"
			status["database"] = "unreachable"
			utils.JSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}

	utils.JSON(w, http.StatusOK, status)
}
