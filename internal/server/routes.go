package server

import (
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/auth"
	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/middleware"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// SetupRoutes configures the routes for the application.
//
// The configured routes include:
// - Health check and metrics (unprotected, never rate limited)
// - Authentication endpoints under /api/auth
// - The session endpoint /api/auth/me, protected by the JWT middleware
func (s *Server) SetupRoutes() {
	r := chi.NewRouter()

	if origins := getAllowedOrigins(); len(origins) > 0 {
		r.Use(corsMiddleware(origins))
	}

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.ClientIP(s.trustedProxies))
	r.Use(middleware.Recovery())
	if s.Config.Logging.RequestLog {
		r.Use(middleware.RequestLogger())
	}
	r.Use(middleware.SecurityHeaders())
	r.Use(chimiddleware.Timeout(s.Config.Server.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.NotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.MethodNotAllowed(w)
	})

	r.Get(constants.HealthPath, s.Handlers.HealthHandler.HealthCheck)
	r.Method(http.MethodGet, constants.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get(constants.APIBasePath+"/routes", s.GetAPIRoutes)

	r.Route(constants.AuthBasePath, func(r chi.Router) {
		h := s.Handlers.AuthHandler

		r.Post(constants.AuthRegisterPath, h.Register)
		r.Post(constants.AuthVerifyPath, h.VerifyToken)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.limiter, constants.RateLimitCategoryAuth))
			r.Post(constants.AuthLoginPath, h.Login)
			r.Post(constants.AuthForgotPasswordPath, h.ForgotPassword)
			r.Post(constants.AuthResetPasswordPath, h.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.jwtService))
			r.Get(constants.AuthMePath, h.GetCurrentSession)
		})
	})

	s.router = r
}

// GetRouter returns the configured router.
func (s *Server) GetRouter() chi.Router {
	return s.router
}

// GetAPIRoutes lists every registered route as "METHOD /path".
func (s *Server) GetAPIRoutes(w http.ResponseWriter, r *http.Request) {
	var routes []string
	walk := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+strings.Replace(route, "/*/", "/", -1))
		return nil
	}

	if err := chi.Walk(s.router, walk); err != nil {
		utils.InternalServerError(w, err)
		return
	}
	sort.Strings(routes)

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"routes": routes,
	})
}

// corsMiddleware adds CORS headers for allowed origins and answers
// preflight requests.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !originAllowed(allowedOrigins, origin) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "300")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func originAllowed(allowedOrigins []string, origin string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// getAllowedOrigins reads the comma separated ALLOWED_ORIGINS variable.
func getAllowedOrigins() []string {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" {
		return nil
	}

	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	log.Info().Strs("allowed_origins", origins).Msg("CORS enabled")
	return origins
}
