// Package server provides the HTTP server of the auth service.
// It wires configuration, storage, notification and the auth service into
// the router, and owns the server lifecycle and background maintenance.
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/auth"
	"github.com/yasinhessnawi1/authkeeper/internal/config"
	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/database"
	"github.com/yasinhessnawi1/authkeeper/internal/handlers"
	"github.com/yasinhessnawi1/authkeeper/internal/metrics"
	"github.com/yasinhessnawi1/authkeeper/internal/middleware"
	"github.com/yasinhessnawi1/authkeeper/internal/repository"
	"github.com/yasinhessnawi1/authkeeper/internal/service"
	"github.com/yasinhessnawi1/authkeeper/internal/utils/ratelimit"
	"github.com/yasinhessnawi1/authkeeper/migrations"
)

// Handlers contains all HTTP handlers for the application.
type Handlers struct {
	// AuthHandler serves the /api/auth endpoints
	AuthHandler *handlers.AuthHandler

	// HealthHandler serves /health
	HealthHandler *handlers.HealthHandler
}

// Dependencies are the external collaborators of the server. NewServer
// builds them from configuration; tests pass in-memory ones to New.
type Dependencies struct {
	// DB is optional. Without it /health does not check a database.
	DB     *database.Pool
	Store  repository.CredentialStore
	Sender service.NotificationSender
}

// Server represents the API server.
type Server struct {
	// Config contains application configuration
	Config *config.AppConfig

	// Db provides database access. It is nil in memory mode.
	Db *database.Pool

	// Handlers contains all HTTP request handlers
	Handlers *Handlers

	router      chi.Router
	authService *service.AuthService
	jwtService  *auth.JWTService
	janitor     ResetTokenJanitor
	limiter     *ratelimit.Store
	registry    *prometheus.Registry
	httpServer  *http.Server

	// trustedProxies are the peers allowed to name the client in forwarding
	// headers.
	trustedProxies []netip.Prefix
}

// NewServer connects to the configured database, runs migrations, builds the
// notification sender and returns a ready server.
func NewServer(cfg *config.AppConfig) (*Server, error) {
	db, err := setupDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	sender, err := service.NewNotificationSender(&cfg.Email)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up notification sender: %w", err)
	}
	verifySender(context.Background(), sender, &cfg.Email)

	s, err := New(cfg, Dependencies{
		DB:     db,
		Store:  repository.NewSQLCredentialStore(db),
		Sender: sender,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New builds a server around the given dependencies.
func New(cfg *config.AppConfig, deps Dependencies) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if deps.Sender == nil {
		return nil, fmt.Errorf("notification sender is required")
	}

	trusted, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Config:         cfg,
		Db:             deps.DB,
		trustedProxies: trusted,
	}

	if err := s.setupServices(deps); err != nil {
		return nil, fmt.Errorf("failed to set up services: %w", err)
	}
	s.setupHandlers()
	s.setupRateLimiter()
	s.setupMetrics()

	s.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ServerAddress(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  constants.DefaultIdleTimeout,
	}

	return s, nil
}

// setupDatabase connects and brings the schema up to date.
func setupDatabase(cfg *config.AppConfig) (*database.Pool, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DBConnectionTimeout)
	defer cancel()

	if err := migrations.NewMigrator(db).RunMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return db, nil
}

// verifySender checks the mail transport once at startup. A failure is only
// logged: the relay may come up after the service does.
func verifySender(ctx context.Context, sender service.NotificationSender, cfg *config.EmailSettings) {
	verifier, ok := sender.(SenderVerifier)
	if !ok || cfg.SkipVerifyOnStartup {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, constants.SMTPDialTimeout)
	defer cancel()

	if err := verifier.Verify(ctx); err != nil {
		log.Warn().Err(err).Str("host", cfg.Host).Int("port", cfg.Port).
			Msg("Email transport verification failed; password reset emails may not be delivered")
		return
	}
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("Email transport verified")
}

func (s *Server) setupServices(deps Dependencies) error {
	hasher, err := auth.NewBcryptHasher(s.Config.PasswordHash.Cost)
	if err != nil {
		return err
	}
	s.jwtService = auth.NewJWTService(&s.Config.JWT)

	s.authService = service.NewAuthService(
		deps.Store,
		deps.Sender,
		s.jwtService,
		hasher,
		service.WithResetURL(s.Config.Email.ResetURL),
	)
	s.janitor = s.authService

	log.Info().
		Int("bcrypt_cost", hasher.Cost()).
		Dur("session_expiry", s.Config.JWT.Expiry).
		Msg("Auth services initialized")
	return nil
}

func (s *Server) setupHandlers() {
	var health handlers.HealthChecker
	if s.Db != nil {
		health = s.Db
	}

	s.Handlers = &Handlers{
		AuthHandler:   handlers.NewAuthHandler(s.authService),
		HealthHandler: handlers.NewHealthHandler(health, s.Config.App.Version),
	}
}

func (s *Server) setupRateLimiter() {
	rate := ratelimit.PerMinute(s.Config.RateLimit.AuthRequestsPerMinute, s.Config.RateLimit.AuthBurst)
	s.limiter = ratelimit.NewStore(rate)
	s.limiter.SetRate(constants.RateLimitCategoryAuth, rate)
}

// setupMetrics uses a registry per server so several servers can live in one
// process, as they do in tests.
func (s *Server) setupMetrics() {
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(s.registry)
}

// AuthService returns the service behind the handlers.
func (s *Server) AuthService() *service.AuthService {
	return s.authService
}

// Start starts the HTTP server and blocks until it fails or a shutdown
// signal (SIGINT, SIGTERM) arrives.
func (s *Server) Start() error {
	serverErrors := make(chan error, 1)

	go func() {
		log.Info().
			Str("address", s.Config.Server.ServerAddress()).
			Msg("Starting server")

		serverErrors <- s.httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	maintenanceCtx, stopMaintenance := context.WithCancel(context.Background())
	defer stopMaintenance()
	s.SetupMaintenanceTasks(maintenanceCtx)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info().
			Str("signal", sig.String()).
			Msg("Shutdown signal received")

		stopMaintenance()

		ctx, cancel := context.WithTimeout(context.Background(), s.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.Shutdown(ctx); err != nil {
			if closeErr := s.httpServer.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// Shutdown waits for in-flight requests, then closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	log.Info().Msg("Server stopped gracefully")

	if s.Db != nil {
		s.Db.Close()
		log.Info().Msg("Database connection closed")
	}

	return nil
}

// SetupMaintenanceTasks starts the background jobs. They stop when ctx is done.
//
// Every constants.DBMaintenanceInterval expired reset tokens are cleared, and
// every constants.RateLimitCleanupInterval idle rate limiter buckets are
// dropped.
func (s *Server) SetupMaintenanceTasks(ctx context.Context) {
	go runEvery(ctx, constants.DBMaintenanceInterval, func() {
		taskCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		s.ClearExpiredResetTokens(taskCtx)
	})

	go runEvery(ctx, constants.RateLimitCleanupInterval, func() {
		s.limiter.Cleanup(constants.RateLimitIdleTimeout)
	})
}

// ClearExpiredResetTokens runs one pass of the reset token cleanup.
func (s *Server) ClearExpiredResetTokens(ctx context.Context) {
	count, err := s.janitor.ClearExpiredResetTokens(ctx)
	if err != nil {
		middleware.LogAndContinueOnError(err, "Failed to clear expired reset tokens")
		return
	}
	if count > 0 {
		log.Info().Int64("count", count).Msg("Cleared expired reset tokens")
	}
}

func runEvery(ctx context.Context, interval time.Duration, task func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task()
		}
	}
}
