// Package main is the interactive harness of the auth service. It drives the
// same AuthService the API server uses, against the configured database and
// mail transport, or fully in memory with -memory.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/auth"
	"github.com/yasinhessnawi1/authkeeper/internal/cli"
	"github.com/yasinhessnawi1/authkeeper/internal/config"
	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/database"
	"github.com/yasinhessnawi1/authkeeper/internal/repository"
	"github.com/yasinhessnawi1/authkeeper/internal/service"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
	"github.com/yasinhessnawi1/authkeeper/migrations"
)

func main() {
	var (
		configPath string
		memory     bool
	)
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "Path to configuration file")
	flag.BoolVar(&memory, "memory", false, "Keep accounts in memory and print emails instead of sending them")
	flag.Parse()

	if err := run(configPath, memory); err != nil {
		fmt.Fprintf(os.Stderr, "authcli: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, memory bool) error {
	// A missing .env is normal, everything can come from the environment
	_ = godotenv.Load()

	if memory && os.Getenv("JWT_SECRET") == "" {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		os.Setenv("JWT_SECRET", secret)
	}
	if memory {
		os.Setenv("EMAIL_PROVIDER", constants.EmailProviderLog)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Logs go to stderr so they do not interleave with the menu
	utils.InitLoggerTo(cfg, os.Stderr)
	log.Logger = log.With().Str("cli_session", uuid.NewString()).Logger()
	utils.InitValidator()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, sender, cleanup, err := buildBackends(ctx, cfg, memory)
	if err != nil {
		return err
	}
	defer cleanup()

	hasher, err := auth.NewBcryptHasher(cfg.PasswordHash.Cost)
	if err != nil {
		return err
	}
	svc := service.NewAuthService(store, sender, auth.NewJWTService(&cfg.JWT), hasher,
		service.WithResetURL(cfg.Email.ResetURL))

	app := cli.NewApp(svc, os.Stdin, os.Stdout, int(os.Stdin.Fd()))
	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// buildBackends returns the credential store and notification sender.
func buildBackends(ctx context.Context, cfg *config.AppConfig, memory bool) (repository.CredentialStore, service.NotificationSender, func(), error) {
	if memory {
		log.Info().Msg("Running in memory: accounts are lost on exit and emails are printed")
		return repository.NewMemoryCredentialStore(), service.NewLogSender(os.Stdout), func() {}, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrations.NewMigrator(db).RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	sender, err := service.NewNotificationSender(&cfg.Email)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	if verifier, ok := sender.(interface{ Verify(context.Context) error }); ok && !cfg.Email.SkipVerifyOnStartup {
		vctx, cancel := context.WithTimeout(ctx, constants.SMTPDialTimeout)
		if err := verifier.Verify(vctx); err != nil {
			log.Warn().Err(err).Msg("Email transport verification failed")
		} else {
			log.Info().Msg("Email transport verified")
		}
		cancel()
	}

	return repository.NewSQLCredentialStore(db), sender, db.Close, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
