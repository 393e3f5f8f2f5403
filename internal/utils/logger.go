package utils

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/config"
	"github.com/yasinhessnawi1/authkeeper/internal/constants"
)

// sensitiveColumns are query fragments whose arguments never reach the logs.
var sensitiveColumns = []string{
	constants.ColumnPasswordHash,
	"reset_token",
	"secret",
}

// InitLogger initializes the application logger with the given configuration
func InitLogger(cfg *config.AppConfig) {
	InitLoggerTo(cfg, os.Stdout)
}

// InitLoggerTo initializes the application logger writing to out. The
// interactive harness uses it to keep log lines off the menu's stdout.
func InitLoggerTo(cfg *config.AppConfig, out io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output = out
	if strings.ToLower(cfg.Logging.Format) == "console" && !cfg.App.IsProduction() {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("app", cfg.App.Name).
		Str("version", cfg.App.Version).
		Str("env", cfg.App.Environment).
		Logger()

	log.Debug().Str("level", level.String()).Msg("Logger initialized")
}

// RequestLogger creates a logger with request-specific context
func RequestLogger(requestID, userID, method, path string) zerolog.Logger {
	logger := log.With().
		Str(constants.RequestIDContextKey, requestID).
		Str("method", method).
		Str("path", path)

	if userID != "" {
		logger = logger.Str(constants.UserIDContextKey, userID)
	}

	return logger.Logger()
}

// LogHTTPRequest logs an HTTP request with request details
func LogHTTPRequest(requestID, method, path, remoteAddr, userAgent string, statusCode int, latency time.Duration) {
	// Health checks and scrapes only show up at debug level
	if path == constants.HealthPath || path == constants.MetricsPath {
		if zerolog.GlobalLevel() > zerolog.DebugLevel {
			return
		}
	}

	event := log.Debug()
	switch {
	case statusCode >= 500:
		event = log.Error()
	case statusCode >= 400:
		event = log.Warn()
	case strings.HasPrefix(path, constants.APIBasePath):
		event = log.Info()
	}

	event.
		Str(constants.RequestIDContextKey, requestID).
		Str("method", method).
		Str("path", path).
		Str("remote_addr", remoteAddr).
		Str("user_agent", userAgent).
		Int("status", statusCode).
		Dur("latency", latency).
		Msg("HTTP Request")
}

// LogError logs an error with context information
func LogError(err error, context map[string]interface{}) {
	event := log.Error().Err(err)

	for key, value := range context {
		switch v := value.(type) {
		case string:
			event = event.Str(key, v)
		case int:
			event = event.Int(key, v)
		case int64:
			event = event.Int64(key, v)
		case bool:
			event = event.Bool(key, v)
		default:
			event = event.Interface(key, v)
		}
	}

	event.Msg("Error occurred")
}

// LogPanic logs a recovered panic value
func LogPanic(recovered interface{}, stack []byte) {
	log.Error().
		Interface("panic", recovered).
		Str("stack", string(stack)).
		Msg("Panic recovered")
}

// LogDBQuery logs a database query for debugging. String arguments of queries
// touching credential columns are redacted.
func LogDBQuery(query string, args []interface{}, duration time.Duration, err error) {
	redact := false
	lower := strings.ToLower(query)
	for _, col := range sensitiveColumns {
		if strings.Contains(lower, col) {
			redact = true
			break
		}
	}

	safeArgs := make([]interface{}, len(args))
	for i, arg := range args {
		if _, ok := arg.(string); ok && redact {
			safeArgs[i] = constants.LogRedactedValue
			continue
		}
		safeArgs[i] = arg
	}

	event := log.Debug()
	if err != nil {
		event = log.Error().Err(err)
	}

	event.
		Str("query", query).
		Interface("args", safeArgs).
		Dur("duration", duration).
		Msg("Database query executed")
}

// LogAuth logs authentication events. userID is zero when the event happened
// before a user could be identified.
func LogAuth(event string, userID int64, email string, success bool, reason string) {
	logEvent := log.Info()
	if !success {
		logEvent = log.Warn()
	}

	logEvent = logEvent.
		Str("category", constants.LogCategoryAuth).
		Str("event", event).
		Str(constants.EmailContextKey, email).
		Bool("success", success)

	if userID != 0 {
		logEvent = logEvent.Str(constants.UserIDContextKey, strconv.FormatInt(userID, 10))
	}
	if reason != "" {
		logEvent = logEvent.Str("reason", reason)
	}

	logEvent.Msg(event)
}
