package config

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
)

// AppConfig represents the entire application configuration
type AppConfig struct {
	App          AppSettings       `yaml:"app"`
	Database     DatabaseSettings  `yaml:"database"`
	Server       ServerSettings    `yaml:"server"`
	JWT          JWTSettings       `yaml:"jwt"`
	PasswordHash HashSettings      `yaml:"password_hash"`
	Email        EmailSettings     `yaml:"email"`
	RateLimit    RateLimitSettings `yaml:"rate_limit"`
	Logging      LoggingSettings   `yaml:"logging"`
}

// AppSettings contains general application settings
type AppSettings struct {
	Environment string `yaml:"environment" env:"APP_ENV"`
	Name        string `yaml:"name" env:"APP_NAME"`
	Version     string `yaml:"version" env:"APP_VERSION"`
}

// DatabaseSettings contains database connection settings
type DatabaseSettings struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	Name     string `yaml:"name" env:"DB_NAME"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	MaxConns int    `yaml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns int    `yaml:"min_conns" env:"DB_MIN_CONNS"`
}

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT"`
	// TrustedProxies lists the peers (IPs or CIDRs) whose forwarding headers
	// name the real client. Empty means the socket address is the client.
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`
}

// JWTSettings contains session token settings
type JWTSettings struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET"`
	Expiry time.Duration `yaml:"expiry" env:"JWT_EXPIRY"`
	Issuer string        `yaml:"issuer" env:"JWT_ISSUER"`
}

// HashSettings contains password hashing settings
type HashSettings struct {
	Cost int `yaml:"cost" env:"BCRYPT_COST"`
}

// EmailSettings configures the notification sender. The env names match the
// ones operators already use for the SMTP relay.
type EmailSettings struct {
	Provider            string `yaml:"provider" env:"EMAIL_PROVIDER"`
	Host                string `yaml:"host" env:"EMAIL_HOST"`
	Port                int    `yaml:"port" env:"EMAIL_PORT"`
	Secure              bool   `yaml:"secure" env:"EMAIL_SECURE"`
	InsecureSkipVerify  bool   `yaml:"insecure_skip_verify" env:"EMAIL_INSECURE_SKIP_VERIFY"`
	Username            string `yaml:"username" env:"EMAIL_USER"`
	Password            string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromAddress         string `yaml:"from_address" env:"EMAIL_FROM"`
	FromName            string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
	SendGridAPIKey      string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	ResetURL            string `yaml:"reset_url" env:"RESET_URL"`
	Debug               bool   `yaml:"debug" env:"SMTP_DEBUG"`
	SkipVerifyOnStartup bool   `yaml:"skip_verify_on_startup" env:"EMAIL_SKIP_VERIFY_ON_STARTUP"`
}

// RateLimitSettings limits unauthenticated auth endpoints per client IP.
type RateLimitSettings struct {
	AuthRequestsPerMinute int `yaml:"auth_requests_per_minute" env:"RATE_LIMIT_AUTH_RPM"`
	AuthBurst             int `yaml:"auth_burst" env:"RATE_LIMIT_AUTH_BURST"`
}

// LoggingSettings contains logging configuration
type LoggingSettings struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	RequestLog bool   `yaml:"request_log" env:"LOG_REQUESTS"`
}

// ConnectionString returns the DSN for the configured driver. Every value is
// escaped by the DSN builder, so credentials may contain any character.
func (dbs *DatabaseSettings) ConnectionString() string {
	addr := net.JoinHostPort(dbs.Host, strconv.Itoa(dbs.Port))

	if dbs.Driver == constants.DriverPostgres {
		user := url.User(dbs.User)
		if dbs.Password != "" {
			user = url.UserPassword(dbs.User, dbs.Password)
		}
		u := url.URL{
			Scheme:   constants.DriverPostgres,
			User:     user,
			Host:     addr,
			Path:     "/" + dbs.Name,
			RawQuery: constants.PostgresConnParams,
		}
		return u.String()
	}

	mc := mysql.NewConfig()
	mc.User = dbs.User
	mc.Passwd = dbs.Password
	mc.Net = "tcp"
	mc.Addr = addr
	mc.DBName = dbs.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Collation = constants.MySQLCollation
	mc.Params = map[string]string{"charset": constants.MySQLCharset}
	return mc.FormatDSN()
}

// Validate checks the settings needed to open a connection. It runs at
// connect time so binaries that never touch the database do not need them.
func (dbs *DatabaseSettings) Validate() error {
	if dbs.Driver != constants.DriverMySQL && dbs.Driver != constants.DriverPostgres {
		return fmt.Errorf("unsupported database driver: %q", dbs.Driver)
	}
	if dbs.User == "" {
		return fmt.Errorf("database user must be set")
	}
	if dbs.Name == "" {
		return fmt.Errorf("database name must be set")
	}
	return nil
}

// ServerAddress returns the complete server address
func (ss *ServerSettings) ServerAddress() string {
	return fmt.Sprintf("%s:%d", ss.Host, ss.Port)
}

// TrustedProxyPrefixes parses TrustedProxies. A bare IP is a single-address
// prefix.
func (ss *ServerSettings) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(ss.TrustedProxies))
	for _, entry := range ss.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// SMTPAddress returns host:port of the SMTP relay.
func (es *EmailSettings) SMTPAddress() string {
	return fmt.Sprintf("%s:%d", es.Host, es.Port)
}

// IsDevelopment checks if the application is running in development mode
func (as *AppSettings) IsDevelopment() bool {
	return strings.ToLower(as.Environment) == constants.EnvDevelopment
}

// IsProduction checks if the application is running in production mode
func (as *AppSettings) IsProduction() bool {
	return strings.ToLower(as.Environment) == constants.EnvProduction
}

// Load loads the configuration from a config file and environment variables.
// A missing file is not an error: everything can come from the environment.
func Load(configPath string) (*AppConfig, error) {
	config := &AppConfig{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		case os.IsNotExist(err):
			log.Debug().Str("path", configPath).Msg("Config file not found, using environment only")
		default:
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := LoadEnv(config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	setDefaults(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logConfig(config)

	return config, nil
}

// setDefaults sets default values for any missing configuration
func setDefaults(config *AppConfig) {
	if config.App.Environment == "" {
		config.App.Environment = constants.EnvDevelopment
	}
	if config.App.Name == "" {
		config.App.Name = constants.DefaultJWTIssuer
	}
	if config.App.Version == "" {
		config.App.Version = "1.0.0"
	}

	if config.Server.Port == 0 {
		config.Server.Port = constants.DefaultServerPort
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = constants.DefaultReadTimeout
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = constants.DefaultWriteTimeout
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = constants.DefaultShutdownTimeout
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = constants.DefaultRequestTimeout
	}

	if config.Database.Driver == "" {
		config.Database.Driver = constants.DefaultDBDriver
	}
	if config.Database.Port == 0 {
		if config.Database.Driver == constants.DriverPostgres {
			config.Database.Port = 5432
		} else {
			config.Database.Port = 3306
		}
	}
	if config.Database.MaxConns == 0 {
		config.Database.MaxConns = constants.DefaultDBMaxConnections
	}
	if config.Database.MinConns == 0 {
		config.Database.MinConns = constants.DefaultDBMinConnections
	}

	if config.JWT.Expiry == 0 {
		config.JWT.Expiry = constants.DefaultJWTExpiry
	}
	if config.JWT.Issuer == "" {
		config.JWT.Issuer = constants.DefaultJWTIssuer
	}

	if config.PasswordHash.Cost == 0 {
		config.PasswordHash.Cost = constants.DefaultBcryptCost
	}

	if config.Email.Provider == "" {
		config.Email.Provider = constants.DefaultEmailProvider
	}
	if config.Email.Port == 0 {
		config.Email.Port = constants.DefaultSMTPPort
	}
	if config.Email.FromName == "" {
		config.Email.FromName = constants.DefaultEmailFromName
	}
	if config.Email.FromAddress == "" {
		config.Email.FromAddress = config.Email.Username
	}
	if config.Email.ResetURL == "" {
		config.Email.ResetURL = constants.DefaultResetURL
	}

	if config.RateLimit.AuthRequestsPerMinute == 0 {
		config.RateLimit.AuthRequestsPerMinute = constants.DefaultAuthRateLimit
	}
	if config.RateLimit.AuthBurst == 0 {
		config.RateLimit.AuthBurst = constants.DefaultAuthRateBurst
	}

	if config.Logging.Level == "" {
		config.Logging.Level = constants.DefaultLogLevel
	}
	if config.Logging.Format == "" {
		config.Logging.Format = constants.DefaultLogFormat
	}
}

// validateConfig validates that the configuration has all required values
func validateConfig(config *AppConfig) error {
	env := strings.ToLower(config.App.Environment)
	if env != constants.EnvDevelopment && env != constants.EnvTesting && env != constants.EnvProduction {
		log.Warn().Str("environment", config.App.Environment).Msg("Invalid environment, defaulting to development")
		config.App.Environment = constants.EnvDevelopment
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret must be set")
	}
	if !config.App.IsDevelopment() && len(config.JWT.Secret) < constants.MinJWTSecretLength {
		return fmt.Errorf("JWT secret must be at least %d bytes outside development", constants.MinJWTSecretLength)
	}
	if config.JWT.Expiry < 0 {
		return fmt.Errorf("JWT expiry must be positive")
	}

	if config.PasswordHash.Cost < bcrypt.MinCost || config.PasswordHash.Cost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, config.PasswordHash.Cost)
	}

	if config.Database.Driver != constants.DriverMySQL && config.Database.Driver != constants.DriverPostgres {
		return fmt.Errorf("unsupported database driver: %q", config.Database.Driver)
	}

	if err := validateEmail(&config.Email); err != nil {
		return err
	}

	if _, err := config.Server.TrustedProxyPrefixes(); err != nil {
		return err
	}

	logLevel := strings.ToLower(config.Logging.Level)
	validLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	validLevel := false
	for _, level := range validLevels {
		if logLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

func validateEmail(es *EmailSettings) error {
	switch es.Provider {
	case constants.EmailProviderSMTP:
		if es.Host == "" {
			return fmt.Errorf("email host must be set for the smtp provider")
		}
	case constants.EmailProviderSendGrid:
		if es.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key must be set for the sendgrid provider")
		}
	case constants.EmailProviderLog:
	default:
		return fmt.Errorf("unsupported email provider: %q", es.Provider)
	}

	if es.Provider != constants.EmailProviderLog && es.FromAddress == "" {
		return fmt.Errorf("email from address must be set")
	}

	u, err := url.Parse(es.ResetURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid reset url: %q", es.ResetURL)
	}
	return nil
}

// logConfig logs the current configuration without secrets.
func logConfig(config *AppConfig) {
	log.Info().
		Str("environment", config.App.Environment).
		Str("version", config.App.Version).
		Str("server", config.Server.ServerAddress()).
		Str("db_driver", config.Database.Driver).
		Str("db_host", config.Database.Host).
		Int("db_port", config.Database.Port).
		Str("db_name", config.Database.Name).
		Str("jwt_secret", constants.LogRedactedValue).
		Dur("jwt_expiry", config.JWT.Expiry).
		Int("bcrypt_cost", config.PasswordHash.Cost).
		Str("email_provider", config.Email.Provider).
		Str("email_host", config.Email.Host).
		Int("email_port", config.Email.Port).
		Str("log_level", config.Logging.Level).
		Msg("Configuration loaded")
}
