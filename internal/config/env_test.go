package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	t.Setenv("APP_ENV", "testing")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("JWT_EXPIRY", "30m")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("EMAIL_HOST", "smtp.example.com")
	t.Setenv("EMAIL_PORT", "465")
	t.Setenv("EMAIL_SECURE", "true")
	t.Setenv("EMAIL_USER", "noreply@example.com")
	t.Setenv("SMTP_DEBUG", "1")

	config := &AppConfig{}
	require.NoError(t, LoadEnv(config))

	assert.Equal(t, "testing", config.App.Environment)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "postgres", config.Database.Driver)
	assert.Equal(t, 30*time.Minute, config.JWT.Expiry)
	assert.Equal(t, 12, config.PasswordHash.Cost)
	assert.Equal(t, "smtp.example.com", config.Email.Host)
	assert.Equal(t, 465, config.Email.Port)
	assert.True(t, config.Email.Secure)
	assert.Equal(t, "noreply@example.com", config.Email.Username)
	assert.True(t, config.Email.Debug)
}

func TestLoadEnv_LeavesUnsetFieldsAlone(t *testing.T) {
	config := &AppConfig{JWT: JWTSettings{Issuer: "from-yaml"}}
	require.NoError(t, LoadEnv(config))
	assert.Equal(t, "from-yaml", config.JWT.Issuer)
}

func TestProcessStructEnv(t *testing.T) {
	type sample struct {
		Name    string        `env:"SAMPLE_NAME"`
		Count   int           `env:"SAMPLE_COUNT"`
		Size    uint32        `env:"SAMPLE_SIZE"`
		Enabled bool          `env:"SAMPLE_ENABLED"`
		Wait    time.Duration `env:"SAMPLE_WAIT"`
		Hosts   []string      `env:"SAMPLE_HOSTS"`
		Ignored string
	}

	t.Setenv("SAMPLE_NAME", "mailer")
	t.Setenv("SAMPLE_COUNT", "3")
	t.Setenv("SAMPLE_SIZE", "64")
	t.Setenv("SAMPLE_ENABLED", "true")
	t.Setenv("SAMPLE_WAIT", "1h")
	t.Setenv("SAMPLE_HOSTS", "a.example.com, b.example.com")

	s := sample{Ignored: "keep"}
	require.NoError(t, processStructEnv(&s))

	assert.Equal(t, "mailer", s.Name)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, uint32(64), s.Size)
	assert.True(t, s.Enabled)
	assert.Equal(t, time.Hour, s.Wait)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, s.Hosts)
	assert.Equal(t, "keep", s.Ignored)
}

func TestProcessStructEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"Invalid integer", "SERVER_PORT", "eighty"},
		{"Invalid duration", "JWT_EXPIRY", "one day"},
		{"Invalid boolean", "EMAIL_SECURE", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			err := LoadEnv(&AppConfig{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}
