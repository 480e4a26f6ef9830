package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("MAX_UPLOAD_MB", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Same(t, cfg, AppConfig)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 24, cfg.JWT.TTLHours)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes())
	assert.Contains(t, cfg.Database.DSN(), "dbname=proposal_db")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "sqlite")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " https://a.example/ ,,https://b.example"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
	assert.True(t, (&Config{Environment: "Production"}).IsProduction())
}

func TestMailerDisabledWithoutHost(t *testing.T) {
	m := NewMailer(SMTPConfig{From: "x@example.com"})
	assert.False(t, m.Enabled())
	assert.NoError(t, m.Send(nil, "s", "b"))
	assert.Error(t, m.Send([]string{"a@example.com"}, "s", "b"))
}
