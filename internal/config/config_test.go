package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsInDev(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.IsDev())
	require.Equal(t, ":8080", cfg.Address())
	require.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	require.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	require.Equal(t, 5, cfg.OTP.MaxAttempts)
	require.Equal(t, 45*time.Second, cfg.OTP.ResendCooldown)
	require.GreaterOrEqual(t, len(cfg.JWTSecret), minJWTSecretLen)
	require.False(t, cfg.SMTP.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", ":9090")
	t.Setenv("SESSION_TTL", "48h")
	t.Setenv("OTP_TTL_SECONDS", "300")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USER", "mailer@example.com")
	t.Setenv("SMTP_FROM", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Address())
	require.Equal(t, 48*time.Hour, cfg.SessionTTL)
	require.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	require.Equal(t, 3, cfg.OTP.MaxAttempts)
	require.True(t, cfg.SMTP.Enabled())
	require.Equal(t, "mailer@example.com", cfg.SMTP.From)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("OTP_MAX_ATTEMPTS", "zero")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("OTP_MAX_ATTEMPTS", "")
	t.Setenv("SESSION_TTL", "a week")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadProductionRequirements(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/salon")
	t.Setenv("JWT_SECRET", "short")
	_, err = Load()
	require.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.IsDev())
}
