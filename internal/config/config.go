package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName           = "GlamourSalon"
	defaultAppEnv            = "development"
	defaultPort              = "8080"
	defaultLogLevel          = "info"
	defaultShutdownDelay     = 10 * time.Second
	defaultIdempotencyTTL    = 24 * time.Hour
	defaultSessionTTL        = 7 * 24 * time.Hour
	defaultOTPTTL            = 10 * time.Minute
	defaultOTPMaxAttempts    = 5
	defaultOTPResendCooldown = 45 * time.Second
	defaultOTPWindow         = 10 * time.Minute
	defaultOTPMaxPerWindow   = 5
	defaultLoginMaxPerMinute = 5
	defaultSMTPPort          = "587"
	devJWTSecret             = "dev-secret-change-me-dev-secret-change-me"
	minJWTSecretLen          = 32
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	CORSOrigins    string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	JWTSecret         string
	SessionTTL        time.Duration
	LoginMaxPerMinute int
	GoogleClientID    string

	OTP  OTPConfig
	SMTP SMTPConfig
	SMS  SMSConfig
}

// OTPConfig governs the verification code lifecycle and send limits.
type OTPConfig struct {
	TTL            time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
	Window         time.Duration
	MaxPerWindow   int
}

// SMTPConfig holds outbound mail settings. Host empty disables email delivery.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// Enabled reports whether an SMTP relay is configured.
func (s SMTPConfig) Enabled() bool { return s.Host != "" }

// SMSConfig holds credentials for the SMS providers tried in order.
type SMSConfig struct {
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	GatewayURL       string
	GatewayAPIKey    string
	GatewaySender    string
}

// Load reads configuration values from the environment (and an optional .env
// file) and populates a Config instance.
func Load() (Config, error) {
	// A missing .env is normal in containers; only real parse errors matter.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		AppEnv:      strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:        getEnv("PORT", defaultPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", defaultSMTPPort),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     getEnv("SMTP_FROM", os.Getenv("SMTP_USER")),
		},
		SMS: SMSConfig{
			TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			TwilioFrom:       os.Getenv("TWILIO_FROM"),
			GatewayURL:       os.Getenv("SMS_GATEWAY_URL"),
			GatewayAPIKey:    os.Getenv("SMS_GATEWAY_API_KEY"),
			GatewaySender:    os.Getenv("SMS_GATEWAY_SENDER"),
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", defaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTP.TTL, err = durationEnv("OTP_TTL", defaultOTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTP.ResendCooldown, err = durationEnv("OTP_RESEND_COOLDOWN", defaultOTPResendCooldown); err != nil {
		return Config{}, err
	}
	if cfg.OTP.Window, err = durationEnv("OTP_WINDOW", defaultOTPWindow); err != nil {
		return Config{}, err
	}
	if cfg.OTP.MaxAttempts, err = intEnv("OTP_MAX_ATTEMPTS", defaultOTPMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.OTP.MaxPerWindow, err = intEnv("OTP_MAX_PER_WINDOW", defaultOTPMaxPerWindow); err != nil {
		return Config{}, err
	}
	if cfg.LoginMaxPerMinute, err = intEnv("LOGIN_MAX_PER_MINUTE", defaultLoginMaxPerMinute); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.IsDev() {
		if c.JWTSecret == "" {
			c.JWTSecret = devJWTSecret
		}
		return nil
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if len(c.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters when APP_ENV=%s", minJWTSecretLen, c.AppEnv)
	}
	return nil
}

// IsDev reports whether the service runs in a local/development environment,
// where the in-memory store and a default signing secret are acceptable.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv reads KEY_SECONDS as an integer number of seconds first, then KEY
// as a Go duration string.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	secondsKey := key + "_SECONDS"
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}
