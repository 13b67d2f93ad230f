package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "AdmissionPortal"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultAppURL         = "http://localhost:3000"
	defaultFromEmail      = "no-reply@example.com"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultOTPTTL         = 300 * time.Second
	defaultResetTokenTTL  = 900 * time.Second
	defaultAccessTokenTTL = 30 * time.Minute
	defaultRefreshTTL     = 7 * 24 * time.Hour
	devJWTSecret          = "dev-only-jwt-secret"
	defaultReapInterval   = time.Minute
	defaultMaxAttempts    = 5
	defaultSendPerMinute  = 5

	// BackendMemory keeps credentials in the process.
	BackendMemory = "memory"
	// BackendRedis keeps credentials in Redis so several replicas share them.
	BackendRedis = "redis"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	LogFormat      string
	AppURL         string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	CredentialBackend string
	OTPTTL            time.Duration
	ResetTokenTTL     time.Duration
	OTPMaxAttempts    int
	ReapInterval      time.Duration
	OTPSendPerMinute  int

	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	SMTP SMTPConfig
}

// SMTPConfig holds outbound mail settings. An empty Host disables SMTP delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether every setting needed to dial the relay is present.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.Port != 0 && s.Username != "" && s.Password != ""
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            getEnv("APP_ENV", defaultAppEnv),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		AppURL:            strings.TrimRight(getEnv("APP_URL", defaultAppURL), "/"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		CredentialBackend: strings.ToLower(getEnv("CREDENTIAL_BACKEND", BackendMemory)),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RefreshSecret:     os.Getenv("REFRESH_SECRET"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     getEnv("FROM_EMAIL", defaultFromEmail),
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = durationEnv("OTP_TTL", defaultOTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.ResetTokenTTL, err = durationEnv("RESET_TOKEN_TTL", defaultResetTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", defaultAccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", defaultRefreshTTL); err != nil {
		return Config{}, err
	}
	if cfg.ReapInterval, err = durationEnv("CREDENTIAL_REAP_INTERVAL", defaultReapInterval); err != nil {
		return Config{}, err
	}
	if cfg.OTPMaxAttempts, err = intEnv("OTP_MAX_ATTEMPTS", defaultMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.OTPSendPerMinute, err = intEnv("OTP_SEND_PER_MINUTE", defaultSendPerMinute); err != nil {
		return Config{}, err
	}
	if cfg.SMTP.Port, err = intEnv("SMTP_PORT", 0); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.JWTSecret + ":refresh"
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.CredentialBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when CREDENTIAL_BACKEND=%s", BackendRedis)
		}
	default:
		return fmt.Errorf("invalid CREDENTIAL_BACKEND %q", c.CredentialBackend)
	}

	if c.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}
	if c.OTPTTL <= 0 || c.ResetTokenTTL <= 0 {
		return fmt.Errorf("credential TTLs must be positive")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	if c.IsDev() {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", c.AppEnv)
	}
	return nil
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
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

// durationEnv accepts either KEY_SECONDS as an integer or KEY as a Go duration string.
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
	return n, nil
}
