package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	AppEnv   string
	DBDSN    string
	LogFile  string
	LogLevel string

	AdminPassword     string
	AdminPasswordHash string // bcrypt; wins over AdminPassword when set
	JWTSecret         string
	SessionTTL        time.Duration

	CORSAllowOrigins string

	Supplier SupplierConfig
	SMTP     SMTPConfig
}

type SupplierConfig struct {
	BaseURL     string
	Timeout     time.Duration
	TokenBuffer time.Duration
	Backoff     BackoffConfig
}

type BackoffConfig struct {
	Base        time.Duration
	Multiplier  float64
	Cap         time.Duration
	MaxAttempts int
	RetryAfter  time.Duration
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func (c Config) IsDevelopment() bool { return c.AppEnv == "dev" || c.AppEnv == "development" }

// Load reads .env (if present) and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:     getEnv("PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "dev"),
		DBDSN:    getEnv("DB_DSN", "storefront.db"),
		LogFile:  getEnv("LOG_FILE", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		SessionTTL:        getEnvDuration("ADMIN_SESSION_TTL", 24*time.Hour),

		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),

		Supplier: SupplierConfig{
			BaseURL:     strings.TrimRight(getEnv("SUPPLIER_BASE_URL", "https://developers.cjdropshipping.com/api2.0/v1"), "/"),
			Timeout:     getEnvDuration("SUPPLIER_TIMEOUT", 30*time.Second),
			TokenBuffer: getEnvDuration("SUPPLIER_TOKEN_BUFFER", time.Hour),
			Backoff: BackoffConfig{
				Base:        getEnvDuration("SUPPLIER_BACKOFF_BASE", time.Minute),
				Multiplier:  getEnvFloat("SUPPLIER_BACKOFF_MULTIPLIER", 2),
				Cap:         getEnvDuration("SUPPLIER_BACKOFF_CAP", 5*time.Minute),
				MaxAttempts: getEnvInt("SUPPLIER_MAX_ATTEMPTS", 3),
				RetryAfter:  getEnvDuration("SUPPLIER_RETRY_AFTER", 300*time.Second),
			},
		},

		SMTP: SMTPConfig{
			Host: getEnv("SMTP_HOST", ""),
			Port: getEnvInt("SMTP_PORT", 587),
			User: getEnv("SMTP_USER", ""),
			Pass: getEnv("SMTP_PASS", ""),
			From: getEnv("SMTP_FROM", "noreply@storefront.local"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
