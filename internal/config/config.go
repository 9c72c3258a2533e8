package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Phone    PhoneConfig
	Mail     MailConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        string
	CORSOrigins []string
	SeedFile    string // optional YAML file with initial admin accounts
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string // sqlite path or postgres:// URL
}

// RedisConfig holds Redis configuration for the task queue
type RedisConfig struct {
	Address string
}

// AuthConfig holds token issuing configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	ResetTTL  time.Duration
	// Cron expression controlling expired reset-token cleanup
	ResetCleanupSchedule string
}

// PhoneConfig holds the phone identity provider configuration
type PhoneConfig struct {
	// Firebase project ID used to validate issuer/audience of phone
	// ID tokens. Empty disables phone login.
	ProjectID string
	// API key for the client-side OTP REST calls (CLI only)
	APIKey string
}

// MailConfig holds outbound email configuration
type MailConfig struct {
	SMTPHost string
	SMTPPort string
	Username string
	Password string
	From     string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := &Config{
		Server: ServerConfig{
			Port:        getenv("PORT", "8080"),
			CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),
			SeedFile:    os.Getenv("SEED_FILE"),
		},
		Database: DatabaseConfig{
			URL: getenv("DATABASE_URL", "academy.sqlite"),
		},
		Redis: RedisConfig{
			Address: getenv("REDIS_ADDRESS", "localhost:6379"),
		},
		Auth: AuthConfig{
			JWTSecret:            os.Getenv("JWT_SECRET"),
			TokenTTL:             getenvDuration("TOKEN_TTL_MINUTES", 7*24*60),
			ResetTTL:             getenvDuration("RESET_TOKEN_TTL_MINUTES", 30),
			ResetCleanupSchedule: getenv("RESET_CLEANUP_SCHEDULE", "0 * * * *"),
		},
		Phone: PhoneConfig{
			ProjectID: os.Getenv("FIREBASE_PROJECT_ID"),
			APIKey:    os.Getenv("FIREBASE_API_KEY"),
		},
		Mail: MailConfig{
			SMTPHost: os.Getenv("SMTP_HOST"),
			SMTPPort: getenv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("MAIL_FROM", "no-reply@vectorskillacademy.com"),
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallbackMinutes int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return time.Duration(fallbackMinutes) * time.Minute
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
