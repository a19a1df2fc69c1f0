package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	// SecretKey signs password reset tokens.
	SecretKey string

	// ResetTokenMaxAge is how long a reset token stays valid.
	ResetTokenMaxAge time.Duration

	SessionLifetime  time.Duration
	RememberLifetime time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	// BaseURL is the externally visible address, used to build reset links.
	BaseURL string

	AvatarDir  string
	SchemaPath string
}

// NewConfig loads configuration from environment variables.
// DB_CONN and SECRET_KEY have no defaults and must be supplied.
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DBConn:           os.Getenv("DB_CONN"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		SecretKey:        os.Getenv("SECRET_KEY"),
		ResetTokenMaxAge: getEnvSeconds("RESET_TOKEN_MAX_AGE", 1800),
		SessionLifetime:  getEnvSeconds("SESSION_LIFETIME", 24*3600),
		RememberLifetime: getEnvSeconds("REMEMBER_LIFETIME", 30*24*3600),
		SMTPHost:         getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SenderEmail:      getEnv("SENDER_EMAIL", "noreply@flaskblog.local"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:8080"),
		AvatarDir:        getEnv("AVATAR_DIR", "web/static/profile_pics"),
		SchemaPath:       getEnv("SCHEMA_PATH", "migrations/schema.sql"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvSeconds(key string, defaultSec int64) time.Duration {
	sec := defaultSec
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			sec = parsed
		}
	}
	return time.Duration(sec) * time.Second
}
