package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Tokens
	TokenSecret     string
	TokenIssuer     string
	ConfirmTokenTTL time.Duration
	ResetTokenTTL   time.Duration

	// Lockout
	LockoutMaxAttempts  int
	LockoutDuration     time.Duration
	LockoutResetCounter bool

	// Login
	UniformLoginErrors bool

	// Links
	AppBaseURL string

	// SMTP (optional)
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// Rate limiting
	RateLimitEnabled       bool
	AuthRequestsPerMinute  int
	ResetRequestsPerWindow int
	ResetWindowMinutes     int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "simple_accounts"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Token defaults
		TokenSecret:     getEnv("TOKEN_SECRET", ""),
		TokenIssuer:     getEnv("TOKEN_ISSUER", "simple-accounts"),
		ConfirmTokenTTL: getEnvDuration("CONFIRM_TOKEN_TTL", 24*time.Hour),
		ResetTokenTTL:   getEnvDuration("RESET_TOKEN_TTL", time.Hour),

		// Lockout defaults
		LockoutMaxAttempts:  getEnvInt("LOCKOUT_MAX_ATTEMPTS", 5),
		LockoutDuration:     getEnvDuration("LOCKOUT_DURATION", 15*time.Minute),
		LockoutResetCounter: getEnvBool("LOCKOUT_RESET_COUNTER", true),

		UniformLoginErrors: getEnvBool("UNIFORM_LOGIN_ERRORS", true),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),

		// SMTP (optional)
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", ""),

		// Rate limiting defaults
		RateLimitEnabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
		AuthRequestsPerMinute:  getEnvInt("AUTH_REQUESTS_PER_MINUTE", 10),
		ResetRequestsPerWindow: getEnvInt("RESET_REQUESTS_PER_WINDOW", 3),
		ResetWindowMinutes:     getEnvInt("RESET_WINDOW_MINUTES", 15),
	}

	// Validate required fields
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET is required")
	}
	if len(cfg.TokenSecret) < 32 {
		return nil, fmt.Errorf("TOKEN_SECRET must be at least 32 characters")
	}

	return cfg, nil
}

// HasSMTP returns true if an SMTP sender is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
