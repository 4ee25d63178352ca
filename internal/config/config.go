// Package config loads application settings from environment
// variables, 12-factor style. Every knob has a default except the two
// backing-store URLs.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting. The API limit is per token, the login limit is
	// per client IP (login runs before any token exists).
	RateLimitAPIEnabled   bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitAPIRPM       int  `env:"RATE_LIMIT_API_RPM" envDefault:"240"`
	RateLimitAPIBurst     int  `env:"RATE_LIMIT_API_BURST" envDefault:"60"`
	RateLimitLoginEnabled bool `env:"RATE_LIMIT_LOGIN_ENABLED" envDefault:"true"`
	RateLimitLoginRPM     int  `env:"RATE_LIMIT_LOGIN_RPM" envDefault:"10"`
	RateLimitLoginBurst   int  `env:"RATE_LIMIT_LOGIN_BURST" envDefault:"5"`

	// Audit pipeline
	AuditEnabled      bool          `env:"AUDIT_ENABLED" envDefault:"true"`
	AuditBatchSize    int           `env:"AUDIT_BATCH_SIZE" envDefault:"500"`
	AuditBlockTimeout time.Duration `env:"AUDIT_BLOCK_TIMEOUT" envDefault:"5s"`

	// Webhook delivery. Allowing insecure targets (plain HTTP, private
	// addresses) is for local development only.
	WebhookEnabled              bool          `env:"WEBHOOK_ENABLED" envDefault:"true"`
	WebhookBatchSize            int           `env:"WEBHOOK_BATCH_SIZE" envDefault:"50"`
	WebhookPollInterval         time.Duration `env:"WEBHOOK_POLL_INTERVAL" envDefault:"5s"`
	WebhookAllowInsecureTargets bool          `env:"WEBHOOK_ALLOW_INSECURE_TARGETS" envDefault:"false"`

	// CORS: comma-separated allowed origins, empty denies all
	// cross-origin access.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate rejects numeric values the server cannot run with. A typo
// in these would otherwise only surface once traffic arrives.
func (c *Config) Validate() error {
	if c.AppPort < 1 || c.AppPort > 65535 {
		return fmt.Errorf("APP_PORT %d is out of range", c.AppPort)
	}
	if c.AuditBatchSize < 1 {
		return fmt.Errorf("AUDIT_BATCH_SIZE must be positive, got %d", c.AuditBatchSize)
	}
	if c.WebhookBatchSize < 1 {
		return fmt.Errorf("WEBHOOK_BATCH_SIZE must be positive, got %d", c.WebhookBatchSize)
	}
	if c.MaxRequestBodySize < 1 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be positive, got %d", c.MaxRequestBodySize)
	}
	return nil
}

// Load parses environment variables into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
