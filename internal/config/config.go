package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// TrustedProxies lists proxy addresses allowed to set X-Forwarded-For.
	// Empty means the socket peer address is the client IP.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Security
	TokenSigningKey string `envconfig:"TOKEN_SIGNING_KEY" required:"true"`
	TokenIssuer     string `envconfig:"TOKEN_ISSUER" default:"partnerhub-gateway"`
	AdminJWTSecret  string `envconfig:"ADMIN_JWT_SECRET" required:"true"`

	// Webhooks
	WebhookTimeout             time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"30s"`
	WebhookMaxAttempts         int           `envconfig:"WEBHOOK_MAX_ATTEMPTS" default:"5"`
	WebhookDisableThreshold    int           `envconfig:"WEBHOOK_DISABLE_THRESHOLD" default:"5"`
	WebhookReconcileInterval   time.Duration `envconfig:"WEBHOOK_RECONCILE_INTERVAL" default:"1m"`
	MaxSubscriptionsPerPartner int           `envconfig:"MAX_SUBSCRIPTIONS_PER_PARTNER" default:"10"`

	// Background work
	RateLimitSweepInterval time.Duration `envconfig:"RATE_LIMIT_SWEEP_INTERVAL" default:"5m"`
	TaskQueueSize          int           `envconfig:"TASK_QUEUE_SIZE" default:"1000"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
