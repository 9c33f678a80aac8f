package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the application configuration, populated from environment
// variables.
type Config struct {
	Environment string `env:"ENVIRONMENT, default=development"`
	ServerPort  int    `env:"SERVER_PORT, default=8080"`
	LogLevel    string `env:"LOG_LEVEL, default=info"`

	Database DatabaseConfig `env:", prefix=DB_"`

	JWTSecret   string        `env:"JWT_SECRET"`
	JWTIssuer   string        `env:"JWT_ISSUER, default=rentwheels"`
	JWTValidity time.Duration `env:"JWT_VALIDITY, default=24h"`

	RedisURL   string        `env:"REDIS_URL"`
	CatalogTTL time.Duration `env:"CATALOG_TTL, default=30s"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL, default=1h"`

	RateLimitPerMinute  int `env:"RATE_LIMIT_PER_MINUTE, default=120"`
	AuthRateLimitPerMin int `env:"AUTH_RATE_LIMIT_PER_MINUTE, default=10"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:5173,http://localhost:3000"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host            string        `env:"HOST, default=localhost"`
	Port            int           `env:"PORT, default=5432"`
	User            string        `env:"USER, default=rentwheels"`
	Password        string        `env:"PASSWORD, default=dev"`
	Name            string        `env:"NAME, default=rentwheels"`
	SSLMode         string        `env:"SSLMODE, default=disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS, default=25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME, default=5m"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.Environment == "production" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	return &cfg, nil
}
