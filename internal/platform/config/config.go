// Package config loads application configuration from the environment so main
// stays lean. Every value has a development default except the database URL.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config aggregates all runtime configuration for the server binary.
type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	Email    Email
	Auth     Auth
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// Database configures the Postgres pool.
type Database struct {
	URL             string        `envconfig:"DATABASE_URL" required:"true"`
	MaxConnIdleTime time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"15m"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"45m"`
}

// Redis configures the optional inventory summary cache. An empty URL
// disables caching entirely.
type Redis struct {
	URL          string        `envconfig:"REDIS_URL"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
	SummaryTTL   time.Duration `envconfig:"REDIS_SUMMARY_TTL" default:"30s"`
}

// Email configures the optional donor notification sender. An empty API key
// disables outbound email.
type Email struct {
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	FromAddress  string `envconfig:"EMAIL_FROM" default:"noreply@hemobank.local"`
}

// Auth configures token validation for donor and admin routes. Token issuance
// is owned by the external identity provider; we only verify.
type Auth struct {
	JWTSigningKey string `envconfig:"JWT_SIGNING_KEY" default:"dev-secret-key-change-in-production"`
}

// FromEnv builds a Config from environment variables with the given prefix.
func FromEnv(prefix string) (Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
