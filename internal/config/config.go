// Package config loads the server settings from the environment.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    slog.Error("Invalid configuration", "error", err)
//	    os.Exit(1)
//	}
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreDynamo = "dynamo"
)

// Broker backends.
const (
	BrokerMemory = "memory"
	BrokerRedis  = "redis"
)

// MinSecretLength is the shortest accepted JWT signing secret.
const MinSecretLength = 32

// Config holds all runtime configuration for the group store server.
type Config struct {
	// Server settings
	Port     int    `env:"PORT"      envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Group storage
	StoreBackend    string `env:"STORE_BACKEND"     envDefault:"sqlite"`
	DBPath          string `env:"DB_PATH"           envDefault:"./data/meshimatch.db"`
	DynamoTable     string `env:"DYNAMO_TABLE"      envDefault:"meshimatch-groups"`
	DynamoCodeIndex string `env:"DYNAMO_CODE_INDEX" envDefault:"code-index"`
	AWSRegion       string `env:"AWS_REGION"`

	// Change broker for WatchGroup streams
	BrokerBackend string `env:"BROKER_BACKEND" envDefault:"memory"`
	RedisURL      string `env:"REDIS_URL"`

	// Identity tokens
	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"720h"`

	// Cross-Origin Resource Sharing
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load parses environment variables into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and settings a backend needs but lacks.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case StoreSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite store"))
		}
	case StoreDynamo:
		if c.DynamoTable == "" {
			errs = append(errs, errors.New("DYNAMO_TABLE is required for the dynamo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.BrokerBackend {
	case BrokerMemory:
	case BrokerRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis broker"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BROKER_BACKEND %q", c.BrokerBackend))
	}

	if len(c.JWTSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", MinSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
