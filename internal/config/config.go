// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server's runtime configuration
type Config struct {
	HTTPHost        string        `env:"TOURNEY_HTTP_HOST"`
	HTTPPort        int           `env:"TOURNEY_HTTP_PORT"        envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"TOURNEY_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"TOURNEY_LOG_LEVEL"        envDefault:"info"`

	// Storage selects the backend: memory, redis, sqlite or postgres
	Storage     string `env:"TOURNEY_STORAGE"       envDefault:"memory"`
	RedisURL    string `env:"TOURNEY_REDIS_URL"`
	SQLitePath  string `env:"TOURNEY_SQLITE_PATH"   envDefault:"tourney.db"`
	PostgresDSN string `env:"TOURNEY_POSTGRES_DSN"`

	JWTSecret string        `env:"TOURNEY_JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOURNEY_TOKEN_TTL" envDefault:"24h"`

	// Bootstrap admin account, created at startup when all three are set
	AdminUsername string `env:"TOURNEY_ADMIN_USERNAME"`
	AdminEmail    string `env:"TOURNEY_ADMIN_EMAIL"`
	AdminPassword string `env:"TOURNEY_ADMIN_PASSWORD"`
}

// Load parses the process environment
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("TOURNEY_JWT_SECRET is required")
	}
	switch c.Storage {
	case "memory", "sqlite":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("TOURNEY_REDIS_URL is required when TOURNEY_STORAGE=redis")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("TOURNEY_POSTGRES_DSN is required when TOURNEY_STORAGE=postgres")
		}
	default:
		return fmt.Errorf("invalid TOURNEY_STORAGE %q: must be memory, redis, sqlite or postgres", c.Storage)
	}
	return nil
}

// HasAdmin reports whether a bootstrap admin account is configured
func (c Config) HasAdmin() bool {
	return c.AdminUsername != "" && c.AdminEmail != "" && c.AdminPassword != ""
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
