// Package config loads server configuration from environment variables.
//
// Every setting has a default except JWT_SECRET, which must be provided.
// Load reads the environment once at startup; the resulting Config is passed
// by value into server.New and never re-read.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds everything the server needs to start.
type Config struct {
	Port int

	// DBDriver selects the storage dialect: "sqlite" (default) or "postgres".
	DBDriver string
	// DBPath is the SQLite file path. Ignored for postgres.
	DBPath string
	// DatabaseURL is the postgres connection string. Ignored for sqlite.
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	// RedisURL enables the Redis-backed token denylist when set.
	// Empty means revoked tokens are tracked in memory.
	RedisURL string

	CORSAllowedOrigins []string

	LogLevel  slog.Level
	LogFormat string // "text" or "json"
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

// load is Load with an injectable lookup so tests don't touch the real env.
func load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:               8080,
		DBDriver:           DriverSQLite,
		DBPath:             "data/recipebox.db",
		TokenTTL:           24 * time.Hour,
		CORSAllowedOrigins: []string{"*"},
		LogLevel:           slog.LevelInfo,
		LogFormat:          "text",
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}

	if v := getenv("DB_DRIVER"); v != "" {
		cfg.DBDriver = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	cfg.DatabaseURL = getenv("DATABASE_URL")

	cfg.JWTSecret = getenv("JWT_SECRET")
	if v := getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid TOKEN_TTL %q: %w", v, err)
		}
		cfg.TokenTTL = ttl
	}

	cfg.RedisURL = getenv("REDIS_URL")

	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", v, err)
		}
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field rules. All problems are reported together.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DBDriver))
	}

	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 characters"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// NewLogger builds the process logger described by the config.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
