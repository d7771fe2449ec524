package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envMap turns a map into a getenv function.
func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"JWT_SECRET": "test-secret-at-least-16-chars!!",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "data/recipebox.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"PORT":                 "9090",
		"DB_DRIVER":            "Postgres",
		"DATABASE_URL":         "postgres://u:p@localhost/recipes?sslmode=disable",
		"JWT_SECRET":           "test-secret-at-least-16-chars!!",
		"TOKEN_TTL":            "2h",
		"REDIS_URL":            "redis://localhost:6379/0",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example,",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "JSON",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_Errors(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{"JWT_SECRET": "test-secret-at-least-16-chars!!"}
	}

	tests := []struct {
		name string
		set  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"bad port", map[string]string{"PORT": "eighty"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"bad ttl", map[string]string{"TOKEN_TTL": "forever"}},
		{"negative ttl", map[string]string{"TOKEN_TTL": "-1h"}},
		{"unknown driver", map[string]string{"DB_DRIVER": "mongo"}},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := base()
			for k, v := range tt.set {
				env[k] = v
			}
			_, err := load(envMap(env))
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Config{LogLevel: slog.LevelWarn, LogFormat: "json"}
	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}
