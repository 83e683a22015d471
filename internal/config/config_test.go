package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/ordering/framework/core"
)

func fromMap(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(fromMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StoragePostgres, cfg.Database.Driver)
	assert.Equal(t, 2*time.Second, cfg.Database.LockTimeout)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 3, cfg.Orders.RetryAttempts)
	assert.Equal(t, "ordering", cfg.NATS.SubjectPrefix)
	assert.Empty(t, cfg.Redis.Addr)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(fromMap(map[string]string{
		"SERVER_PORT":          "9090",
		"SERVER_BASE_PATH":     "/api",
		"STORAGE_DRIVER":       "memory",
		"REDIS_ADDR":           "localhost:6379",
		"QUERY_CACHE_TTL":      "1m",
		"TRACING_ENABLED":      "true",
		"TRACING_EXPORTER":     "zipkin",
		"TRACING_ENDPOINT":     "http://localhost:9411/api/v2/spans",
		"ORDER_RETRY_ATTEMPTS": "5",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "text",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, StorageMemory, cfg.Database.Driver)
	assert.Equal(t, time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "zipkin", cfg.Tracing.Exporter)
	assert.Equal(t, 5, cfg.Orders.RetryAttempts)
	assert.NotNil(t, cfg.NewLogger())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad port":        {"SERVER_PORT": "http"},
		"port range":      {"SERVER_PORT": "70000"},
		"driver":          {"STORAGE_DRIVER": "mongo"},
		"base path":       {"SERVER_BASE_PATH": "api"},
		"retry attempts":  {"ORDER_RETRY_ATTEMPTS": "0"},
		"retry delays":    {"ORDER_RETRY_INITIAL_DELAY": "1s", "ORDER_RETRY_MAX_DELAY": "10ms"},
		"duration":        {"DATABASE_LOCK_TIMEOUT": "soon"},
		"bool":            {"METRICS_ENABLED": "maybe"},
		"exporter":        {"TRACING_ENABLED": "true", "TRACING_EXPORTER": "jaeger"},
		"otlp endpoint":   {"TRACING_ENABLED": "true", "TRACING_EXPORTER": "otlp"},
		"log level":       {"LOG_LEVEL": "loud"},
		"log format":      {"LOG_FORMAT": "xml"},
		"command timeout": {"COMMAND_TIMEOUT": "0s"},
	}

	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := load(fromMap(vars))
			require.Error(t, err)
			assert.True(t, core.HasCode(err, core.ErrInvalidConfig), "got %v", err)
		})
	}
}
