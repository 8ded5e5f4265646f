package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Valid(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Empty(t, cfg.DDLFile)
	assert.Equal(t, "text", cfg.OutputFormat)
	assert.Equal(t, "none", cfg.Serve)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Positive(t, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.LoadTimeout)
	assert.Equal(t, int32(4), cfg.PoolMaxConns)
	assert.Equal(t, 30*time.Minute, cfg.PoolMaxConnLifetime)
}

func TestLoad_DDLFile(t *testing.T) {
	t.Setenv("DDL_FILE", "schema.sql")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "schema.sql", cfg.DDLFile)
}

func TestLoad_MissingSource(t *testing.T) {
	_, err := Load(Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL or DDL_FILE")
}

func TestLoad_BothSources(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("DDL_FILE", "schema.sql")

	_, err := Load(Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestLoad_EnvVars(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SCHEMAS", "public, app,")
	t.Setenv("RULES_FILE", "/tmp/rules.yaml")
	t.Setenv("OUTPUT_FORMAT", "JSON")
	t.Setenv("SERVE", "stdio")
	t.Setenv("WORKERS", "3")
	t.Setenv("LOAD_TIMEOUT", "5s")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("POOL_MAX_CONNS", "8")
	t.Setenv("POOL_MIN_CONNS", "2")
	t.Setenv("POOL_MAX_CONN_LIFETIME", "1h")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"public", "app"}, cfg.Schemas)
	assert.Equal(t, "/tmp/rules.yaml", cfg.RulesFile)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "stdio", cfg.Serve)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.LoadTimeout)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, int32(8), cfg.PoolMaxConns)
	assert.Equal(t, int32(2), cfg.PoolMinConns)
	assert.Equal(t, time.Hour, cfg.PoolMaxConnLifetime)
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"log level", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"output format", "OUTPUT_FORMAT", "yaml", "OUTPUT_FORMAT"},
		{"serve", "SERVE", "http", "SERVE"},
		{"workers zero", "WORKERS", "0", "WORKERS"},
		{"workers not a number", "WORKERS", "many", "WORKERS"},
		{"load timeout", "LOAD_TIMEOUT", "soon", "LOAD_TIMEOUT"},
		{"otel", "OTEL_ENABLED", "maybe", "OTEL_ENABLED"},
		{"pool max", "POOL_MAX_CONNS", "0", "POOL_MAX_CONNS"},
		{"pool min", "POOL_MIN_CONNS", "-1", "POOL_MIN_CONNS"},
		{"pool lifetime", "POOL_MAX_CONN_LIFETIME", "forever", "POOL_MAX_CONN_LIFETIME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/test")
			t.Setenv(tt.key, tt.value)

			_, err := Load(Overrides{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_PoolMinExceedsMax(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("POOL_MAX_CONNS", "2")
	t.Setenv("POOL_MIN_CONNS", "3")

	_, err := Load(Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not exceed")
}

func TestLoad_OverridesWin(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("OUTPUT_FORMAT", "json")
	t.Setenv("SCHEMAS", "public")

	ddl := "schema.sql"
	empty := ""
	format := "dot"
	schemas := "sales,hr"
	workers := 2
	level := "warn"

	cfg, err := Load(Overrides{
		DatabaseURL:  &empty,
		DDLFile:      &ddl,
		OutputFormat: &format,
		Schemas:      &schemas,
		Workers:      &workers,
		LogLevel:     &level,
		Output:       "out.dot",
		AuditLog:     "runs.ndjson",
		OTelEnabled:  true,
	})
	require.NoError(t, err)

	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "schema.sql", cfg.DDLFile)
	assert.Equal(t, "dot", cfg.OutputFormat)
	assert.Equal(t, []string{"sales", "hr"}, cfg.Schemas)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "out.dot", cfg.Output)
	assert.Equal(t, "runs.ndjson", cfg.AuditLog)
	assert.True(t, cfg.OTelEnabled)
}

func TestLoad_InvalidOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	zero := 0
	negative := int32(-1)
	badLevel := "loud"

	tests := []struct {
		name string
		o    Overrides
	}{
		{"workers", Overrides{Workers: &zero}},
		{"pool max", Overrides{PoolMaxConns: new(int32)}},
		{"pool min", Overrides{PoolMinConns: &negative}},
		{"log level", Overrides{LogLevel: &badLevel}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.o)
			assert.Error(t, err)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warning ", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
