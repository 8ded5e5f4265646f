package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Catalog source. Exactly one must be set.
	DatabaseURL string
	DDLFile     string

	// Schema filtering.
	Schemas   []string // empty means all non-system schemas
	RulesFile string   // optional path to rules YAML

	// Analysis.
	Workers     int           // extraction and matching pool size
	LoadTimeout time.Duration // bound on one catalog load plus analysis

	// Output.
	OutputFormat string // "text" (default), "json" or "dot"
	Serve        string // "none" (default) or "stdio"

	// Logging.
	LogLevel slog.Level

	// Connection pool.
	PoolMaxConns        int32         // default: 4
	PoolMinConns        int32         // default: 0
	PoolMaxConnLifetime time.Duration // default: 30m

	// Observability.
	OTelEnabled bool // enable OpenTelemetry tracing and metrics

	// CLI-only fields (not settable via env vars).
	Output   string // report path; stdout when empty, skipped when serving without it
	AuditLog string // path to NDJSON run log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	DatabaseURL  *string
	DDLFile      *string
	Schemas      *string
	RulesFile    *string
	LogLevel     *string
	OutputFormat *string
	Serve        *string
	Workers      *int
	LoadTimeout  *time.Duration
	OTelEnabled  bool
	Output       string
	AuditLog     string

	// Connection pool overrides.
	PoolMaxConns        *int32
	PoolMinConns        *int32
	PoolMaxConnLifetime *time.Duration
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		Workers:             runtime.GOMAXPROCS(0),
		LoadTimeout:         time.Minute,
		OutputFormat:        "text",
		Serve:               "none",
		LogLevel:            slog.LevelInfo,
		PoolMaxConns:        4,
		PoolMinConns:        0,
		PoolMaxConnLifetime: 30 * time.Minute,
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.DDLFile = os.Getenv("DDL_FILE")
	cfg.RulesFile = os.Getenv("RULES_FILE")

	if v := os.Getenv("SCHEMAS"); v != "" {
		cfg.Schemas = splitList(v)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	if v := os.Getenv("OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("SERVE"); v != "" {
		cfg.Serve = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid WORKERS value %q: must be a positive integer", v)
		}
		cfg.Workers = n
	}

	if v := os.Getenv("LOAD_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LOAD_TIMEOUT value %q: %w", v, err)
		}
		cfg.LoadTimeout = d
	}

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}

	if err := loadPoolEnvVars(cfg); err != nil {
		return err
	}

	return nil
}

// loadPoolEnvVars reads connection pool environment variables.
func loadPoolEnvVars(cfg *Config) error {
	if v := os.Getenv("POOL_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid POOL_MAX_CONNS value %q: must be a positive integer", v)
		}
		cfg.PoolMaxConns = int32(n)
	}
	if v := os.Getenv("POOL_MIN_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid POOL_MIN_CONNS value %q: must be a non-negative integer", v)
		}
		cfg.PoolMinConns = int32(n)
	}
	if v := os.Getenv("POOL_MAX_CONN_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POOL_MAX_CONN_LIFETIME value %q: %w", v, err)
		}
		cfg.PoolMaxConnLifetime = d
	}
	return nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.DDLFile != nil {
		cfg.DDLFile = *o.DDLFile
	}
	if o.Schemas != nil {
		cfg.Schemas = splitList(*o.Schemas)
	}
	if o.RulesFile != nil {
		cfg.RulesFile = *o.RulesFile
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.OutputFormat != nil {
		cfg.OutputFormat = strings.ToLower(strings.TrimSpace(*o.OutputFormat))
	}
	if o.Serve != nil {
		cfg.Serve = strings.ToLower(strings.TrimSpace(*o.Serve))
	}
	if o.Workers != nil {
		if *o.Workers <= 0 {
			return fmt.Errorf("invalid --workers value: must be a positive integer")
		}
		cfg.Workers = *o.Workers
	}
	if o.LoadTimeout != nil {
		cfg.LoadTimeout = *o.LoadTimeout
	}

	if err := applyPoolOverrides(cfg, o); err != nil {
		return err
	}

	cfg.Output = o.Output
	cfg.AuditLog = o.AuditLog
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	return nil
}

// applyPoolOverrides applies connection pool CLI flag overrides.
func applyPoolOverrides(cfg *Config, o Overrides) error {
	if o.PoolMaxConns != nil {
		if *o.PoolMaxConns <= 0 {
			return fmt.Errorf("invalid --pool-max-conns value: must be a positive integer")
		}
		cfg.PoolMaxConns = *o.PoolMaxConns
	}
	if o.PoolMinConns != nil {
		if *o.PoolMinConns < 0 {
			return fmt.Errorf("invalid --pool-min-conns value: must be a non-negative integer")
		}
		cfg.PoolMinConns = *o.PoolMinConns
	}
	if o.PoolMaxConnLifetime != nil {
		cfg.PoolMaxConnLifetime = *o.PoolMaxConnLifetime
	}
	return nil
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	switch {
	case cfg.DatabaseURL == "" && cfg.DDLFile == "":
		return fmt.Errorf("a catalog source is required: set DATABASE_URL or DDL_FILE (or --database-url / --ddl-file)")
	case cfg.DatabaseURL != "" && cfg.DDLFile != "":
		return fmt.Errorf("DATABASE_URL and DDL_FILE are mutually exclusive")
	}

	switch cfg.OutputFormat {
	case "text", "json", "dot":
	default:
		return fmt.Errorf("invalid OUTPUT_FORMAT value %q: must be \"text\", \"json\" or \"dot\"", cfg.OutputFormat)
	}

	switch cfg.Serve {
	case "none", "stdio":
	default:
		return fmt.Errorf("invalid SERVE value %q: must be \"none\" or \"stdio\"", cfg.Serve)
	}

	if cfg.LoadTimeout <= 0 {
		return fmt.Errorf("LOAD_TIMEOUT must be positive, got %s", cfg.LoadTimeout)
	}

	if cfg.PoolMinConns > cfg.PoolMaxConns {
		return fmt.Errorf("POOL_MIN_CONNS (%d) must not exceed POOL_MAX_CONNS (%d)", cfg.PoolMinConns, cfg.PoolMaxConns)
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
