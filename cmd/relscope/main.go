package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relscope/relscope/internal/adapter/ddl"
	"github.com/relscope/relscope/internal/adapter/mcp"
	"github.com/relscope/relscope/internal/adapter/postgres"
	"github.com/relscope/relscope/internal/adapter/render"
	"github.com/relscope/relscope/internal/adapter/rules"
	"github.com/relscope/relscope/internal/audit"
	"github.com/relscope/relscope/internal/config"
	"github.com/relscope/relscope/internal/core/association"
	"github.com/relscope/relscope/internal/core/port"
	"github.com/relscope/relscope/internal/core/service"
	"github.com/relscope/relscope/internal/telemetry"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

const serviceName = "relscope"

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags maps command-line flags onto config overrides. Only flags that
// were actually given become non-nil.
func parseFlags(args []string) (config.Overrides, error) {
	var o config.Overrides
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)

	databaseURL := fs.String("database-url", "", "PostgreSQL connection URL (env DATABASE_URL)")
	ddlFile := fs.String("ddl-file", "", "SQL file with CREATE TABLE statements (env DDL_FILE)")
	schemas := fs.String("schemas", "", "comma-separated schemas to analyze (env SCHEMAS)")
	rulesFile := fs.String("rules-file", "", "naming, inference and context rules YAML (env RULES_FILE)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	format := fs.String("format", "", "report format: text, json or dot (env OUTPUT_FORMAT)")
	serve := fs.String("serve", "", "none or stdio (env SERVE)")
	workers := fs.Int("workers", 0, "analysis worker count (env WORKERS)")
	loadTimeout := fs.Duration("load-timeout", 0, "bound on the initial load and analysis (env LOAD_TIMEOUT)")
	poolMaxConns := fs.Int("pool-max-conns", 0, "maximum pool connections (env POOL_MAX_CONNS)")
	poolMinConns := fs.Int("pool-min-conns", 0, "minimum pool connections (env POOL_MIN_CONNS)")
	poolMaxConnLifetime := fs.Duration("pool-max-conn-lifetime", 0, "maximum connection lifetime (env POOL_MAX_CONN_LIFETIME)")
	fs.BoolVar(&o.OTelEnabled, "otel", false, "export traces and metrics over OTLP")
	fs.StringVar(&o.Output, "output", "", "write the report to this file instead of stdout")
	fs.StringVar(&o.AuditLog, "audit-log", "", "append one NDJSON line per analysis run to this file")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "database-url":
			o.DatabaseURL = databaseURL
		case "ddl-file":
			o.DDLFile = ddlFile
		case "schemas":
			o.Schemas = schemas
		case "rules-file":
			o.RulesFile = rulesFile
		case "log-level":
			o.LogLevel = logLevel
		case "format":
			o.OutputFormat = format
		case "serve":
			o.Serve = serve
		case "workers":
			o.Workers = workers
		case "load-timeout":
			o.LoadTimeout = loadTimeout
		case "pool-max-conns":
			n := int32(*poolMaxConns)
			o.PoolMaxConns = &n
		case "pool-min-conns":
			n := int32(*poolMinConns)
			o.PoolMinConns = &n
		case "pool-max-conn-lifetime":
			o.PoolMaxConnLifetime = poolMaxConnLifetime
		}
	})
	return o, nil
}

func run(args []string, stdout io.Writer) error {
	overrides, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr; stdout carries the report or the MCP stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	source := cfg.DDLFile
	if cfg.DatabaseURL != "" {
		source = redactDSN(cfg.DatabaseURL)
	}
	logger.Info("starting relscope",
		slog.String("version", version),
		slog.String("source", source),
		slog.Any("schemas", cfg.Schemas),
		slog.String("format", cfg.OutputFormat),
		slog.String("serve", cfg.Serve),
		slog.Int("workers", cfg.Workers),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var provider *telemetry.Provider
	if cfg.OTelEnabled {
		provider, err = telemetry.Init(ctx, telemetry.Settings{
			ServiceName:   serviceName,
			Version:       version,
			CatalogSource: sourceKind(cfg),
			Schemas:       cfg.Schemas,
		})
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown", slog.String("error", err.Error()))
			}
		}()
		logger.Info("telemetry enabled")
	}
	tracer := provider.Tracer()
	var inst port.Instrumentation = provider.Instruments()

	loader, closeLoader, err := newLoader(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLoader()

	var opts association.Options
	if cfg.RulesFile != "" {
		r, err := rules.LoadFromFile(cfg.RulesFile)
		if err != nil {
			return fmt.Errorf("loading rules: %w", err)
		}
		if opts, err = r.Options(postgres.TypesCompatible); err != nil {
			return fmt.Errorf("loading rules: %w", err)
		}
		loader = rules.NewContextLoader(loader, r)
		logger.Info("rules loaded", slog.String("file", cfg.RulesFile))
	}
	opts.Workers = cfg.Workers
	opts.Logger = logger

	analyzer, err := association.NewAnalyzer(opts)
	if err != nil {
		return fmt.Errorf("configuring analyzer: %w", err)
	}

	var recorder port.RunRecorder = audit.NoopRecorder{}
	if cfg.AuditLog != "" {
		runLog, err := audit.NewRunLog(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("opening run log: %w", err)
		}
		defer runLog.Close()
		recorder = runLog
	}

	analysis := service.NewAnalysisService(loader, analyzer, recorder, logger, tracer, inst)
	catalog := service.NewCatalogService(analysis)

	loadCtx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
	snap, err := catalog.Refresh(loadCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("analyzing catalog: %w", err)
	}

	if cfg.Serve == "none" || cfg.Output != "" {
		if err := writeReport(cfg, snap, stdout); err != nil {
			return err
		}
	}
	if cfg.Serve == "none" {
		return nil
	}

	mcpServer := mcp.NewServer(version, catalog, logger, tracer, inst)
	stdioServer := mcpserver.NewStdioServer(mcpServer)

	logger.Info("serving MCP over stdio")
	if err := stdioServer.Listen(ctx, os.Stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// sourceKind names the catalog source without exposing connection details.
func sourceKind(cfg *config.Config) string {
	if cfg.DatabaseURL != "" {
		return "postgres"
	}
	return "ddl"
}

// newLoader picks the catalog source. The returned func releases it.
func newLoader(ctx context.Context, cfg *config.Config) (port.CatalogLoader, func(), error) {
	if cfg.DDLFile != "" {
		return ddl.NewLoader(cfg.DDLFile, cfg.Schemas), func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{
		MaxConns:        cfg.PoolMaxConns,
		MinConns:        cfg.PoolMinConns,
		MaxConnLifetime: cfg.PoolMaxConnLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	return postgres.NewLoader(pool, cfg.Schemas), pool.Close, nil
}

func writeReport(cfg *config.Config, snap *service.Snapshot, stdout io.Writer) (err error) {
	renderer, err := render.New(cfg.OutputFormat)
	if err != nil {
		return err
	}

	w := stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing report file: %w", cerr)
			}
		}()
		w = f
	}
	return renderer.Render(w, snap.Catalog, snap.Result)
}

// redactDSN masks the password of a connection URL for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
