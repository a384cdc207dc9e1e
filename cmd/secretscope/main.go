// Package main is the entry point for the secretscope CLI. It resolves the
// requested secrets, materializes them as ephemeral files, runs the given
// command with the file paths exported in the environment, and removes every
// artifact when the command exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blueberrycongee/secretscope"
	"github.com/blueberrycongee/secretscope/internal/config"
	"github.com/blueberrycongee/secretscope/internal/observability"
	"github.com/blueberrycongee/secretscope/pkg/source"
	"github.com/blueberrycongee/secretscope/pkg/source/awssm"
	"github.com/blueberrycongee/secretscope/pkg/source/env"
	"github.com/blueberrycongee/secretscope/pkg/source/file"
	"github.com/blueberrycongee/secretscope/pkg/source/postgres"
	"github.com/blueberrycongee/secretscope/pkg/source/redis"
	"github.com/blueberrycongee/secretscope/pkg/source/s3"
	"github.com/blueberrycongee/secretscope/pkg/source/vault"
)

// stringList collects repeated flag values.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var secrets stringList
	configPath := flag.String("config", "", "path to configuration file")
	flag.Var(&secrets, "secret", "secret name to resolve (repeatable), e.g. env://DB_PASSWORD")
	flag.Usage = usage
	flag.Parse()

	argv := flag.Args()
	if len(secrets) == 0 || len(argv) == 0 {
		usage()
		return 2
	}

	cfg, cfgManager, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "secretscope:", err)
		return 1
	}

	logger := buildLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfgManager != nil {
		if err := cfgManager.Watch(ctx); err != nil {
			logger.Warn("config hot-reload disabled", "error", err)
		}
	}

	mgr, err := buildSources(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize secret sources", "error", err)
		return 1
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			logger.Warn("source shutdown error", "error", err)
		}
	}()

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Metrics, logger)
	}

	// Tracing and OTel telemetry share the OTLP settings from the config.
	tracerProvider, otelMetrics, otelLogs := initTelemetry(ctx, cfg, logger)
	defer shutdownTelemetry(tracerProvider, otelMetrics, otelLogs, logger)

	opts := []secretscope.Option{
		secretscope.WithLogger(logger),
	}
	if cfg.Session.ScratchDir != "" {
		opts = append(opts, secretscope.WithScratchDir(cfg.Session.ScratchDir))
	}
	if cfg.Session.EnvKey != "" {
		opts = append(opts, secretscope.WithEnvKey(cfg.Session.EnvKey))
	}
	if cfg.Session.Separator != "" {
		opts = append(opts, secretscope.WithSeparator(cfg.Session.Separator))
	}
	if tracerProvider != nil {
		opts = append(opts, secretscope.WithTracer(tracerProvider.Tracer()))
	}

	session, err := secretscope.New(mgr, opts...)
	if err != nil {
		logger.Error("failed to create session", "error", err)
		return 1
	}

	start := time.Now()
	code, err := secretscope.RunCommand(ctx, session, secrets, argv, secretscope.ExecConfig{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	elapsed := time.Since(start)

	recordRun(ctx, otelMetrics, otelLogs, len(secrets), elapsed, err)

	if err != nil {
		logger.Error("command failed", "error", err, "elapsed", elapsed)
		// A child that ran and failed owns the exit code; everything else
		// (resolution failures, spawn errors) is our own failure.
		if code > 0 {
			return code
		}
		return 1
	}

	logger.Info("command completed", "exit_code", code, "elapsed", elapsed)
	return code
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: secretscope [flags] -secret NAME [-secret NAME ...] -- command [args...]

Resolves each named secret, writes it to an ephemeral file, and runs the
command with the file paths joined in $SECRET_FILES. All files are removed
when the command exits, on every exit path.

Flags:
`)
	flag.PrintDefaults()
}

func loadConfig(path string) (*config.Config, *config.Manager, error) {
	if path == "" {
		return config.DefaultConfig(), nil, nil
	}
	// The manager needs a logger before the configured one exists; reload
	// messages go through the default logger.
	m, err := config.NewManager(path, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	return m.Get(), m, nil
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Logs go to stderr so the child command owns stdout.
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// buildSources registers one provider per enabled source. Every provider is
// wrapped with the shared cache when caching is on.
func buildSources(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*source.Manager, error) {
	var mgrOpts []source.ManagerOption
	if cfg.Sources.FallbackScheme != "" {
		mgrOpts = append(mgrOpts, source.WithFallbackScheme(cfg.Sources.FallbackScheme))
	}
	if cfg.RateLimit.Enabled {
		mgrOpts = append(mgrOpts, source.WithRateLimit(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize))
	}

	mgr := source.NewManager(mgrOpts...)

	register := func(scheme string, p source.Provider) {
		if cfg.Cache.Enabled {
			p = source.NewCachedProvider(p, cfg.Cache.TTL)
		}
		mgr.Register(scheme, p)
		logger.Debug("secret source registered", "scheme", scheme)
	}

	if cfg.Sources.Env.Enabled {
		register("env", env.New())
	}

	if cfg.Sources.File.Enabled {
		p, err := file.New(cfg.Sources.File.Dir)
		if err != nil {
			return nil, fmt.Errorf("file source: %w", err)
		}
		register("file", p)
	}

	if cfg.Sources.Vault.Enabled {
		p, err := vault.New(vault.Config{
			Address:    cfg.Sources.Vault.Address,
			AuthMethod: cfg.Sources.Vault.AuthMethod,
			Token:      cfg.Sources.Vault.Token,
			RoleID:     cfg.Sources.Vault.RoleID,
			SecretID:   cfg.Sources.Vault.SecretID,
			CACert:     cfg.Sources.Vault.CACert,
			ClientCert: cfg.Sources.Vault.ClientCert,
			ClientKey:  cfg.Sources.Vault.ClientKey,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("vault source: %w", err)
		}
		register("vault", p)
	}

	if cfg.Sources.AWSSM.Enabled {
		p, err := awssm.New(ctx, awssm.Config{
			Region:      cfg.Sources.AWSSM.Region,
			AccessKeyID: cfg.Sources.AWSSM.AccessKeyID,
			SecretKey:   cfg.Sources.AWSSM.SecretKey,
			Endpoint:    cfg.Sources.AWSSM.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("awssm source: %w", err)
		}
		register("awssm", p)
	}

	if cfg.Sources.S3.Enabled {
		p, err := s3.New(ctx, s3.Config{
			BucketName:  cfg.Sources.S3.Bucket,
			Region:      cfg.Sources.S3.Region,
			AccessKeyID: cfg.Sources.S3.AccessKeyID,
			SecretKey:   cfg.Sources.S3.SecretKey,
			Endpoint:    cfg.Sources.S3.Endpoint,
			PathPrefix:  cfg.Sources.S3.PathPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 source: %w", err)
		}
		register("s3", p)
	}

	if cfg.Sources.Redis.Enabled {
		register("redis", redis.New(redis.Config{
			Addr:      cfg.Sources.Redis.Addr,
			Password:  cfg.Sources.Redis.Password,
			DB:        cfg.Sources.Redis.DB,
			KeyPrefix: cfg.Sources.Redis.KeyPrefix,
		}))
	}

	if cfg.Sources.Postgres.Enabled {
		p, err := postgres.New(postgres.Config{
			DSN:   cfg.Sources.Postgres.DSN,
			Table: cfg.Sources.Postgres.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres source: %w", err)
		}
		register("postgres", p)
	}

	return mgr, nil
}

func startMetricsServer(ctx context.Context, cfg config.MetricsConfig, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("GET "+cfg.Path, promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("metrics endpoint listening", "addr", cfg.Addr, "path", cfg.Path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

func initTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*observability.TracerProvider, *observability.OTelMetricsProvider, *observability.OTelLogsProvider) {
	if !cfg.Tracing.Enabled {
		return nil, nil, nil
	}

	exporter := observability.ExporterGRPC
	if cfg.Tracing.Exporter == "http" {
		exporter = observability.ExporterHTTP
	}

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:      true,
		Endpoint:     cfg.Tracing.Endpoint,
		ExporterType: exporter,
		ServiceName:  cfg.Tracing.ServiceName,
		SampleRate:   cfg.Tracing.SampleRate,
		Insecure:     cfg.Tracing.Insecure,
	})
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		tp = nil
	}

	metricsCfg := observability.DefaultOTelMetricsConfig()
	metricsCfg.Enabled = true
	metricsCfg.Endpoint = cfg.Tracing.Endpoint
	metricsCfg.ExporterType = exporter
	metricsCfg.ServiceName = cfg.Tracing.ServiceName
	metricsCfg.Insecure = cfg.Tracing.Insecure

	mp, err := observability.InitOTelMetrics(ctx, metricsCfg)
	if err != nil {
		logger.Warn("otel metrics disabled", "error", err)
		mp = nil
	}

	logsCfg := observability.DefaultOTelLogsConfig()
	logsCfg.Endpoint = cfg.Tracing.Endpoint
	logsCfg.ExporterType = exporter
	logsCfg.ServiceName = cfg.Tracing.ServiceName
	logsCfg.Insecure = cfg.Tracing.Insecure

	lp, err := observability.InitOTelLogs(ctx, logsCfg)
	if err != nil {
		logger.Warn("otel logs disabled", "error", err)
		lp = nil
	}

	return tp, mp, lp
}

func shutdownTelemetry(tp *observability.TracerProvider, mp *observability.OTelMetricsProvider, lp *observability.OTelLogsProvider, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown error", "error", err)
		}
	}
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil {
			logger.Warn("otel metrics shutdown error", "error", err)
		}
	}
	if lp != nil {
		if err := lp.Shutdown(ctx); err != nil {
			logger.Warn("otel logs shutdown error", "error", err)
		}
	}
}

func recordRun(ctx context.Context, mp *observability.OTelMetricsProvider, lp *observability.OTelLogsProvider, secretCount int, elapsed time.Duration, runErr error) {
	outcome := "success"
	if runErr != nil {
		outcome = "error"
	}
	if mp != nil {
		mp.RecordSession(ctx, outcome, elapsed, 0)
	}
	if lp != nil {
		lp.EmitSessionEvent(ctx, "session.completed", observability.SessionEvent{
			SessionID:   observability.SessionIDFromContext(ctx),
			SecretCount: secretCount,
			Elapsed:     elapsed,
			Err:         runErr,
		})
	}
}
