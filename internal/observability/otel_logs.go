// Package observability provides OpenTelemetry Logs integration.
// Session lifecycle events are exported as structured log records with
// trace correlation.
//
// Reference: https://opentelemetry.io/docs/specs/otel/logs/
package observability

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelLogsConfig contains configuration for OpenTelemetry Logs.
type OTelLogsConfig struct {
	Enabled      bool
	Endpoint     string
	ExporterType ExporterType
	ServiceName  string
	Insecure     bool
	Headers      map[string]string
}

// DefaultOTelLogsConfig returns sensible defaults.
func DefaultOTelLogsConfig() OTelLogsConfig {
	return OTelLogsConfig{
		Enabled:      envBool("SECRETSCOPE_OTEL_LOGS_ENABLED", false),
		Endpoint:     os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"),
		ExporterType: ExporterGRPC,
		ServiceName:  "secretscope",
		Insecure:     true,
		Headers:      make(map[string]string),
	}
}

// OTelLogsProvider wraps the OpenTelemetry logger provider.
type OTelLogsProvider struct {
	provider *sdklog.LoggerProvider
	logger   log.Logger
}

// InitOTelLogs initializes OpenTelemetry Logs.
func InitOTelLogs(ctx context.Context, cfg OTelLogsConfig) (*OTelLogsProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var exporter sdklog.Exporter
	var err error

	switch cfg.ExporterType {
	case ExporterHTTP:
		exporter, err = createHTTPLogExporter(ctx, cfg)
	default:
		exporter, err = createGRPCLogExporter(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("secretscope.component", "session"),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	global.SetLoggerProvider(provider)
	logger := provider.Logger("secretscope")

	return &OTelLogsProvider{
		provider: provider,
		logger:   logger,
	}, nil
}

// Logger returns the logger instance.
func (o *OTelLogsProvider) Logger() log.Logger {
	return o.logger
}

// Shutdown gracefully shuts down the logger provider.
func (o *OTelLogsProvider) Shutdown(ctx context.Context) error {
	if o == nil || o.provider == nil {
		return nil
	}
	return o.provider.Shutdown(ctx)
}

// SessionEvent describes one session lifecycle event for export.
type SessionEvent struct {
	SessionID       string
	SecretCount     int
	ArtifactCount   int
	CleanupWarnings int
	Elapsed         time.Duration
	Err             error
}

// EmitSessionEvent emits one session lifecycle log record. Secret names and
// payloads are deliberately absent: only counts and identifiers are exported.
func (o *OTelLogsProvider) EmitSessionEvent(ctx context.Context, eventName string, event SessionEvent) {
	if o == nil || o.provider == nil {
		return
	}

	severity := log.SeverityInfo
	if event.Err != nil {
		severity = log.SeverityError
	}

	record := log.Record{}
	record.SetTimestamp(time.Now())
	record.SetSeverity(severity)
	record.SetBody(log.StringValue(eventName))

	record.AddAttributes(
		log.String("secretscope.session_id", event.SessionID),
		log.Int("secretscope.secret_count", event.SecretCount),
		log.Int("secretscope.artifact_count", event.ArtifactCount),
		log.Int("secretscope.cleanup_warnings", event.CleanupWarnings),
		log.Int64("secretscope.duration_ms", event.Elapsed.Milliseconds()),
	)

	if event.Err != nil {
		record.AddAttributes(log.String("error.message", event.Err.Error()))
	}

	// Add trace context if available
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		record.AddAttributes(
			log.String("trace_id", span.SpanContext().TraceID().String()),
			log.String("span_id", span.SpanContext().SpanID().String()),
		)
	}

	o.logger.Emit(ctx, record)
}

// createGRPCLogExporter creates an OTLP gRPC log exporter.
func createGRPCLogExporter(ctx context.Context, cfg OTelLogsConfig) (sdklog.Exporter, error) {
	opts := []otlploggrpc.Option{
		otlploggrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(cfg.Headers))
	}
	return otlploggrpc.New(ctx, opts...)
}

// createHTTPLogExporter creates an OTLP HTTP log exporter.
func createHTTPLogExporter(ctx context.Context, cfg OTelLogsConfig) (sdklog.Exporter, error) {
	opts := []otlploghttp.Option{
		otlploghttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.Headers))
	}
	return otlploghttp.New(ctx, opts...)
}
