// Package observability provides OpenTelemetry Metrics integration for
// session lifecycle instrumentation.
package observability

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// OTelMetricsConfig contains configuration for OpenTelemetry Metrics.
type OTelMetricsConfig struct {
	Enabled      bool
	Endpoint     string
	ExporterType ExporterType
	ServiceName  string
	Insecure     bool
	Headers      map[string]string
	// ExportInterval is the interval between metric exports
	ExportInterval time.Duration
}

// DefaultOTelMetricsConfig returns sensible defaults.
func DefaultOTelMetricsConfig() OTelMetricsConfig {
	return OTelMetricsConfig{
		Enabled:        envBool("SECRETSCOPE_OTEL_METRICS_ENABLED", false),
		Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"),
		ExporterType:   ExporterGRPC,
		ServiceName:    "secretscope",
		Insecure:       true,
		Headers:        make(map[string]string),
		ExportInterval: 60 * time.Second,
	}
}

// OTelMetricsProvider wraps the OpenTelemetry meter provider.
type OTelMetricsProvider struct {
	provider *sdkmetric.MeterProvider
	meter    metric.Meter

	sessionDuration metric.Float64Histogram
	sessionCount    metric.Int64Counter
	secretCount     metric.Int64Counter
	cleanupWarnings metric.Int64Counter
}

// InitOTelMetrics initializes OpenTelemetry Metrics.
func InitOTelMetrics(ctx context.Context, cfg OTelMetricsConfig) (*OTelMetricsProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var exporter sdkmetric.Exporter
	var err error

	switch cfg.ExporterType {
	case ExporterHTTP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	default:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Headers))
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(cfg.ExportInterval))),
	)

	meter := provider.Meter("secretscope")

	p := &OTelMetricsProvider{provider: provider, meter: meter}

	p.sessionDuration, err = meter.Float64Histogram("secretscope.session.duration",
		metric.WithDescription("Wall-clock duration of scoped secret sessions"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	p.sessionCount, err = meter.Int64Counter("secretscope.session.count",
		metric.WithDescription("Number of scoped secret sessions by outcome"))
	if err != nil {
		return nil, err
	}

	p.secretCount, err = meter.Int64Counter("secretscope.secret.count",
		metric.WithDescription("Number of secrets resolved by backend scheme"))
	if err != nil {
		return nil, err
	}

	p.cleanupWarnings, err = meter.Int64Counter("secretscope.cleanup.warnings",
		metric.WithDescription("Number of artifact deletions that failed at teardown"))
	if err != nil {
		return nil, err
	}

	return p, nil
}

// RecordSession records the outcome of one session.
func (p *OTelMetricsProvider) RecordSession(ctx context.Context, outcome string, elapsed time.Duration, cleanupWarnings int) {
	if p == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	p.sessionCount.Add(ctx, 1, attrs)
	p.sessionDuration.Record(ctx, elapsed.Seconds(), attrs)
	if cleanupWarnings > 0 {
		p.cleanupWarnings.Add(ctx, int64(cleanupWarnings))
	}
}

// RecordSecret records one resolved secret.
func (p *OTelMetricsProvider) RecordSecret(ctx context.Context, scheme string) {
	if p == nil {
		return
	}
	p.secretCount.Add(ctx, 1, metric.WithAttributes(attribute.String("scheme", scheme)))
}

// Shutdown gracefully shuts down the meter provider.
func (p *OTelMetricsProvider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
