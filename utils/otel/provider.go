package otel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	serviceNamespace    = "auth"
	defaultExportPeriod = 5 * time.Second
	maxExportBatchSize  = 512
	defaultOTLPEndpoint = "http://localhost:4318"
	defaultServiceName  = "auth-bridge"
	defaultSampleRatio  = 1.0
	envExportInterval   = "OTEL_EXPORT_INTERVAL"
	envTraceSampleRatio = "OTEL_TRACE_SAMPLE_RATIO"
	envExporterEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envExporterInsecure = "OTEL_EXPORTER_OTLP_INSECURE"
)

// Config holds OpenTelemetry configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	Insecure       bool // plain HTTP to the collector
	Enabled        bool
	SampleRatio    float64
	ExportInterval time.Duration
}

// ConfigFromEnv creates Config from environment variables. Malformed
// numeric values fall back to their defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		ServiceName:    getEnv("OTEL_SERVICE_NAME", defaultServiceName),
		ServiceVersion: getEnv("SERVICE_VERSION", "0.0.0"),
		Environment:    getEnv("APP_ENV", "development"),
		OTLPEndpoint:   getEnv(envExporterEndpoint, defaultOTLPEndpoint),
		Insecure:       getEnv(envExporterInsecure, "true") == "true",
		Enabled:        getEnv("OTEL_ENABLED", "false") == "true",
		SampleRatio:    defaultSampleRatio,
		ExportInterval: defaultExportPeriod,
	}
	if f, err := strconv.ParseFloat(os.Getenv(envTraceSampleRatio), 64); err == nil && f >= 0 && f <= 1 {
		cfg.SampleRatio = f
	}
	if d, err := time.ParseDuration(os.Getenv(envExportInterval)); err == nil && d > 0 {
		cfg.ExportInterval = d
	}
	return cfg
}

// ShutdownFunc is a function to shutdown providers
type ShutdownFunc func(context.Context) error

// Providers are the installed trace and log providers.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Logger *sdklog.LoggerProvider
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(p.Tracer.Shutdown(ctx), p.Logger.Shutdown(ctx))
}

// InitProvider builds OTLP/HTTP exporters for cfg and installs the
// resulting providers globally. A disabled config installs nothing.
func InitProvider(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	spanExporter, err := otlptracehttp.New(ctx, traceExporterOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	logExporter, err := otlploghttp.New(ctx, logExporterOptions(cfg)...)
	if err != nil {
		_ = spanExporter.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	p, err := Install(ctx, cfg, spanExporter, logExporter)
	if err != nil {
		return nil, err
	}
	return p.Shutdown, nil
}

// Install wires the given exporters into batching providers tagged with the
// service resource, and sets them as the global trace and log providers
// together with the W3C trace context propagator.
func Install(ctx context.Context, cfg Config, spans sdktrace.SpanExporter, logs sdklog.Exporter) (*Providers, error) {
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = defaultExportPeriod
	}

	p := &Providers{
		Tracer: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spans,
				sdktrace.WithBatchTimeout(interval),
				sdktrace.WithMaxExportBatchSize(maxExportBatchSize),
			),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		),
		Logger: sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logs,
				sdklog.WithExportInterval(interval),
				sdklog.WithExportMaxBatchSize(maxExportBatchSize),
			)),
			sdklog.WithResource(res),
		),
	}

	otel.SetTracerProvider(p.Tracer)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	global.SetLoggerProvider(p.Logger)
	return p, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceNamespace(serviceNamespace),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
}

func traceExporterOptions(cfg Config) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint + "/v1/traces")}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

func logExporterOptions(cfg Config) []otlploghttp.Option {
	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(cfg.OTLPEndpoint + "/v1/logs")}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	return opts
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
