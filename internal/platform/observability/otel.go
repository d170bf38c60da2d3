package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"posservice/internal/config"
)

// Telemetry holds the providers set up for the process. When no collector
// endpoint is configured the tracer provider is a no-op and nothing is exported.
type Telemetry struct {
	TracerProvider trace.TracerProvider
	Exporting      bool
	shutdownFuncs  []func(context.Context) error
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	var err error
	for _, fn := range t.shutdownFuncs {
		err = errors.Join(err, fn(ctx))
	}
	t.shutdownFuncs = nil
	return err
}

// SetupTelemetry installs the propagator and, if cfg.OtelEndpoint is set, the
// OTLP/HTTP log and trace pipelines.
func SetupTelemetry(ctx context.Context, cfg *config.Config) (*Telemetry, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t := &Telemetry{TracerProvider: noop.NewTracerProvider()}
	if cfg.OtelEndpoint == "" {
		return t, nil
	}

	res, err := newResource()
	if err != nil {
		return nil, err
	}

	var setupErr error
	if err := t.setupLogging(ctx, cfg, res); err != nil {
		setupErr = errors.Join(setupErr, fmt.Errorf("OTLP Log Exporter: %w", err))
	}
	if err := t.setupTracing(ctx, cfg, res); err != nil {
		setupErr = errors.Join(setupErr, fmt.Errorf("OTLP Trace Exporter: %w", err))
	}
	t.Exporting = len(t.shutdownFuncs) > 0
	return t, setupErr
}

func newResource() (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func authHeaders(cfg *config.Config) map[string]string {
	if cfg.OtelAuthHeader == "" {
		return nil
	}
	return map[string]string{"Authorization": cfg.OtelAuthHeader}
}

func (t *Telemetry) setupLogging(ctx context.Context, cfg *config.Config, res *resource.Resource) error {
	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(cfg.OtelEndpoint),
		otlploghttp.WithURLPath(config.LogsPath),
		otlploghttp.WithHeaders(authHeaders(cfg)),
	)
	if err != nil {
		return err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter,
			sdklog.WithExportTimeout(config.ExportTimeout),
			sdklog.WithMaxQueueSize(config.MaxQueueSize),
		)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(provider)
	t.shutdownFuncs = append(t.shutdownFuncs, provider.Shutdown)
	return nil
}

func (t *Telemetry) setupTracing(ctx context.Context, cfg *config.Config, res *resource.Resource) error {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OtelEndpoint),
		otlptracehttp.WithURLPath(config.TracesPath),
		otlptracehttp.WithHeaders(authHeaders(cfg)),
	)
	if err != nil {
		return err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter,
			sdktrace.WithExportTimeout(config.ExportTimeout),
			sdktrace.WithMaxQueueSize(config.MaxQueueSize),
		)),
	)
	otel.SetTracerProvider(provider)
	t.TracerProvider = provider
	t.shutdownFuncs = append(t.shutdownFuncs, provider.Shutdown)
	return nil
}
