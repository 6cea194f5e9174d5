package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string // host:port of the OTLP/HTTP collector; empty disables export
	Insecure       bool
}

// Providers exposes what the rest of the process needs from the SDK setup.
type Providers struct {
	// Logs is nil when export is disabled.
	Logs     log.LoggerProvider
	shutdown []func(context.Context) error
}

// Shutdown flushes exporters in reverse order of creation.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs error
	for i := len(p.shutdown) - 1; i >= 0; i-- {
		errs = errors.Join(errs, p.shutdown[i](ctx))
	}
	p.shutdown = nil
	return errs
}

// Setup installs the W3C propagator and, when an endpoint is configured, OTLP
// trace and log pipelines. Without an endpoint the global no-op tracer stays
// in place but trace context is still propagated through message headers.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p := &Providers{}
	if cfg.Endpoint == "" {
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	logOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		logOpts = append(logOpts, otlploghttp.WithInsecure())
	}

	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter,
			sdktrace.WithMaxQueueSize(2048),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	p.shutdown = append(p.shutdown, tp.Shutdown)

	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		return p, errors.Join(fmt.Errorf("create log exporter: %w", err), p.Shutdown(ctx))
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter,
			sdklog.WithExportTimeout(30*time.Second),
			sdklog.WithMaxQueueSize(2048),
		)),
	)
	global.SetLoggerProvider(lp)
	p.Logs = lp
	p.shutdown = append(p.shutdown, lp.Shutdown)

	return p, nil
}
