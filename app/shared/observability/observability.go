package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds the observability settings.
type Config struct {
	ServiceName     string
	Environment     string
	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceSampleRate float64
}

// Provider holds the logging side of the observability stack.
type Provider struct {
	Logger *slog.Logger
}

// Registry holds tracing and metrics registration.
type Registry struct {
	Tracer     trace.Tracer
	Prometheus *prometheus.Registry
}

// Observability bundles logger, tracer, and metrics registry for module
// constructors.
type Observability struct {
	Provider Provider
	Registry Registry

	shutdown func(context.Context) error
}

// Init builds the observability stack: slog logger (JSON outside development),
// otel tracer (noop unless an OTLP endpoint is configured), and a prometheus
// registry pre-loaded with process and Go collectors.
func Init(ctx context.Context, cfg Config) (Observability, error) {
	var handler slog.Handler
	if cfg.Environment == "development" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(handler).With(slog.String("service", cfg.ServiceName))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obs := Observability{
		Provider: Provider{Logger: logger},
		Registry: Registry{
			Tracer:     noop.NewTracerProvider().Tracer(cfg.ServiceName),
			Prometheus: registry,
		},
		shutdown: func(context.Context) error { return nil },
	}

	if cfg.OTLPEndpoint == "" {
		return obs, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return Observability{}, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return Observability{}, fmt.Errorf("failed to build otel resource: %w", err)
	}

	sampleRate := cfg.TraceSampleRate
	if sampleRate <= 0 {
		sampleRate = 0.1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
	)
	otel.SetTracerProvider(tp)

	obs.Registry.Tracer = tp.Tracer(cfg.ServiceName)
	obs.shutdown = tp.Shutdown
	return obs, nil
}

// Shutdown flushes pending trace spans.
func (o Observability) Shutdown(ctx context.Context) error {
	if o.shutdown == nil {
		return nil
	}
	return o.shutdown(ctx)
}

// NewTestObservability returns a stack suitable for unit tests: default
// logger, noop tracer, empty registry.
func NewTestObservability() Observability {
	return Observability{
		Provider: Provider{Logger: slog.Default()},
		Registry: Registry{
			Tracer:     noop.NewTracerProvider().Tracer("test"),
			Prometheus: prometheus.NewRegistry(),
		},
		shutdown: func(context.Context) error { return nil },
	}
}
