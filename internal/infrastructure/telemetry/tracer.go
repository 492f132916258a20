package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	Tracer trace.Tracer
	// TracerProvider is read by the router to configure otelhttp.
	TracerProvider *sdktrace.TracerProvider
)

type Options struct {
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// exporterEndpoint reduces an OTLP URL to the host:port the HTTP exporter
// expects.
func exporterEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimSuffix(endpoint, "/")
	endpoint = strings.TrimSuffix(endpoint, "/v1/traces")
	return endpoint
}

// InitTracer installs a batching OTLP tracer provider and the W3C trace
// context + baggage propagators as globals. The returned function flushes
// and stops the provider.
func InitTracer(ctx context.Context, opts Options) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(exporterEndpoint(opts.Endpoint)),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
			semconv.DeploymentEnvironment(opts.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	TracerProvider = tp
	otel.SetTracerProvider(tp)
	Tracer = otel.Tracer(opts.ServiceName)

	return tp.Shutdown, nil
}
