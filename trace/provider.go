package trace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "seauto"

// ErrUnsupportedProto indicates that the defined exporter protocol is not supported.
var ErrUnsupportedProto = errors.New("unsupported protocol")

// Provider provides tracers and shuts down the export pipeline.
type Provider interface {
	trace.TracerProvider
	Shutdown(ctx context.Context) error
}

type provider struct {
	trace.TracerProvider

	shutdown func(ctx context.Context) error
}

// NewProvider creates a provider exporting spans over OTLP to endpoint.
// Only the "http" protocol is supported.
func NewProvider(ctx context.Context, proto, endpoint string, insecure bool) (Provider, error) {
	client, err := newClient(proto, endpoint, insecure)
	if err != nil {
		return nil, fmt.Errorf("creating exporter client: %w", err)
	}

	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("creating exporter: %w", err)
	}

	prov := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	)
	otel.SetTracerProvider(prov)

	return &provider{TracerProvider: prov, shutdown: prov.Shutdown}, nil
}

// NewNoopProvider returns a provider that records nothing.
func NewNoopProvider() Provider {
	return &provider{
		TracerProvider: noop.NewTracerProvider(),
		shutdown:       func(context.Context) error { return nil },
	}
}

// Shutdown flushes pending spans and releases the exporter. After Shutdown
// every tracer is a no-op.
func (p *provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}

func newClient(proto, endpoint string, insecure bool) (otlptrace.Client, error) {
	switch strings.ToLower(proto) {
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.NewClient(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProto, proto)
	}
}
