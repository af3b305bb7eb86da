// Package observability provides tracing for ShapeShifter conversions
package observability

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
)

const instrumentationName = "github.com/ajitpratap0/shapeshifter"

var (
	mu       sync.RWMutex
	provider trace.TracerProvider = noop.NewTracerProvider()
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	// SamplingRate is the fraction of conversions traced; 0 disables tracing
	SamplingRate float64
	// Writer receives the exported spans; defaults to stderr
	Writer      io.Writer
	PrettyPrint bool
}

// DefaultTracingConfig traces every conversion to stderr
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName:  "shapeshifter",
		SamplingRate: 1.0,
		Writer:       os.Stderr,
	}
}

// InitTracing installs a tracer provider that exports spans to the
// configured writer. The returned function flushes and stops it.
func InitTracing(config TracingConfig) (func(context.Context) error, error) {
	writer := config.Writer
	if writer == nil {
		writer = os.Stderr
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(writer)}
	if config.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace exporter")
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", config.ServiceName),
		attribute.String("service.version", config.ServiceVersion),
	)

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	// A one-shot CLI exits right after the conversion, so spans are
	// exported synchronously.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithSyncer(exporter),
	)

	otel.SetTracerProvider(tp)
	mu.Lock()
	provider = tp
	mu.Unlock()

	return func(ctx context.Context) error {
		mu.Lock()
		provider = noop.NewTracerProvider()
		mu.Unlock()
		return tp.Shutdown(ctx)
	}, nil
}

// Tracer returns the tracer of the installed provider. Before InitTracing
// it returns a no-op tracer.
func Tracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	return provider.Tracer(instrumentationName)
}
