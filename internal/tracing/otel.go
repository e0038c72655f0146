package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	providerMu  sync.Mutex
	provider    *sdktrace.TracerProvider
	initialized bool
)

// Init initializes the process-wide OpenTelemetry tracer provider. Repeat
// calls are no-ops once initialization succeeded.
func Init(serviceName string) error {
	providerMu.Lock()
	defer providerMu.Unlock()

	if initialized {
		return nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1))),
		sdktrace.WithResource(res),
	)

	provider = tp
	initialized = true
	otel.SetTracerProvider(tp)

	return nil
}

// Reset tears the provider down so tests can re-initialize. Production code
// calls Shutdown instead.
func Reset() {
	providerMu.Lock()
	defer providerMu.Unlock()

	provider = nil
	initialized = false
	otel.SetTracerProvider(trace.NewNoopTracerProvider())
}

// Shutdown flushes and shuts down the tracer provider.
func Shutdown(ctx context.Context) error {
	providerMu.Lock()
	tp := provider
	providerMu.Unlock()

	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// Initialized reports whether Init has run.
func Initialized() bool {
	providerMu.Lock()
	defer providerMu.Unlock()
	return initialized
}

// StartSpan starts a span and ensures a trace id is present in the context.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))

	if GetTraceID(ctx) == "" {
		sc := span.SpanContext()
		if sc.IsValid() {
			ctx = WithTraceID(ctx, sc.TraceID().String())
		}
	}

	return ctx, span
}
