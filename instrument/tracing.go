package instrument

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

const defaultServiceName = "gatez"

// InitTracing configures the global OpenTelemetry tracer provider with an
// OTLP HTTP exporter. If OTEL_EXPORTER_OTLP_ENDPOINT is not set, tracing is
// disabled and a no-op shutdown function is returned.
//
// The returned function should be called on shutdown to flush pending spans.
func InitTracing(ctx context.Context) (shutdown func(context.Context) error, err error) {
	endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	serviceName := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME"))
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Tracing is an instrumenter that attaches check and operation events to the
// span already active in the calling context. It never starts spans of its
// own, so with no active span it costs nothing.
type Tracing struct{}

// NewTracing creates a tracing instrumenter.
func NewTracing() Tracing { return Tracing{} }

func (Tracing) Check(ctx context.Context, feature string, result bool, gate string, elapsed time.Duration) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("gatez.check", trace.WithAttributes(
		attribute.String("gatez.feature", feature),
		attribute.Bool("gatez.result", result),
		attribute.String("gatez.gate", gate),
		attribute.Float64("gatez.elapsed_seconds", elapsed.Seconds()),
	))
}

func (Tracing) Operation(ctx context.Context, op string, feature string, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("gatez.operation", op),
		attribute.String("gatez.feature", feature),
	}
	if err != nil {
		span.RecordError(err)
		attrs = append(attrs, attribute.String("gatez.error", err.Error()))
	}
	span.AddEvent("gatez.operation", trace.WithAttributes(attrs...))
}
