// Package tracing provides a thin OpenTelemetry wrapper around
// simulation requests (grounded on the teacher's
// internal/infrastructure/tracing.Provider, minus its OTLP exporter
// wiring — this module has no metrics/exporter collaborator in scope,
// so it relies on whatever TracerProvider the embedding process has
// already installed via otel.SetTracerProvider, defaulting to the
// otel SDK's no-op provider when none is set).
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName identifies this module's spans to any tracer
// provider the embedding process has configured.
const instrumentationName = "github.com/qualphys/reasoner"

// StartSpan starts a span named for the operation (e.g. "simulate",
// "compare", "reload") under the caller's context.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// RecordError records err on the span active in ctx, if any.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err)
	}
}

