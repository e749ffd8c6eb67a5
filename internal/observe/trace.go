package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope of every speakscore span.
const ScopeName = "github.com/MrWong99/speakscore"

// Tracer returns the speakscore tracer of tp. A nil tp selects the global
// provider; tracers taken from it before [InitProvider] runs still forward
// to the provider installed later.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(ScopeName)
}

// StartSpan starts a span on the global speakscore tracer. The caller must
// call span.End().
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer(nil).Start(ctx, name, opts...)
}

// Fail records err on span and marks it as errored. A nil err is a no-op.
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the hex trace ID of the span in ctx, or "" without one.
// Results carry it so a transcript can be joined to its log lines.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// Logger returns the default logger, tagged with trace_id and span_id when
// ctx carries a span.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
