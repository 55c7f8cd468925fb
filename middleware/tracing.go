package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
)

// tracerName is the instrumentation scope name for reporter tracing.
const tracerName = "github.com/yeonuk-hwang/viral-marketing-reporter-v2"

// Tracing returns middleware that wraps message handling in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, msg domain.Message, next Handler) error {
		kind := "event"
		if _, ok := msg.(domain.Command); ok {
			kind = "command"
		}

		ctx, span := tracer.Start(ctx, "reporter.bus.dispatch",
			trace.WithAttributes(
				attribute.String("reporter.message", msg.MessageName()),
				attribute.String("reporter.message.kind", kind),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
