package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
)

// meterName is the instrumentation scope name for reporter metrics.
const meterName = "github.com/yeonuk-hwang/viral-marketing-reporter-v2"

// Metrics returns middleware that records per-message handling metrics
// using the global OTel MeterProvider. If no MeterProvider is configured,
// noop instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - reporter.message.duration (Float64Histogram): handling time in
//     seconds, with attributes: message, status ("ok" or "error")
//   - reporter.message.handled (Int64Counter): total handled messages,
//     with attributes: message, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"reporter.message.duration",
		metric.WithDescription("Duration of message handling in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	handled, hErr := meter.Int64Counter(
		"reporter.message.handled",
		metric.WithDescription("Total number of handled messages"),
		metric.WithUnit("{message}"),
	)
	_ = hErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, msg domain.Message, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("message", msg.MessageName()),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		handled.Add(ctx, 1, attrs)

		return err
	}
}
