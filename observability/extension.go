// Package observability provides the OpenTelemetry metrics extension
// for the reporter. It implements lifecycle hooks to record counters
// for job submission, task outcomes, job completion, and schedule
// fires, plus a job-duration histogram.
//
// For per-message metrics and tracing, see the middleware package:
// middleware.Metrics() and middleware.Tracing().
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/ext"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
)

// meterName is the instrumentation scope name for reporter metrics.
const meterName = "github.com/yeonuk-hwang/viral-marketing-reporter-v2"

// Compile-time interface checks.
var (
	_ ext.Extension     = (*MetricsExtension)(nil)
	_ ext.JobSubmitted  = (*MetricsExtension)(nil)
	_ ext.JobStarted    = (*MetricsExtension)(nil)
	_ ext.TaskCompleted = (*MetricsExtension)(nil)
	_ ext.JobCompleted  = (*MetricsExtension)(nil)
	_ ext.ScheduleFired = (*MetricsExtension)(nil)
)

// MetricsExtension records pipeline-wide lifecycle metrics. Register it
// on the extension registry to track submission rates, task outcomes,
// completion counts, job durations, and schedule fires.
type MetricsExtension struct {
	jobsSubmitted  metric.Int64Counter
	jobsStarted    metric.Int64Counter
	jobsCompleted  metric.Int64Counter
	jobDuration    metric.Float64Histogram
	tasksCompleted metric.Int64Counter
	scheduleFires  metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global OTel
// MeterProvider. With no provider configured every instrument is a noop.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter. This variant allows injecting a specific MeterProvider
// for testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	// On error the API returns noop instruments, so the extension
	// degrades gracefully.
	jobsSubmitted, _ := meter.Int64Counter(
		"reporter.job.submitted",
		metric.WithDescription("Jobs accepted into the pipeline"),
	)
	jobsStarted, _ := meter.Int64Counter(
		"reporter.job.started",
		metric.WithDescription("Jobs that began executing"),
	)
	jobsCompleted, _ := meter.Int64Counter(
		"reporter.job.completed",
		metric.WithDescription("Jobs whose every task settled"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"reporter.job.duration",
		metric.WithDescription("Submission-to-completion time in seconds"),
		metric.WithUnit("s"),
	)
	tasksCompleted, _ := meter.Int64Counter(
		"reporter.task.completed",
		metric.WithDescription("Settled tasks, by outcome status"),
	)
	scheduleFires, _ := meter.Int64Counter(
		"reporter.schedule.fired",
		metric.WithDescription("Recurring schedule fires"),
	)
	return &MetricsExtension{
		jobsSubmitted:  jobsSubmitted,
		jobsStarted:    jobsStarted,
		jobsCompleted:  jobsCompleted,
		jobDuration:    jobDuration,
		tasksCompleted: tasksCompleted,
		scheduleFires:  scheduleFires,
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnJobSubmitted implements ext.JobSubmitted.
func (m *MetricsExtension) OnJobSubmitted(ctx context.Context, j *domain.Job) error {
	m.jobsSubmitted.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("tasks", len(j.Tasks)),
	))
	return nil
}

// OnJobStarted implements ext.JobStarted.
func (m *MetricsExtension) OnJobStarted(ctx context.Context, _ id.JobID) error {
	m.jobsStarted.Add(ctx, 1)
	return nil
}

// OnTaskCompleted implements ext.TaskCompleted.
func (m *MetricsExtension) OnTaskCompleted(ctx context.Context, _ id.JobID, _ id.TaskID, status domain.TaskStatus) error {
	m.tasksCompleted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(status)),
	))
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, _ *domain.Job, elapsed time.Duration) error {
	m.jobsCompleted.Add(ctx, 1)
	m.jobDuration.Record(ctx, elapsed.Seconds())
	return nil
}

// OnScheduleFired implements ext.ScheduleFired.
func (m *MetricsExtension) OnScheduleFired(ctx context.Context, scheduleName string, _ id.JobID) error {
	m.scheduleFires.Add(ctx, 1, metric.WithAttributes(
		attribute.String("schedule", scheduleName),
	))
	return nil
}
