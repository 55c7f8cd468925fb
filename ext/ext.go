// Package ext defines the extension system for the reporter.
// Extensions are notified of lifecycle events (job submitted, task
// completed, job completed, etc.) and can react to them — logging,
// metrics, report delivery, etc.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// JobSubmitted is called after a job is accepted into the pipeline.
type JobSubmitted interface {
	OnJobSubmitted(ctx context.Context, j *domain.Job) error
}

// JobStarted is called when a job transitions to running.
type JobStarted interface {
	OnJobStarted(ctx context.Context, jobID id.JobID) error
}

// TaskCompleted is called after each task settles, whatever its outcome.
type TaskCompleted interface {
	OnTaskCompleted(ctx context.Context, jobID id.JobID, taskID id.TaskID, status domain.TaskStatus) error
}

// JobCompleted is called after every task of a job has settled.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *domain.Job, elapsed time.Duration) error
}

// ScheduleFired is called when a recurring schedule resubmits a batch.
type ScheduleFired interface {
	OnScheduleFired(ctx context.Context, scheduleName string, jobID id.JobID) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
