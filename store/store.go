// Package store defines the persistence contract for the Job aggregate.
// Backends: Memory, Postgres, and Redis. The unit of work wraps a Store
// in a seen-tracking repository; nothing else touches a backend directly.
package store

import (
	"context"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
)

// Store is the aggregate persistence interface.
type Store interface {
	// SaveJob persists the aggregate, inserting it or replacing it
	// whole. Transient events are never persisted.
	SaveJob(ctx context.Context, j *domain.Job) error

	// GetJob retrieves a job by ID. Returns reporter.ErrJobNotFound if
	// the ID is unknown.
	GetJob(ctx context.Context, jobID id.JobID) (*domain.Job, error)

	// Migrate runs schema migrations, where the backend has any.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
