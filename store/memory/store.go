// Package memory is a fully in-memory Store. Safe for concurrent access.
// Intended for unit testing and single-run CLI use; one instance is
// constructed at process start and passed by reference, never held as a
// package-level global.
package memory

import (
	"context"
	"sync"
	"time"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps whole-aggregate snapshots keyed by job ID.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs: make(map[string]*domain.Job),
	}
}

// SaveJob stores a deep copy of the aggregate, replacing any previous
// snapshot. Callers keep mutating their own instance without racing the
// store.
func (m *Store) SaveJob(_ context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := j.Clone()
	cp.Touch(time.Now().UTC())
	m.jobs[j.ID.String()] = cp
	return nil
}

// GetJob returns a deep copy of the stored aggregate.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, reporter.ErrJobNotFound
	}
	return j.Clone(), nil
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }
