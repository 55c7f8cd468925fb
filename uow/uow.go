// Package uow implements the unit of work: a transactional scope that
// couples aggregate mutation to event publication.
//
// A scope tracks every aggregate it touches (the "seen" set). Commit
// persists the seen aggregates, releases their locks, and only then
// republishes the events drained from them — so no handler ever observes
// an event for a mutation that is not yet visible to subsequent reads.
// Rollback discards the scope; nothing was written, so for every backend
// it reduces to releasing the locks.
//
// Scopes touching the same job ID serialize on a per-ID mutex, which is
// what makes whole-aggregate replace-on-save safe when two tasks of the
// same job complete at the same instant. Locks are released before event
// publication, so the re-entrant dispatch chain (a task-completed
// subscriber reloading the same job) never deadlocks.
package uow

import (
	"context"
	"fmt"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/store"
)

// Publisher publishes drained events after a durable commit.
// The message bus satisfies it.
type Publisher interface {
	Dispatch(ctx context.Context, msg domain.Message) error
}

// Factory creates unit-of-work scopes sharing one store, one publisher,
// and one per-aggregate lock table.
type Factory struct {
	store store.Store
	pub   Publisher
	locks *keyedMutex
}

// NewFactory creates a Factory.
func NewFactory(s store.Store, pub Publisher) *Factory {
	return &Factory{
		store: s,
		pub:   pub,
		locks: newKeyedMutex(),
	}
}

// New opens a fresh scope. The caller must finish it with Commit or
// Rollback; deferring Rollback after New is the usual pattern, it is a
// no-op once Commit has run.
func (f *Factory) New() *UnitOfWork {
	return &UnitOfWork{
		store: f.store,
		pub:   f.pub,
		locks: f.locks,
		byID:  make(map[string]*domain.Job),
	}
}

// UnitOfWork is one transactional scope. Not safe for concurrent use;
// every handler invocation opens its own.
type UnitOfWork struct {
	store store.Store
	pub   Publisher
	locks *keyedMutex

	seen []*domain.Job          // in first-touch order
	byID map[string]*domain.Job // identity map for this scope
	held []string               // lock keys held, in acquisition order

	done bool
}

// Add registers a newly created aggregate with the scope. The write is
// deferred to Commit.
func (u *UnitOfWork) Add(j *domain.Job) {
	key := j.ID.String()
	if _, ok := u.byID[key]; ok {
		return
	}
	u.acquire(key)
	u.byID[key] = j
	u.seen = append(u.seen, j)
}

// Get loads an aggregate, locking its ID for the duration of the scope.
// Repeated Gets for the same ID return the same instance, so events
// stamped on it are never split across copies. Returns
// reporter.ErrJobNotFound for unknown IDs.
func (u *UnitOfWork) Get(ctx context.Context, jobID id.JobID) (*domain.Job, error) {
	key := jobID.String()
	if j, ok := u.byID[key]; ok {
		return j, nil
	}

	u.acquire(key)
	j, err := u.store.GetJob(ctx, jobID)
	if err != nil {
		u.release(key)
		return nil, err
	}

	u.byID[key] = j
	u.seen = append(u.seen, j)
	return j, nil
}

// Commit persists every seen aggregate, releases the locks, and then
// publishes the drained events in seen order and, within an aggregate,
// in append order. A failed write aborts the commit before any event is
// published.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return fmt.Errorf("uow: scope already finished")
	}
	u.done = true

	// Drain before the write so a crash after commit under-delivers
	// events but never re-delivers them.
	var events []domain.Event
	for _, j := range u.seen {
		events = append(events, j.PullEvents()...)
	}

	for _, j := range u.seen {
		if err := u.store.SaveJob(ctx, j); err != nil {
			u.releaseAll()
			return fmt.Errorf("uow: save job %s: %w", j.ID, err)
		}
	}

	u.releaseAll()

	for _, evt := range events {
		if err := u.pub.Dispatch(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Rollback discards the scope. No-op after Commit.
func (u *UnitOfWork) Rollback() {
	if u.done {
		return
	}
	u.done = true
	u.releaseAll()
}

func (u *UnitOfWork) acquire(key string) {
	u.locks.lock(key)
	u.held = append(u.held, key)
}

func (u *UnitOfWork) release(key string) {
	for i, k := range u.held {
		if k == key {
			u.held = append(u.held[:i], u.held[i+1:]...)
			break
		}
	}
	u.locks.unlock(key)
}

func (u *UnitOfWork) releaseAll() {
	for _, k := range u.held {
		u.locks.unlock(k)
	}
	u.held = nil
}
