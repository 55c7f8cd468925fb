// Package schedule runs recurring report batches. Agencies re-check
// the same keyword sets every morning; an entry binds a cron expression
// to a batch of task specs and resubmits the batch whenever it is due.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
)

// SubmitFunc is the callback the scheduler uses to submit a batch.
// This breaks the import cycle: the engine provides the implementation.
type SubmitFunc func(ctx context.Context, tasks []domain.TaskSpec) (id.JobID, error)

// Emitter emits schedule lifecycle events.
// ext.Registry satisfies this interface via EmitScheduleFired.
type Emitter interface {
	EmitScheduleFired(ctx context.Context, scheduleName string, jobID id.JobID)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.tickInterval = d }
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// Entry is one recurring batch.
type Entry struct {
	Name      string
	Schedule  string
	Tasks     []domain.TaskSpec
	Enabled   bool
	NextRunAt time.Time
	LastRunAt *time.Time

	sched cronlib.Schedule
}

// Scheduler fires due entries on a tick loop.
type Scheduler struct {
	submit  SubmitFunc
	emitter Emitter
	logger  *slog.Logger

	tickInterval time.Duration

	mu      sync.Mutex
	entries map[string]*Entry

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(submit SubmitFunc, emitter Emitter, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		submit:       submit,
		emitter:      emitter,
		logger:       logger,
		tickInterval: 1 * time.Second,
		entries:      make(map[string]*Entry),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a recurring batch under a unique name. Re-adding a name
// replaces the previous entry.
func (s *Scheduler) Add(name, expr string, tasks []domain.TaskSpec) error {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return fmt.Errorf("schedule: parse %q: %w", expr, err)
	}
	if len(tasks) == 0 {
		return fmt.Errorf("schedule: entry %q has no tasks", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = &Entry{
		Name:      name,
		Schedule:  expr,
		Tasks:     tasks,
		Enabled:   true,
		NextRunAt: sched.Next(time.Now().UTC()),
		sched:     sched,
	}
	return nil
}

// Remove deletes an entry. Unknown names are a no-op.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
}

// SetEnabled pauses or resumes an entry without losing its definition.
func (s *Scheduler) SetEnabled(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		e.Enabled = enabled
	}
}

// Entries returns a snapshot of the registered entries.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// Start launches the tick loop.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("scheduler started", slog.Duration("tick_interval", s.tickInterval))
	return nil
}

// Stop signals the scheduler to stop and waits for the loop to finish.
func (s *Scheduler) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	now := time.Now().UTC()

	s.mu.Lock()
	var due []*Entry
	for _, e := range s.entries {
		if !e.Enabled || e.NextRunAt.After(now) {
			continue
		}
		e.LastRunAt = &now
		e.NextRunAt = e.sched.Next(now)
		due = append(due, e)
	}
	s.mu.Unlock()

	for _, e := range due {
		s.fire(e)
	}
}

func (s *Scheduler) fire(e *Entry) {
	ctx := context.Background()

	jobID, err := s.submit(ctx, e.Tasks)
	if err != nil {
		s.logger.Error("schedule submit error",
			slog.String("schedule", e.Name),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.emitter != nil {
		s.emitter.EmitScheduleFired(ctx, e.Name, jobID)
	}
	s.logger.Info("schedule fired",
		slog.String("schedule", e.Name),
		slog.String("job_id", jobID.String()),
		slog.Time("next_run_at", e.NextRunAt),
	)
}
