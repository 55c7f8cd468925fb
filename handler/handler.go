// Package handler wires the message bus to the domain: one command
// handler per command, one subscriber per event, each running in its
// own unit-of-work scope.
//
// The handlers form the job pipeline: CreateJob persists the aggregate,
// its JobCreated event starts the job, JobStarted fans the tasks out to
// the platform searchers, each TaskCompleted re-checks the job for
// completion, and JobCompleted notifies extensions.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/bus"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/ext"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/platform"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/uow"
)

// Handlers carries the shared dependencies of every message handler.
type Handlers struct {
	uow       *uow.Factory
	bus       *bus.Bus
	platforms *platform.Factory
	exts      *ext.Registry
	cfg       reporter.Config
	logger    *slog.Logger
}

// New creates the handler set.
func New(f *uow.Factory, b *bus.Bus, platforms *platform.Factory, exts *ext.Registry, cfg reporter.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		uow:       f,
		bus:       b,
		platforms: platforms,
		exts:      exts,
		cfg:       cfg,
		logger:    logger,
	}
}

// Register binds every handler to its message on the given bus.
func (h *Handlers) Register(b *bus.Bus) error {
	if err := b.RegisterCommand(domain.NameCreateJob, h.CreateJob); err != nil {
		return err
	}
	if err := b.RegisterCommand(domain.NameExecuteTask, h.ExecuteTask); err != nil {
		return err
	}
	b.SubscribeEvent(domain.NameJobCreated, h.OnJobCreated)
	b.SubscribeEvent(domain.NameJobStarted, h.OnJobStarted)
	b.SubscribeEvent(domain.NameTaskCompleted, h.OnTaskCompleted)
	b.SubscribeEvent(domain.NameJobCompleted, h.OnJobCompleted)
	return nil
}

// CreateJob validates the submitted task specs, builds the aggregate,
// and persists it. Committing publishes JobCreated, which drives the
// rest of the pipeline.
func (h *Handlers) CreateJob(ctx context.Context, msg domain.Message) error {
	cmd, ok := msg.(domain.CreateJob)
	if !ok {
		return fmt.Errorf("handler: create_job got %T", msg)
	}

	tasks := make([]*domain.Task, 0, len(cmd.Tasks))
	for _, spec := range cmd.Tasks {
		keyword, err := domain.NewKeyword(spec.Keyword)
		if err != nil {
			return fmt.Errorf("handler: task %d: %w", spec.Index, err)
		}
		targets := make([]domain.Post, 0, len(spec.URLs))
		for _, u := range spec.URLs {
			targets = append(targets, domain.Post{URL: u})
		}
		p := spec.Platform
		if p == "" {
			p = domain.NaverBlog
		}
		tasks = append(tasks, domain.NewTask(spec.Index, keyword, targets, p, spec.CaptureAll))
	}

	scope := h.uow.New()
	defer scope.Rollback()

	if _, err := scope.Get(ctx, cmd.JobID); err == nil {
		return fmt.Errorf("%w: %s", reporter.ErrJobAlreadyExists, cmd.JobID)
	} else if !errors.Is(err, reporter.ErrJobNotFound) {
		return err
	}

	job := domain.NewJob(cmd.JobID, tasks)
	scope.Add(job)
	h.exts.EmitJobSubmitted(ctx, job)
	return scope.Commit(ctx)
}

// OnJobCreated transitions the new job from pending to running.
func (h *Handlers) OnJobCreated(ctx context.Context, msg domain.Message) error {
	evt, ok := msg.(domain.JobCreated)
	if !ok {
		return fmt.Errorf("handler: job_created got %T", msg)
	}

	scope := h.uow.New()
	defer scope.Rollback()

	job, err := scope.Get(ctx, evt.JobID)
	if err != nil {
		if errors.Is(err, reporter.ErrJobNotFound) {
			h.logger.Warn("job_created for unknown job", slog.String("job_id", evt.JobID.String()))
			return nil
		}
		return err
	}
	if err := job.Start(); err != nil {
		return err
	}
	return scope.Commit(ctx)
}

// OnJobStarted fans the job's pending tasks out as ExecuteTask
// commands, bounded by the configured concurrency. The job's lock is
// released before dispatch so the task executions can load it.
func (h *Handlers) OnJobStarted(ctx context.Context, msg domain.Message) error {
	evt, ok := msg.(domain.JobStarted)
	if !ok {
		return fmt.Errorf("handler: job_started got %T", msg)
	}

	scope := h.uow.New()
	job, err := scope.Get(ctx, evt.JobID)
	if err != nil {
		scope.Rollback()
		if errors.Is(err, reporter.ErrJobNotFound) {
			h.logger.Warn("job_started for unknown job", slog.String("job_id", evt.JobID.String()))
			return nil
		}
		return err
	}
	var pending []id.TaskID
	for _, t := range job.Tasks {
		if t.Status == domain.TaskPending {
			pending = append(pending, t.ID)
		}
	}
	scope.Rollback()

	h.exts.EmitJobStarted(ctx, evt.JobID)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.FanOutConcurrency)
	for _, taskID := range pending {
		cmd := domain.ExecuteTask{JobID: evt.JobID, TaskID: taskID}
		g.Go(func() error {
			return h.bus.Dispatch(gctx, cmd)
		})
	}
	return g.Wait()
}

// ExecuteTask runs one task against its platform searcher. Search
// failures are absorbed into the task as an error outcome; the command
// itself fails only when the job cannot be loaded or saved.
//
// The job lock is held only while reading the task and while recording
// the outcome, never across the search itself — sibling tasks of the
// same job search concurrently.
func (h *Handlers) ExecuteTask(ctx context.Context, msg domain.Message) error {
	cmd, ok := msg.(domain.ExecuteTask)
	if !ok {
		return fmt.Errorf("handler: execute_task got %T", msg)
	}

	task, err := h.loadTask(ctx, cmd)
	if err != nil || task == nil {
		return err
	}

	result, searchErr := h.search(ctx, task)

	scope := h.uow.New()
	defer scope.Rollback()
	job, err := scope.Get(ctx, cmd.JobID)
	if err != nil {
		if errors.Is(err, reporter.ErrJobNotFound) {
			h.logger.Warn("execute_task result for unknown job", slog.String("job_id", cmd.JobID.String()))
			return nil
		}
		return err
	}

	if searchErr != nil {
		h.logger.Error("task search failed",
			slog.String("job_id", cmd.JobID.String()),
			slog.String("task_id", cmd.TaskID.String()),
			slog.String("keyword", task.Keyword.Text),
			slog.String("error", searchErr.Error()),
		)
		job.RecordTaskError(cmd.TaskID, searchErr.Error())
		return scope.Commit(ctx)
	}

	job.RecordTaskResult(cmd.TaskID, result)
	return scope.Commit(ctx)
}

// loadTask reads the task under a short-lived scope. A nil task with a
// nil error means the job or task is unknown and the command is a
// tolerated no-op.
func (h *Handlers) loadTask(ctx context.Context, cmd domain.ExecuteTask) (*domain.Task, error) {
	scope := h.uow.New()
	defer scope.Rollback()

	job, err := scope.Get(ctx, cmd.JobID)
	if err != nil {
		if errors.Is(err, reporter.ErrJobNotFound) {
			h.logger.Warn("execute_task for unknown job", slog.String("job_id", cmd.JobID.String()))
			return nil, nil
		}
		return nil, err
	}
	task, ok := job.Task(cmd.TaskID)
	if !ok {
		h.logger.Warn("execute_task for unknown task",
			slog.String("job_id", cmd.JobID.String()),
			slog.String("task_id", cmd.TaskID.String()),
		)
		return nil, nil
	}
	return task, nil
}

func (h *Handlers) search(ctx context.Context, task *domain.Task) (domain.SearchResult, error) {
	searcher, err := h.platforms.Searcher(task.Platform)
	if err != nil {
		return domain.SearchResult{}, err
	}

	if h.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.SearchTimeout)
		defer cancel()
	}

	targets := make([]string, 0, len(task.Targets))
	for _, p := range task.Targets {
		targets = append(targets, p.URL)
	}
	return searcher.Search(ctx, platform.Input{
		Index:      task.Index,
		Keyword:    task.Keyword,
		Targets:    targets,
		OutputDir:  h.cfg.OutputDir,
		CaptureAll: task.CaptureAll,
	})
}

// OnTaskCompleted notifies extensions and re-checks the job for
// completion. The check is idempotent, so concurrent task completions
// can all run it safely.
func (h *Handlers) OnTaskCompleted(ctx context.Context, msg domain.Message) error {
	evt, ok := msg.(domain.TaskCompleted)
	if !ok {
		return fmt.Errorf("handler: task_completed got %T", msg)
	}

	h.exts.EmitTaskCompleted(ctx, evt.JobID, evt.TaskID, evt.Status)

	scope := h.uow.New()
	defer scope.Rollback()

	job, err := scope.Get(ctx, evt.JobID)
	if err != nil {
		if errors.Is(err, reporter.ErrJobNotFound) {
			h.logger.Warn("task_completed for unknown job", slog.String("job_id", evt.JobID.String()))
			return nil
		}
		return err
	}
	job.CheckCompletion()
	return scope.Commit(ctx)
}

// OnJobCompleted logs the outcome and notifies extensions.
func (h *Handlers) OnJobCompleted(ctx context.Context, msg domain.Message) error {
	evt, ok := msg.(domain.JobCompleted)
	if !ok {
		return fmt.Errorf("handler: job_completed got %T", msg)
	}

	scope := h.uow.New()
	job, err := scope.Get(ctx, evt.JobID)
	scope.Rollback()
	if err != nil {
		if errors.Is(err, reporter.ErrJobNotFound) {
			h.logger.Warn("job_completed for unknown job", slog.String("job_id", evt.JobID.String()))
			return nil
		}
		return err
	}

	var found, notFound, failed int
	for _, t := range job.Tasks {
		switch t.Status {
		case domain.TaskFound:
			found++
		case domain.TaskNotFound:
			notFound++
		case domain.TaskError:
			failed++
		}
	}
	elapsed := time.Since(job.CreatedAt)
	h.logger.Info("job completed",
		slog.String("job_id", evt.JobID.String()),
		slog.Int("found", found),
		slog.Int("not_found", notFound),
		slog.Int("failed", failed),
		slog.Duration("elapsed", elapsed),
	)
	h.exts.EmitJobCompleted(ctx, job, elapsed)
	return nil
}
