package ext_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/ext"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
)

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnJobSubmitted(_ context.Context, _ *domain.Job) error {
	e.calls = append(e.calls, "OnJobSubmitted")
	return nil
}

func (e *allHooksExt) OnJobStarted(_ context.Context, _ id.JobID) error {
	e.calls = append(e.calls, "OnJobStarted")
	return nil
}

func (e *allHooksExt) OnTaskCompleted(_ context.Context, _ id.JobID, _ id.TaskID, _ domain.TaskStatus) error {
	e.calls = append(e.calls, "OnTaskCompleted")
	return nil
}

func (e *allHooksExt) OnJobCompleted(_ context.Context, _ *domain.Job, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobCompleted")
	return nil
}

func (e *allHooksExt) OnScheduleFired(_ context.Context, _ string, _ id.JobID) error {
	e.calls = append(e.calls, "OnScheduleFired")
	return nil
}

func (e *allHooksExt) OnShutdown(_ context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// jobHooksExt implements only the job-level hooks.
type jobHooksExt struct {
	calls []string
}

func (e *jobHooksExt) Name() string { return "job-hooks" }

func (e *jobHooksExt) OnJobSubmitted(_ context.Context, _ *domain.Job) error {
	e.calls = append(e.calls, "OnJobSubmitted")
	return nil
}

func (e *jobHooksExt) OnJobCompleted(_ context.Context, _ *domain.Job, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobCompleted")
	return nil
}

// failingExt returns an error from every hook it implements.
type failingExt struct{}

func (failingExt) Name() string { return "failing" }

func (failingExt) OnJobSubmitted(_ context.Context, _ *domain.Job) error {
	return errors.New("hook exploded")
}

func testJob(t *testing.T) *domain.Job {
	t.Helper()
	k, err := domain.NewKeyword("golang")
	if err != nil {
		t.Fatalf("NewKeyword: %v", err)
	}
	task := domain.NewTask(0, k, []domain.Post{{URL: "https://blog.naver.com/a/1"}}, domain.NaverBlog, false)
	return domain.NewJob(id.NewJobID(), []*domain.Task{task})
}

func TestRegistryEmitsAllHooks(t *testing.T) {
	t.Parallel()

	e := &allHooksExt{}
	r := ext.NewRegistry(slog.New(slog.DiscardHandler))
	r.Register(e)

	ctx := context.Background()
	j := testJob(t)
	r.EmitJobSubmitted(ctx, j)
	r.EmitJobStarted(ctx, j.ID)
	r.EmitTaskCompleted(ctx, j.ID, j.Tasks[0].ID, domain.TaskFound)
	r.EmitJobCompleted(ctx, j, time.Second)
	r.EmitScheduleFired(ctx, "weekly-report", j.ID)
	r.EmitShutdown(ctx)

	want := []string{
		"OnJobSubmitted", "OnJobStarted", "OnTaskCompleted",
		"OnJobCompleted", "OnScheduleFired", "OnShutdown",
	}
	if len(e.calls) != len(want) {
		t.Fatalf("got %d calls %v, want %d", len(e.calls), e.calls, len(want))
	}
	for i, name := range want {
		if e.calls[i] != name {
			t.Fatalf("call %d = %q, want %q", i, e.calls[i], name)
		}
	}
}

func TestRegistryPartialExtension(t *testing.T) {
	t.Parallel()

	e := &jobHooksExt{}
	r := ext.NewRegistry(slog.New(slog.DiscardHandler))
	r.Register(e)

	ctx := context.Background()
	j := testJob(t)
	r.EmitJobSubmitted(ctx, j)
	r.EmitJobStarted(ctx, j.ID)
	r.EmitTaskCompleted(ctx, j.ID, j.Tasks[0].ID, domain.TaskNotFound)
	r.EmitJobCompleted(ctx, j, time.Second)

	if len(e.calls) != 2 {
		t.Fatalf("got calls %v, want only the two implemented hooks", e.calls)
	}
}

func TestRegistryHookErrorsDoNotPropagate(t *testing.T) {
	t.Parallel()

	r := ext.NewRegistry(slog.New(slog.DiscardHandler))
	r.Register(failingExt{})
	after := &jobHooksExt{}
	r.Register(after)

	r.EmitJobSubmitted(context.Background(), testJob(t))

	if len(after.calls) != 1 {
		t.Fatal("a failing hook stopped later extensions from running")
	}
}

func TestRegistryNotificationOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mk := func(name string) ext.Extension {
		return namedExt{name: name, order: &order}
	}

	r := ext.NewRegistry(slog.New(slog.DiscardHandler))
	r.Register(mk("first"))
	r.Register(mk("second"))
	r.Register(mk("third"))

	r.EmitShutdown(context.Background())

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("notification order = %v", order)
	}
}

type namedExt struct {
	name  string
	order *[]string
}

func (e namedExt) Name() string { return e.name }

func (e namedExt) OnShutdown(context.Context) error {
	*e.order = append(*e.order, e.name)
	return nil
}
