package domain_test

import (
	"errors"
	"testing"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
)

func mustKeyword(t *testing.T, text string) domain.Keyword {
	t.Helper()
	kw, err := domain.NewKeyword(text)
	if err != nil {
		t.Fatalf("NewKeyword(%q) failed: %v", text, err)
	}
	return kw
}

func newTestJob(t *testing.T, taskCount int) *domain.Job {
	t.Helper()
	tasks := make([]*domain.Task, 0, taskCount)
	for i := range taskCount {
		tasks = append(tasks, domain.NewTask(
			i,
			mustKeyword(t, "성수 카페"),
			[]domain.Post{{URL: "https://blog.naver.com/post1"}},
			domain.NaverBlog,
			false,
		))
	}
	return domain.NewJob(id.NewJobID(), tasks)
}

func TestNewKeyword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain text", "강남 맛집", "강남 맛집", false},
		{"trims whitespace", "  제주도 여행  ", "제주도 여행", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kw, err := domain.NewKeyword(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if kw.Text != tt.want {
				t.Errorf("got %q, want %q", kw.Text, tt.want)
			}
		})
	}
}

func TestNewTaskDedupesTargets(t *testing.T) {
	t.Parallel()

	task := domain.NewTask(0, mustKeyword(t, "성수 카페"), []domain.Post{
		{URL: "https://blog.naver.com/a"},
		{URL: "https://blog.naver.com/b"},
		{URL: "https://blog.naver.com/a"},
	}, domain.NaverBlog, false)

	if len(task.Targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(task.Targets))
	}
	if task.Targets[0].URL != "https://blog.naver.com/a" || task.Targets[1].URL != "https://blog.naver.com/b" {
		t.Errorf("dedup should keep first occurrence order, got %v", task.Targets)
	}
	if task.Status != domain.TaskPending {
		t.Errorf("new task status = %q, want pending", task.Status)
	}
}

func TestTaskIdentityNotStructural(t *testing.T) {
	t.Parallel()

	kw := mustKeyword(t, "성수 카페")
	targets := []domain.Post{{URL: "https://blog.naver.com/a"}}
	a := domain.NewTask(0, kw, targets, domain.NaverBlog, false)
	b := domain.NewTask(0, kw, targets, domain.NaverBlog, false)

	if a.ID.String() == b.ID.String() {
		t.Error("two tasks with identical fields must have distinct identities")
	}
}

func TestNewJobStampsCreated(t *testing.T) {
	t.Parallel()

	job := newTestJob(t, 2)
	if job.Status != domain.JobStatusPending {
		t.Fatalf("new job status = %q, want pending", job.Status)
	}

	events := job.PullEvents()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	created, ok := events[0].(domain.JobCreated)
	if !ok {
		t.Fatalf("got %T, want JobCreated", events[0])
	}
	if created.JobID.String() != job.ID.String() {
		t.Errorf("event job id = %s, want %s", created.JobID, job.ID)
	}
	if created.CreatedAt.IsZero() {
		t.Error("JobCreated.CreatedAt must be stamped")
	}
}

func TestStartTransitions(t *testing.T) {
	t.Parallel()

	job := newTestJob(t, 1)
	if err := job.Start(); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if job.Status != domain.JobStatusRunning {
		t.Fatalf("status = %q, want running", job.Status)
	}

	err := job.Start()
	if !errors.Is(err, reporter.ErrInvalidState) {
		t.Fatalf("second Start error = %v, want ErrInvalidState", err)
	}
}

func TestPullEventsDrains(t *testing.T) {
	t.Parallel()

	job := newTestJob(t, 1)
	if err := job.Start(); err != nil {
		t.Fatal(err)
	}

	first := job.PullEvents()
	if len(first) != 2 { // JobCreated + JobStarted
		t.Fatalf("first pull returned %d events, want 2", len(first))
	}
	second := job.PullEvents()
	if len(second) != 0 {
		t.Fatalf("second pull returned %d events, want 0", len(second))
	}
}

func TestRecordTaskResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result domain.SearchResult
		want   domain.TaskStatus
	}{
		{
			name: "match found",
			result: domain.SearchResult{
				FoundPosts: []domain.Post{{URL: "https://blog.naver.com/post1"}},
				Screenshot: &domain.Screenshot{Path: "shot.html"},
			},
			want: domain.TaskFound,
		},
		{
			name:   "no match",
			result: domain.SearchResult{},
			want:   domain.TaskNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := newTestJob(t, 1)
			if err := job.Start(); err != nil {
				t.Fatal(err)
			}
			job.PullEvents()

			task := job.Tasks[0]
			job.RecordTaskResult(task.ID, tt.result)

			if task.Status != tt.want {
				t.Errorf("task status = %q, want %q", task.Status, tt.want)
			}
			if task.Result == nil {
				t.Fatal("task result must be stored")
			}

			events := job.PullEvents()
			if len(events) != 1 {
				t.Fatalf("got %d events, want 1", len(events))
			}
			completed, ok := events[0].(domain.TaskCompleted)
			if !ok {
				t.Fatalf("got %T, want TaskCompleted", events[0])
			}
			if completed.Status != tt.want {
				t.Errorf("event status = %q, want %q", completed.Status, tt.want)
			}
		})
	}
}

func TestRecordTaskError(t *testing.T) {
	t.Parallel()

	job := newTestJob(t, 1)
	if err := job.Start(); err != nil {
		t.Fatal(err)
	}
	job.PullEvents()

	task := job.Tasks[0]
	job.RecordTaskError(task.ID, "page structure changed")

	if task.Status != domain.TaskError {
		t.Fatalf("task status = %q, want error", task.Status)
	}
	if task.ErrMessage != "page structure changed" {
		t.Errorf("error message = %q", task.ErrMessage)
	}

	events := job.PullEvents()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if completed := events[0].(domain.TaskCompleted); completed.Status != domain.TaskError {
		t.Errorf("event status = %q, want error", completed.Status)
	}
}

func TestRecordUnknownTaskIsNoOp(t *testing.T) {
	t.Parallel()

	job := newTestJob(t, 1)
	if err := job.Start(); err != nil {
		t.Fatal(err)
	}
	job.PullEvents()

	job.RecordTaskResult(id.NewTaskID(), domain.SearchResult{})
	job.RecordTaskError(id.NewTaskID(), "boom")

	if got := len(job.PullEvents()); got != 0 {
		t.Fatalf("unknown task ids stamped %d events, want 0", got)
	}
	if job.Tasks[0].Status != domain.TaskPending {
		t.Errorf("task status = %q, want pending", job.Tasks[0].Status)
	}
}

func TestCheckCompletion(t *testing.T) {
	t.Parallel()

	job := newTestJob(t, 2)
	if err := job.Start(); err != nil {
		t.Fatal(err)
	}
	job.PullEvents()

	// One task still pending: no completion.
	job.RecordTaskResult(job.Tasks[0].ID, domain.SearchResult{})
	job.CheckCompletion()
	if job.Status != domain.JobStatusRunning {
		t.Fatalf("status = %q, want running while a task is pending", job.Status)
	}

	// Last task resolves with an error: job still completes.
	job.RecordTaskError(job.Tasks[1].ID, "timeout")
	job.CheckCompletion()
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %q, want completed", job.Status)
	}

	events := job.PullEvents()
	var completions int
	for _, e := range events {
		if _, ok := e.(domain.JobCompleted); ok {
			completions++
		}
	}
	if completions != 1 {
		t.Fatalf("JobCompleted stamped %d times, want 1", completions)
	}

	// Idempotent: further checks append nothing.
	job.CheckCompletion()
	job.CheckCompletion()
	if got := len(job.PullEvents()); got != 0 {
		t.Fatalf("repeated CheckCompletion stamped %d events, want 0", got)
	}
}

func TestEmptyJobCompletesImmediately(t *testing.T) {
	t.Parallel()

	job := domain.NewJob(id.NewJobID(), nil)
	if err := job.Start(); err != nil {
		t.Fatal(err)
	}
	job.CheckCompletion()

	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %q, want completed for empty job", job.Status)
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	job := newTestJob(t, 1)
	if err := job.Start(); err != nil {
		t.Fatal(err)
	}
	job.RecordTaskResult(job.Tasks[0].ID, domain.SearchResult{
		FoundPosts: []domain.Post{{URL: "https://blog.naver.com/post1"}},
		Screenshot: &domain.Screenshot{Path: "shot.html"},
	})

	cp := job.Clone()

	// Mutating the clone must not leak into the original.
	cp.Tasks[0].Status = domain.TaskError
	cp.Tasks[0].Result.FoundPosts[0].URL = "https://example.com/changed"
	if job.Tasks[0].Status != domain.TaskFound {
		t.Error("clone shares task state with original")
	}
	if job.Tasks[0].Result.FoundPosts[0].URL != "https://blog.naver.com/post1" {
		t.Error("clone shares result slice with original")
	}

	// Clones never carry pending events.
	if got := len(cp.PullEvents()); got != 0 {
		t.Fatalf("clone carried %d pending events, want 0", got)
	}
	if got := len(job.PullEvents()); got == 0 {
		t.Fatal("original lost its pending events")
	}
}

func TestRestoreDoesNotStampEvents(t *testing.T) {
	t.Parallel()

	original := newTestJob(t, 1)
	restored := domain.Restore(original.ID, domain.JobStatusRunning, original.Entity, original.Tasks)

	if restored.Status != domain.JobStatusRunning {
		t.Fatalf("status = %q, want running", restored.Status)
	}
	if got := len(restored.PullEvents()); got != 0 {
		t.Fatalf("Restore stamped %d events, want 0", got)
	}
}
