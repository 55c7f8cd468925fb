package memory

import (
	"context"
	"errors"
	"testing"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
)

func newJob(t *testing.T) *domain.Job {
	t.Helper()
	kw, err := domain.NewKeyword("강남 맛집")
	if err != nil {
		t.Fatal(err)
	}
	task := domain.NewTask(0, kw, []domain.Post{
		{URL: "https://blog.naver.com/post1"},
		{URL: "https://blog.naver.com/post2"},
	}, domain.NaverBlog, true)
	return domain.NewJob(id.NewJobID(), []*domain.Task{task})
}

func TestLifecycle(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"Migrate", func() error { return s.Migrate(ctx) }},
		{"Ping", func() error { return s.Ping(ctx) }},
		{"Close", func() error { return s.Close() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err != nil {
				t.Fatalf("%s returned error: %v", tt.name, err)
			}
		})
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(t)
	if err := j.Start(); err != nil {
		t.Fatal(err)
	}
	j.RecordTaskResult(j.Tasks[0].ID, domain.SearchResult{
		FoundPosts: []domain.Post{{URL: "https://blog.naver.com/post1"}},
		Screenshot: &domain.Screenshot{Path: "/tmp/captures/shot.html"},
	})

	if err := s.SaveJob(ctx, j); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}

	if got.Status != domain.JobStatusRunning {
		t.Errorf("status = %q, want running", got.Status)
	}
	if len(got.Tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(got.Tasks))
	}
	task := got.Tasks[0]
	if task.Keyword.Text != "강남 맛집" {
		t.Errorf("keyword = %q", task.Keyword.Text)
	}
	if len(task.Targets) != 2 {
		t.Errorf("got %d targets, want 2", len(task.Targets))
	}
	if task.Result == nil || len(task.Result.FoundPosts) != 1 {
		t.Fatal("result not preserved")
	}
	if task.Result.Screenshot == nil || task.Result.Screenshot.Path != "/tmp/captures/shot.html" {
		t.Error("screenshot path not preserved")
	}
}

func TestGetUnknownJob(t *testing.T) {
	t.Parallel()
	s := New()

	_, err := s.GetJob(context.Background(), id.NewJobID())
	if !errors.Is(err, reporter.ErrJobNotFound) {
		t.Fatalf("error = %v, want ErrJobNotFound", err)
	}
}

func TestSaveIsolatesCaller(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(t)
	if err := s.SaveJob(ctx, j); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's aggregate after save must not leak into
	// the stored snapshot.
	j.Tasks[0].Status = domain.TaskError

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tasks[0].Status != domain.TaskPending {
		t.Errorf("stored task status = %q, want pending", got.Tasks[0].Status)
	}

	// Mutating a loaded copy must not leak into the store either.
	got.Tasks[0].Status = domain.TaskError
	again, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Tasks[0].Status != domain.TaskPending {
		t.Errorf("reloaded task status = %q, want pending", again.Tasks[0].Status)
	}
}

func TestSaveReplacesWholeAggregate(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(t)
	if err := s.SaveJob(ctx, j); err != nil {
		t.Fatal(err)
	}

	if err := j.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveJob(ctx, j); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.JobStatusRunning {
		t.Errorf("status = %q, want running after re-save", got.Status)
	}
}
