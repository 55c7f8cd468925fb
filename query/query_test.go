package query_test

import (
	"context"
	"errors"
	"testing"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/query"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/store/memory"
)

func buildJob(t *testing.T) *domain.Job {
	t.Helper()
	first, err := domain.NewKeyword("성수 카페")
	if err != nil {
		t.Fatalf("NewKeyword: %v", err)
	}
	second, err := domain.NewKeyword("망원 맛집")
	if err != nil {
		t.Fatalf("NewKeyword: %v", err)
	}

	tasks := []*domain.Task{
		domain.NewTask(0, first, []domain.Post{
			{Title: "성수 카페 추천", URL: "https://blog.naver.com/foodie/223001"},
		}, domain.NaverBlog, false),
		domain.NewTask(1, second, []domain.Post{
			{URL: "https://blog.naver.com/hungry/223002"},
		}, domain.NaverBlog, false),
	}
	job := domain.NewJob(id.NewJobID(), tasks)
	job.PullEvents()

	if err := job.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	job.RecordTaskResult(tasks[0].ID, domain.SearchResult{
		FoundPosts: []domain.Post{
			{Title: "성수 카페 추천", URL: "https://blog.naver.com/foodie/223001"},
		},
		Screenshot: &domain.Screenshot{Path: "screenshots/01_성수_카페.html"},
	})
	job.RecordTaskError(tasks[1].ID, "search page returned 429")
	job.CheckCompletion()
	job.PullEvents()
	return job
}

func TestProject(t *testing.T) {
	t.Parallel()

	job := buildJob(t)
	res := query.Project(job)

	if res.JobID != job.ID.String() {
		t.Fatalf("JobID = %q", res.JobID)
	}
	if res.Status != "completed" {
		t.Fatalf("Status = %q, want completed", res.Status)
	}
	if len(res.Tasks) != 2 {
		t.Fatalf("projected %d tasks, want 2", len(res.Tasks))
	}

	found := res.Tasks[0]
	if found.Keyword != "성수 카페" || found.Status != "found" {
		t.Fatalf("task 0 = %+v", found)
	}
	if len(found.FoundURLs) != 1 || found.FoundURLs[0] != "https://blog.naver.com/foodie/223001" {
		t.Fatalf("task 0 FoundURLs = %v", found.FoundURLs)
	}
	if found.ScreenshotPath != "screenshots/01_성수_카페.html" {
		t.Fatalf("task 0 ScreenshotPath = %q", found.ScreenshotPath)
	}
	if found.ErrorMessage != "" {
		t.Fatalf("task 0 ErrorMessage = %q, want empty", found.ErrorMessage)
	}

	failed := res.Tasks[1]
	if failed.Status != "error" {
		t.Fatalf("task 1 Status = %q, want error", failed.Status)
	}
	if failed.ErrorMessage != "search page returned 429" {
		t.Fatalf("task 1 ErrorMessage = %q", failed.ErrorMessage)
	}
	if failed.ScreenshotPath != "" || len(failed.FoundURLs) != 0 {
		t.Fatalf("task 1 carries result data: %+v", failed)
	}
}

func TestJobResultLoadsFromStore(t *testing.T) {
	t.Parallel()

	st := memory.New()
	job := buildJob(t)
	if err := st.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	svc := query.NewService(st)
	res, err := svc.JobResult(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("JobResult: %v", err)
	}
	if res.JobID != job.ID.String() || len(res.Tasks) != 2 {
		t.Fatalf("unexpected projection: %+v", res)
	}
}

func TestJobResultUnknownJob(t *testing.T) {
	t.Parallel()

	svc := query.NewService(memory.New())
	if _, err := svc.JobResult(context.Background(), id.NewJobID()); !errors.Is(err, reporter.ErrJobNotFound) {
		t.Fatalf("JobResult = %v, want ErrJobNotFound", err)
	}
}
