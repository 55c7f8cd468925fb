// Package query is the read side: it projects persisted job aggregates
// into flat result DTOs for rendering and export. It never mutates
// state and never publishes events.
package query

import (
	"context"
	"time"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/store"
)

// TaskResult is one row of a job report.
type TaskResult struct {
	Index          int      `json:"index"`
	Keyword        string   `json:"keyword"`
	Platform       string   `json:"platform"`
	Status         string   `json:"status"`
	TargetURLs     []string `json:"target_urls"`
	FoundURLs      []string `json:"found_urls,omitempty"`
	FoundTitles    []string `json:"found_titles,omitempty"`
	ScreenshotPath string   `json:"screenshot_path,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
}

// JobResult is the full report for one job.
type JobResult struct {
	JobID     string       `json:"job_id"`
	Status    string       `json:"status"`
	CreatedAt string       `json:"created_at"`
	Tasks     []TaskResult `json:"tasks"`
}

// Service answers read queries against the job store.
type Service struct {
	store store.Store
}

// NewService creates a Service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// JobResult loads a job and projects it into a report. Returns
// reporter.ErrJobNotFound for unknown IDs.
func (s *Service) JobResult(ctx context.Context, jobID id.JobID) (JobResult, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return JobResult{}, err
	}
	return Project(j), nil
}

// Project converts a job aggregate into its report form. Tasks keep
// their submission order.
func Project(j *domain.Job) JobResult {
	res := JobResult{
		JobID:     j.ID.String(),
		Status:    string(j.Status),
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		Tasks:     make([]TaskResult, 0, len(j.Tasks)),
	}
	for _, t := range j.Tasks {
		tr := TaskResult{
			Index:    t.Index,
			Keyword:  t.Keyword.Text,
			Platform: string(t.Platform),
			Status:   string(t.Status),
		}
		for _, p := range t.Targets {
			tr.TargetURLs = append(tr.TargetURLs, p.URL)
		}
		if t.Result != nil {
			for _, p := range t.Result.FoundPosts {
				tr.FoundURLs = append(tr.FoundURLs, p.URL)
				tr.FoundTitles = append(tr.FoundTitles, p.Title)
			}
			if t.Result.Screenshot != nil {
				tr.ScreenshotPath = t.Result.Screenshot.Path
			}
		}
		if t.ErrMessage != "" {
			tr.ErrorMessage = t.ErrMessage
		}
		res.Tasks = append(res.Tasks, tr)
	}
	return res
}
