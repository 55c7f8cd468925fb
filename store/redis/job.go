package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
)

// jobRecord is the MessagePack persistence shape of a job aggregate.
type jobRecord struct {
	ID        string       `msgpack:"id"`
	Status    string       `msgpack:"status"`
	CreatedAt time.Time    `msgpack:"created_at"`
	UpdatedAt time.Time    `msgpack:"updated_at"`
	Tasks     []taskRecord `msgpack:"tasks"`
}

type taskRecord struct {
	ID         string        `msgpack:"id"`
	Index      int           `msgpack:"index"`
	Keyword    string        `msgpack:"keyword"`
	Targets    []postRecord  `msgpack:"targets"`
	Platform   string        `msgpack:"platform"`
	CaptureAll bool          `msgpack:"capture_all"`
	Status     string        `msgpack:"status"`
	Result     *resultRecord `msgpack:"result,omitempty"`
	ErrMessage string        `msgpack:"error_message,omitempty"`
}

type postRecord struct {
	Title string `msgpack:"title,omitempty"`
	URL   string `msgpack:"url"`
}

type resultRecord struct {
	FoundPosts []postRecord `msgpack:"found_posts"`
	Screenshot string       `msgpack:"screenshot,omitempty"`
}

// SaveJob stores the whole aggregate as one blob and tracks its ID.
func (s *Store) SaveJob(ctx context.Context, j *domain.Job) error {
	rec := recordFromJob(j)
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("reporter/redis: marshal job: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobKey(rec.ID), data, 0)
	pipe.SAdd(ctx, jobIDsKey, rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reporter/redis: save job: %w", err)
	}
	return nil
}

// GetJob retrieves a job aggregate by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*domain.Job, error) {
	data, err := s.client.Get(ctx, jobKey(jobID.String())).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("reporter/redis: job %s: %w", jobID, reporter.ErrJobNotFound)
		}
		return nil, fmt.Errorf("reporter/redis: get job: %w", err)
	}

	var rec jobRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("reporter/redis: unmarshal job: %w", err)
	}
	return jobFromRecord(&rec)
}

func recordFromJob(j *domain.Job) *jobRecord {
	rec := &jobRecord{
		ID:        j.ID.String(),
		Status:    string(j.Status),
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
		Tasks:     make([]taskRecord, 0, len(j.Tasks)),
	}
	for _, t := range j.Tasks {
		tr := taskRecord{
			ID:         t.ID.String(),
			Index:      t.Index,
			Keyword:    t.Keyword.Text,
			Targets:    postsToRecords(t.Targets),
			Platform:   string(t.Platform),
			CaptureAll: t.CaptureAll,
			Status:     string(t.Status),
			ErrMessage: t.ErrMessage,
		}
		if t.Result != nil {
			rr := &resultRecord{FoundPosts: postsToRecords(t.Result.FoundPosts)}
			if t.Result.Screenshot != nil {
				rr.Screenshot = t.Result.Screenshot.Path
			}
			tr.Result = rr
		}
		rec.Tasks = append(rec.Tasks, tr)
	}
	return rec
}

func jobFromRecord(rec *jobRecord) (*domain.Job, error) {
	jobID, err := id.ParseJobID(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("reporter/redis: parse job id: %w", err)
	}

	tasks := make([]*domain.Task, 0, len(rec.Tasks))
	for _, tr := range rec.Tasks {
		taskID, err := id.ParseTaskID(tr.ID)
		if err != nil {
			return nil, fmt.Errorf("reporter/redis: parse task id: %w", err)
		}
		t := &domain.Task{
			ID:         taskID,
			Index:      tr.Index,
			Keyword:    domain.Keyword{Text: tr.Keyword},
			Targets:    postsFromRecords(tr.Targets),
			Platform:   domain.Platform(tr.Platform),
			CaptureAll: tr.CaptureAll,
			Status:     domain.TaskStatus(tr.Status),
			ErrMessage: tr.ErrMessage,
		}
		if tr.Result != nil {
			res := &domain.SearchResult{FoundPosts: postsFromRecords(tr.Result.FoundPosts)}
			if tr.Result.Screenshot != "" {
				res.Screenshot = &domain.Screenshot{Path: tr.Result.Screenshot}
			}
			t.Result = res
		}
		tasks = append(tasks, t)
	}

	entity := reporter.Entity{CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt}
	return domain.Restore(jobID, domain.JobStatus(rec.Status), entity, tasks), nil
}

func postsToRecords(posts []domain.Post) []postRecord {
	out := make([]postRecord, 0, len(posts))
	for _, p := range posts {
		out = append(out, postRecord{Title: p.Title, URL: p.URL})
	}
	return out
}

func postsFromRecords(recs []postRecord) []domain.Post {
	out := make([]domain.Post, 0, len(recs))
	for _, r := range recs {
		out = append(out, domain.Post{Title: r.Title, URL: r.URL})
	}
	return out
}
