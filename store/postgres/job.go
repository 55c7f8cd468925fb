package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
)

// SaveJob persists the aggregate whole: the job row is upserted, the
// task rows are deleted and rewritten, all inside one transaction.
func (s *Store) SaveJob(ctx context.Context, j *domain.Job) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("reporter/postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO search_jobs (id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		j.ID.String(), string(j.Status), j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("reporter/postgres: save job: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM search_tasks WHERE job_id = $1`, j.ID.String()); err != nil {
		return fmt.Errorf("reporter/postgres: clear tasks: %w", err)
	}

	batch := &pgx.Batch{}
	for _, t := range j.Tasks {
		targets, err := json.Marshal(t.Targets)
		if err != nil {
			return fmt.Errorf("reporter/postgres: marshal targets: %w", err)
		}
		var result []byte
		if t.Result != nil {
			result, err = json.Marshal(t.Result)
			if err != nil {
				return fmt.Errorf("reporter/postgres: marshal result: %w", err)
			}
		}
		batch.Queue(`
			INSERT INTO search_tasks (
				id, job_id, idx, keyword, targets, platform,
				capture_all, status, result, error_message
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			t.ID.String(), j.ID.String(), t.Index, t.Keyword.Text, targets,
			string(t.Platform), t.CaptureAll, string(t.Status), result, t.ErrMessage,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("reporter/postgres: save tasks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("reporter/postgres: commit: %w", err)
	}
	return nil
}

// GetJob retrieves a job with its tasks in submission order.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*domain.Job, error) {
	var (
		status string
		entity reporter.Entity
	)
	err := s.pool.QueryRow(ctx, `
		SELECT status, created_at, updated_at
		FROM search_jobs
		WHERE id = $1`,
		jobID.String(),
	).Scan(&status, &entity.CreatedAt, &entity.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", reporter.ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("reporter/postgres: get job: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, idx, keyword, targets, platform,
		       capture_all, status, result, error_message
		FROM search_tasks
		WHERE job_id = $1
		ORDER BY idx ASC`,
		jobID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("reporter/postgres: get tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("reporter/postgres: scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reporter/postgres: iterate tasks: %w", err)
	}

	return domain.Restore(jobID, domain.JobStatus(status), entity, tasks), nil
}

func scanTask(rows pgx.Rows) (*domain.Task, error) {
	var (
		rawID      string
		index      int
		keyword    string
		targets    []byte
		platform   string
		captureAll bool
		status     string
		result     []byte
		errMsg     string
	)
	if err := rows.Scan(&rawID, &index, &keyword, &targets, &platform,
		&captureAll, &status, &result, &errMsg); err != nil {
		return nil, err
	}

	taskID, err := id.ParseTaskID(rawID)
	if err != nil {
		return nil, err
	}

	t := &domain.Task{
		ID:         taskID,
		Index:      index,
		Keyword:    domain.Keyword{Text: keyword},
		Platform:   domain.Platform(platform),
		CaptureAll: captureAll,
		Status:     domain.TaskStatus(status),
		ErrMessage: errMsg,
	}
	if err := json.Unmarshal(targets, &t.Targets); err != nil {
		return nil, err
	}
	if len(result) > 0 {
		t.Result = &domain.SearchResult{}
		if err := json.Unmarshal(result, t.Result); err != nil {
			return nil, err
		}
	}
	return t, nil
}
