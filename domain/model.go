package domain

import (
	"fmt"
	"strings"
	"time"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
)

// Platform tags the search platform a task runs against.
type Platform string

// Known platforms. Adapters register themselves with the platform factory
// under one of these tags.
const (
	NaverBlog Platform = "naver_blog"
)

// Keyword is the search keyword value object. Text is never empty.
type Keyword struct {
	Text string `json:"text"`
}

// NewKeyword validates and returns a Keyword.
func NewKeyword(text string) (Keyword, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Keyword{}, fmt.Errorf("domain: keyword must not be empty")
	}
	return Keyword{Text: trimmed}, nil
}

// Post is a blog post reference. Targets carry only a URL; posts found
// in search results also carry the listed title.
type Post struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// Screenshot references a capture artifact on disk.
type Screenshot struct {
	Path string `json:"path"`
}

// SearchResult is the outcome of one platform search: the subset of the
// task's targets that appeared among the top organic results, plus an
// optional capture artifact. Produced exactly once per task.
type SearchResult struct {
	FoundPosts []Post      `json:"found_posts"`
	Screenshot *Screenshot `json:"screenshot,omitempty"`
}

// TaskStatus is the lifecycle state of a single search task.
type TaskStatus string

const (
	// TaskPending means the task has not been resolved yet.
	TaskPending TaskStatus = "pending"
	// TaskFound means at least one target post appeared in the results.
	TaskFound TaskStatus = "found"
	// TaskNotFound means the search succeeded but no target matched.
	TaskNotFound TaskStatus = "not_found"
	// TaskError means the platform call failed; ErrMessage holds why.
	TaskError TaskStatus = "error"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	// JobStatusPending means the job has been created but not started.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning means tasks are being executed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted means every task has left pending. Terminal.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed is reserved; no current transition produces it.
	JobStatusFailed JobStatus = "failed"
)

// Task is one keyword search owned by a Job. Identity is the task ID:
// two tasks with identical keyword and targets are still distinct.
type Task struct {
	ID         id.TaskID     `json:"id"`
	Index      int           `json:"index"`
	Keyword    Keyword       `json:"keyword"`
	Targets    []Post        `json:"targets"`
	Platform   Platform      `json:"platform"`
	CaptureAll bool          `json:"capture_all"`
	Status     TaskStatus    `json:"status"`
	Result     *SearchResult `json:"result,omitempty"`
	ErrMessage string        `json:"error_message,omitempty"`
}

// NewTask creates a pending Task. Duplicate target URLs are dropped,
// first occurrence wins.
func NewTask(index int, keyword Keyword, targets []Post, platform Platform, captureAll bool) *Task {
	seen := make(map[string]struct{}, len(targets))
	deduped := make([]Post, 0, len(targets))
	for _, p := range targets {
		if _, ok := seen[p.URL]; ok {
			continue
		}
		seen[p.URL] = struct{}{}
		deduped = append(deduped, p)
	}

	return &Task{
		ID:         id.NewTaskID(),
		Index:      index,
		Keyword:    keyword,
		Targets:    deduped,
		Platform:   platform,
		CaptureAll: captureAll,
		Status:     TaskPending,
	}
}

func (t *Task) clone() *Task {
	cp := *t
	cp.Targets = append([]Post(nil), t.Targets...)
	if t.Result != nil {
		r := SearchResult{FoundPosts: append([]Post(nil), t.Result.FoundPosts...)}
		if t.Result.Screenshot != nil {
			s := *t.Result.Screenshot
			r.Screenshot = &s
		}
		cp.Result = &r
	}
	return &cp
}

// Job is the aggregate root: an ordered batch of search tasks moving
// through pending → running → completed as one unit.
type Job struct {
	reporter.Entity

	ID     id.JobID  `json:"id"`
	Status JobStatus `json:"status"`
	Tasks  []*Task   `json:"tasks"`

	// events collects pending domain events until the next drain.
	// Never persisted.
	events []Event
}

// NewJob is the aggregate factory. It constructs a pending Job and stamps
// a JobCreated event. An empty task list is legal; such a job becomes
// eligible for completion on the first completion check.
func NewJob(jobID id.JobID, tasks []*Task) *Job {
	j := &Job{
		Entity: reporter.NewEntity(),
		ID:     jobID,
		Status: JobStatusPending,
		Tasks:  tasks,
	}
	j.events = append(j.events, JobCreated{JobID: j.ID, CreatedAt: j.CreatedAt})
	return j
}

// Restore rebuilds a Job from persisted state without stamping events.
// Stores use it when loading; it must never be used to create new jobs.
func Restore(jobID id.JobID, status JobStatus, entity reporter.Entity, tasks []*Task) *Job {
	return &Job{
		Entity: entity,
		ID:     jobID,
		Status: status,
		Tasks:  tasks,
	}
}

// Start moves the job from pending to running and stamps JobStarted.
func (j *Job) Start() error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("%w: job %s already started or finished", reporter.ErrInvalidState, j.ID)
	}
	j.Status = JobStatusRunning
	j.events = append(j.events, JobStarted{JobID: j.ID})
	return nil
}

// RecordTaskResult stores a task's search result, resolves its status,
// and stamps TaskCompleted. An unknown task ID is silently ignored:
// late or duplicate delivery is benign, not corruption.
func (j *Job) RecordTaskResult(taskID id.TaskID, result SearchResult) {
	task, ok := j.Task(taskID)
	if !ok {
		return
	}

	if len(result.FoundPosts) > 0 {
		task.Status = TaskFound
	} else {
		task.Status = TaskNotFound
	}
	task.Result = &result

	j.events = append(j.events, TaskCompleted{JobID: j.ID, TaskID: task.ID, Status: task.Status})
}

// RecordTaskError marks a task as failed with the capability's error
// message and stamps TaskCompleted. Unknown task IDs are ignored, same
// as RecordTaskResult.
func (j *Job) RecordTaskError(taskID id.TaskID, message string) {
	task, ok := j.Task(taskID)
	if !ok {
		return
	}

	task.Status = TaskError
	task.ErrMessage = message

	j.events = append(j.events, TaskCompleted{JobID: j.ID, TaskID: task.ID, Status: task.Status})
}

// CheckCompletion transitions the job to completed once every task has
// left pending. Idempotent: JobCompleted is stamped exactly once; calling
// again after completion appends nothing.
func (j *Job) CheckCompletion() {
	if j.Status == JobStatusCompleted {
		return
	}
	for _, t := range j.Tasks {
		if t.Status == TaskPending {
			return
		}
	}
	j.Status = JobStatusCompleted
	j.events = append(j.events, JobCompleted{JobID: j.ID})
}

// PullEvents returns the pending events and clears the list. Events not
// pulled before the aggregate is discarded are lost, so callers must
// drain before dropping their reference.
func (j *Job) PullEvents() []Event {
	pulled := j.events
	j.events = nil
	return pulled
}

// Task returns the task with the given ID.
func (j *Job) Task(taskID id.TaskID) (*Task, bool) {
	for _, t := range j.Tasks {
		if t.ID.String() == taskID.String() {
			return t, true
		}
	}
	return nil, false
}

// Clone deep-copies the job's persistent state. Pending events are not
// carried over; only the live aggregate owns them.
func (j *Job) Clone() *Job {
	cp := &Job{
		Entity: j.Entity,
		ID:     j.ID,
		Status: j.Status,
		Tasks:  make([]*Task, len(j.Tasks)),
	}
	for i, t := range j.Tasks {
		cp.Tasks[i] = t.clone()
	}
	return cp
}

// Touch refreshes the aggregate's UpdatedAt stamp.
func (j *Job) Touch(now time.Time) {
	j.UpdatedAt = now
}
