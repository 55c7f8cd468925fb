package domain

import (
	"time"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
)

// Message is anything the bus can route. Concrete messages are either
// Commands or Events, distinguished by capability interface rather than
// a shared base type.
type Message interface {
	// MessageName is the stable routing key for this message type.
	MessageName() string
}

// Command requests an action. The bus routes a command to exactly one
// registered handler.
type Command interface {
	Message
	isCommand()
}

// Event announces that something happened. The bus routes an event to
// every subscribed handler in subscription order.
type Event interface {
	Message
	isEvent()
}

// Message names. Registration and dispatch key on these.
const (
	NameCreateJob     = "create_job"
	NameExecuteTask   = "execute_task"
	NameJobCreated    = "job_created"
	NameJobStarted    = "job_started"
	NameTaskCompleted = "task_completed"
	NameJobCompleted  = "job_completed"
)

// ──────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────

// TaskSpec is the submission-boundary shape of one task: raw keyword
// text and URLs as entered by the operator, not yet value objects.
type TaskSpec struct {
	Index      int
	Keyword    string
	URLs       []string
	Platform   Platform
	CaptureAll bool
}

// CreateJob asks for a new job with the given caller-chosen ID.
type CreateJob struct {
	JobID id.JobID
	Tasks []TaskSpec
}

func (CreateJob) MessageName() string { return NameCreateJob }
func (CreateJob) isCommand()          {}

// ExecuteTask asks for one task of a running job to be executed against
// its platform.
type ExecuteTask struct {
	JobID  id.JobID
	TaskID id.TaskID
}

func (ExecuteTask) MessageName() string { return NameExecuteTask }
func (ExecuteTask) isCommand()          {}

// ──────────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────────

// JobCreated is stamped by the Job factory.
type JobCreated struct {
	JobID     id.JobID
	CreatedAt time.Time
}

func (JobCreated) MessageName() string { return NameJobCreated }
func (JobCreated) isEvent()            {}

// JobStarted is stamped when a pending job starts running.
type JobStarted struct {
	JobID id.JobID
}

func (JobStarted) MessageName() string { return NameJobStarted }
func (JobStarted) isEvent()            {}

// TaskCompleted is stamped whenever a task leaves pending, whether it
// resolved to found, not found, or error.
type TaskCompleted struct {
	JobID  id.JobID
	TaskID id.TaskID
	Status TaskStatus
}

func (TaskCompleted) MessageName() string { return NameTaskCompleted }
func (TaskCompleted) isEvent()            {}

// JobCompleted is stamped exactly once, when the last task resolves.
type JobCompleted struct {
	JobID id.JobID
}

func (JobCompleted) MessageName() string { return NameJobCompleted }
func (JobCompleted) isEvent()            {}
