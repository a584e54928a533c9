package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/domain"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeImportStatement represents a CSV statement import job.
	JobTypeImportStatement JobType = "import_statement"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ImportRow is one parsed statement line waiting to be posted. Account and
// category are referenced by name; the worker resolves them against the
// owner's data at processing time.
type ImportRow struct {
	Date        time.Time              `json:"date"`
	Kind        domain.TransactionKind `json:"kind"`
	Amount      decimal.Decimal        `json:"amount"`
	Account     string                 `json:"account"`
	ToAccount   string                 `json:"to_account,omitempty"`
	Category    string                 `json:"category,omitempty"`
	Description string                 `json:"description,omitempty"`
}

// ImportStatementJob posts a parsed CSV statement asynchronously. Individual
// row failures are recorded in RowErrors and do not fail the job.
type ImportStatementJob struct {
	JobID    string      `json:"job_id"`
	OwnerID  uuid.UUID   `json:"owner_id"`
	Filename string      `json:"filename"`
	Rows     []ImportRow `json:"rows"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`

	// Posted counts rows successfully turned into transactions; RowErrors
	// holds one message per failed row.
	Posted    int      `json:"posted"`
	RowErrors []string `json:"row_errors,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ImportStatementJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ImportStatementJob) GetType() JobType {
	return JobTypeImportStatement
}

// GetStatus implements the Job interface.
func (j *ImportStatementJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
// The in-memory implementation is the only one today; the abstraction keeps
// the door open for an external queue in multi-instance deployments.
type Publisher interface {
	PublishImport(ctx context.Context, job *ImportStatementJob) error
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; handler is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so imports are queryable while and after they
// run.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportStatementJob) error
	GetJob(ctx context.Context, jobID string) (*ImportStatementJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportStatementJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	OwnerID uuid.UUID
	Status  JobStatus
	Limit   int
}
