// Package jobs defines the asynchronous statement-analysis job model and
// the queue abstractions it travels through.
package jobs

import (
	"context"
	"time"
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

// AnalyzeStatementJob asks the worker to fetch a statement from GCS, run
// the analysis pipeline and persist the outcome.
type AnalyzeStatementJob struct {
	JobID  string `json:"job_id"`
	GCSURI string `json:"gcs_uri"`
	UserID string `json:"user_id"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// TransactionCount is filled on success for quick status display.
	TransactionCount int `json:"transaction_count,omitempty"`
}

// Publisher enqueues analysis jobs. The abstraction allows swapping the
// in-memory queue for Cloud Tasks or Pub/Sub later.
type Publisher interface {
	PublishAnalyzeStatement(ctx context.Context, job *AnalyzeStatementJob) error
	Close() error
}

// JobHandler processes one job; a returned error requests a retry.
type JobHandler func(ctx context.Context, job *AnalyzeStatementJob) error

// Consumer pulls jobs off the queue and feeds them to a handler.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}

// JobStore tracks job state for status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *AnalyzeStatementJob) error
	GetJob(ctx context.Context, jobID string) (*AnalyzeStatementJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*AnalyzeStatementJob, error)
}

// JobFilter selects jobs in ListJobs.
type JobFilter struct {
	UserID string
	Status JobStatus
	Limit  int
}
