package entity

import "time"

// JobKind identifies what a processing job does
type JobKind string

const (
	JobKindExtraction        JobKind = "EXTRACTION"
	JobKindReceiptValidation JobKind = "RECEIPT_VALIDATION"
)

// JobStatus is the lifecycle state of a processing job.
// Transitions are monotonic: QUEUED -> RUNNING -> {SUCCEEDED | FAILED}.
type JobStatus string

const (
	JobQueued    JobStatus = "QUEUED"
	JobRunning   JobStatus = "RUNNING"
	JobSucceeded JobStatus = "SUCCEEDED"
	JobFailed    JobStatus = "FAILED"
)

// IsTerminal returns true once a job can no longer change status
func (s JobStatus) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// ProcessingJob records the lifecycle of one asynchronous unit of work.
// Extraction holds a result iff SUCCEEDED; ErrorDetail iff FAILED.
type ProcessingJob struct {
	ID         string    `json:"id"`
	Kind       JobKind   `json:"kind"`
	RequestID  string    `json:"request_id"`
	InputRefs  []string  `json:"input_refs"`
	Status     JobStatus `json:"status"`

	Extraction *ExtractedData    `json:"extraction,omitempty"`
	Validation *ValidationResult `json:"validation,omitempty"`
	ErrorDetail string           `json:"error_detail,omitempty"`

	QueuedAt   time.Time  `json:"queued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ProcessingTime returns the wall-clock duration of the job body, or zero
// if the job has not finished.
func (j *ProcessingJob) ProcessingTime() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}
