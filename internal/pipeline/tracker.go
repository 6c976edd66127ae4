package pipeline

import (
	"sync"
	"time"

	"github.com/kweku/ai-procurement/internal/domain/entity"
)

// tracker holds the in-memory view of live jobs and enforces the
// monotonic status order QUEUED -> RUNNING -> {SUCCEEDED | FAILED}.
// Once terminal, a job never changes again.
type tracker struct {
	mu   sync.Mutex
	jobs map[string]*entity.ProcessingJob
}

func newTracker() *tracker {
	return &tracker{jobs: make(map[string]*entity.ProcessingJob)}
}

// Track registers a freshly queued job
func (t *tracker) Track(job *entity.ProcessingJob) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[job.ID] = job
}

// Begin claims the job for execution. It returns false when the job is
// not in QUEUED, which gives every job at most one execution.
func (t *tracker) Begin(jobID string) (*entity.ProcessingJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok || job.Status != entity.JobQueued {
		return nil, false
	}

	now := time.Now()
	job.Status = entity.JobRunning
	job.StartedAt = &now
	return job, true
}

// Complete marks a running job as succeeded and stores its result
func (t *tracker) Complete(jobID string, extraction *entity.ExtractedData, validation *entity.ValidationResult) *entity.ProcessingJob {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok || job.Status != entity.JobRunning {
		return nil
	}

	now := time.Now()
	job.Status = entity.JobSucceeded
	job.Extraction = extraction
	job.Validation = validation
	job.FinishedAt = &now
	return job
}

// Fail marks a running job as failed with an error detail
func (t *tracker) Fail(jobID string, detail string) *entity.ProcessingJob {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok || job.Status != entity.JobRunning {
		return nil
	}

	now := time.Now()
	job.Status = entity.JobFailed
	job.ErrorDetail = detail
	job.FinishedAt = &now
	return job
}

// Get returns the tracked job, or nil when unknown
func (t *tracker) Get(jobID string) *entity.ProcessingJob {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}

// Discard removes a job that never made it into the queue. Only a
// still-QUEUED entry is dropped; a worker that already claimed the job
// keeps it.
func (t *tracker) Discard(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if job, ok := t.jobs[jobID]; ok && job.Status == entity.JobQueued {
		delete(t.jobs, jobID)
	}
}

// Forget drops a terminal job from memory; its row remains in storage
func (t *tracker) Forget(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if job, ok := t.jobs[jobID]; ok && job.Status.IsTerminal() {
		delete(t.jobs, jobID)
	}
}
