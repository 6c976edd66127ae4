package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/port"
	"github.com/kweku/ai-procurement/internal/domain/entity"
	"github.com/kweku/ai-procurement/internal/infrastructure/persistence/sqlite"
)

// JobRepository implements port.JobRepository. Structured results are
// stored as JSON columns; they are immutable snapshots, never queried
// field by field.
type JobRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *sql.DB, logger *zap.Logger) port.JobRepository {
	return &JobRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new processing job
func (r *JobRepository) Create(ctx context.Context, job *entity.ProcessingJob) error {
	inputRefs, extraction, validation, err := marshalJobColumns(job)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO processing_jobs (
			id, kind, request_id, input_refs, status,
			extraction, validation, error_detail,
			queued_at, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		job.ID,
		string(job.Kind),
		job.RequestID,
		inputRefs,
		string(job.Status),
		extraction,
		validation,
		job.ErrorDetail,
		job.QueuedAt,
		job.StartedAt,
		job.FinishedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create job", zap.String("id", job.ID), zap.Error(err))
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by ID; returns nil when unknown
func (r *JobRepository) GetByID(ctx context.Context, id string) (*entity.ProcessingJob, error) {
	query := `
		SELECT id, kind, request_id, input_refs, status,
			extraction, validation, error_detail,
			queued_at, started_at, finished_at
		FROM processing_jobs
		WHERE id = ?
	`

	job, err := scanJob(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get job", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// Update persists the job's status and results
func (r *JobRepository) Update(ctx context.Context, job *entity.ProcessingJob) error {
	inputRefs, extraction, validation, err := marshalJobColumns(job)
	if err != nil {
		return err
	}

	query := `
		UPDATE processing_jobs SET
			input_refs = ?, status = ?, extraction = ?, validation = ?,
			error_detail = ?, started_at = ?, finished_at = ?
		WHERE id = ?
	`

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		inputRefs,
		string(job.Status),
		extraction,
		validation,
		job.ErrorDetail,
		job.StartedAt,
		job.FinishedAt,
		job.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update job", zap.String("id", job.ID), zap.Error(err))
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// Delete removes a job row. Used to unwind an enqueue the queue rejected.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM processing_jobs WHERE id = ?`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete job", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// ListByRequest retrieves jobs for a request, oldest first
func (r *JobRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.ProcessingJob, error) {
	query := `
		SELECT id, kind, request_id, input_refs, status,
			extraction, validation, error_detail,
			queued_at, started_at, finished_at
		FROM processing_jobs
		WHERE request_id = ?
		ORDER BY queued_at
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list jobs", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*entity.ProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func marshalJobColumns(job *entity.ProcessingJob) (string, sql.NullString, sql.NullString, error) {
	inputRefs, err := json.Marshal(job.InputRefs)
	if err != nil {
		return "", sql.NullString{}, sql.NullString{}, fmt.Errorf("failed to marshal input refs: %w", err)
	}

	var extraction, validation sql.NullString
	if job.Extraction != nil {
		data, err := json.Marshal(job.Extraction)
		if err != nil {
			return "", sql.NullString{}, sql.NullString{}, fmt.Errorf("failed to marshal extraction: %w", err)
		}
		extraction = sql.NullString{String: string(data), Valid: true}
	}
	if job.Validation != nil {
		data, err := json.Marshal(job.Validation)
		if err != nil {
			return "", sql.NullString{}, sql.NullString{}, fmt.Errorf("failed to marshal validation: %w", err)
		}
		validation = sql.NullString{String: string(data), Valid: true}
	}

	return string(inputRefs), extraction, validation, nil
}

func scanJob(row rowScanner) (*entity.ProcessingJob, error) {
	var job entity.ProcessingJob
	var inputRefs string
	var extraction, validation sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.Kind,
		&job.RequestID,
		&inputRefs,
		&job.Status,
		&extraction,
		&validation,
		&job.ErrorDetail,
		&job.QueuedAt,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(inputRefs), &job.InputRefs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal input refs: %w", err)
	}
	if extraction.Valid {
		job.Extraction = &entity.ExtractedData{}
		if err := json.Unmarshal([]byte(extraction.String), job.Extraction); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extraction: %w", err)
		}
	}
	if validation.Valid {
		job.Validation = &entity.ValidationResult{}
		if err := json.Unmarshal([]byte(validation.String), job.Validation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validation: %w", err)
		}
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}
	return &job, nil
}

// Verify interface compliance
var _ port.JobRepository = (*JobRepository)(nil)
