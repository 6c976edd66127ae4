package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/port"
	"github.com/kweku/ai-procurement/internal/domain/entity"
	"github.com/kweku/ai-procurement/internal/infrastructure/persistence/sqlite"
)

// DecisionRepository implements port.DecisionRepository
type DecisionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *sql.DB, logger *zap.Logger) port.DecisionRepository {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an approval decision. The UNIQUE(request_id, level)
// constraint makes duplicate decisions fail at the database even under
// concurrent writers.
func (r *DecisionRepository) Create(ctx context.Context, decision *entity.ApprovalDecision) error {
	query := `
		INSERT INTO approval_decisions (
			request_id, level, approver_id, role, decision, comment, decided_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		decision.RequestID,
		decision.Level,
		decision.ApproverID,
		string(decision.Role),
		string(decision.Decision),
		decision.Comment,
		decision.DecidedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create decision",
			zap.String("request_id", decision.RequestID),
			zap.Int("level", decision.Level),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create decision: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	decision.ID = id
	return nil
}

// GetByRequestAndLevel retrieves the decision for one approval level.
// Returns nil when the level is undecided.
func (r *DecisionRepository) GetByRequestAndLevel(ctx context.Context, requestID string, level int) (*entity.ApprovalDecision, error) {
	query := `
		SELECT id, request_id, level, approver_id, role, decision, comment, decided_at
		FROM approval_decisions
		WHERE request_id = ? AND level = ?
	`

	var d entity.ApprovalDecision
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, requestID, level).Scan(
		&d.ID,
		&d.RequestID,
		&d.Level,
		&d.ApproverID,
		&d.Role,
		&d.Decision,
		&d.Comment,
		&d.DecidedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get decision",
			zap.String("request_id", requestID),
			zap.Int("level", level),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return &d, nil
}

// ListByRequest retrieves all decisions for a request ordered by level
func (r *DecisionRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.ApprovalDecision, error) {
	query := `
		SELECT id, request_id, level, approver_id, role, decision, comment, decided_at
		FROM approval_decisions
		WHERE request_id = ?
		ORDER BY level
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list decisions", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*entity.ApprovalDecision
	for rows.Next() {
		var d entity.ApprovalDecision
		err := rows.Scan(
			&d.ID,
			&d.RequestID,
			&d.Level,
			&d.ApproverID,
			&d.Role,
			&d.Decision,
			&d.Comment,
			&d.DecidedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}

// Verify interface compliance
var _ port.DecisionRepository = (*DecisionRepository)(nil)
