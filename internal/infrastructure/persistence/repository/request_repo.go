package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/port"
	"github.com/kweku/ai-procurement/internal/application/service"
	"github.com/kweku/ai-procurement/internal/domain/entity"
	"github.com/kweku/ai-procurement/internal/infrastructure/persistence/sqlite"
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, title, description, amount, status, requester_id,
	vendor_name, vendor_email, proforma_ref, po_id, receipt_ref,
	needs_manual_review, created_at, updated_at, completed_at
`

// Create inserts a new purchase request
func (r *RequestRepository) Create(ctx context.Context, req *entity.PurchaseRequest) error {
	query := `
		INSERT INTO purchase_requests (
			id, title, description, amount, status, requester_id,
			vendor_name, vendor_email, proforma_ref, po_id, receipt_ref,
			needs_manual_review, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.ID,
		req.Title,
		req.Description,
		req.Amount,
		req.Status,
		req.RequesterID,
		req.VendorName,
		req.VendorEmail,
		req.ProformaRef,
		req.POID,
		req.ReceiptRef,
		req.NeedsManualReview,
		req.CreatedAt,
		req.UpdatedAt,
		req.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// GetByID retrieves a purchase request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM purchase_requests WHERE id = ?`

	req, err := scanRequest(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", service.ErrRequestNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// Update persists all mutable fields of a purchase request
func (r *RequestRepository) Update(ctx context.Context, req *entity.PurchaseRequest) error {
	query := `
		UPDATE purchase_requests SET
			title = ?, description = ?, amount = ?, status = ?,
			vendor_name = ?, vendor_email = ?, proforma_ref = ?,
			po_id = ?, receipt_ref = ?, needs_manual_review = ?,
			updated_at = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.Title,
		req.Description,
		req.Amount,
		req.Status,
		req.VendorName,
		req.VendorEmail,
		req.ProformaRef,
		req.POID,
		req.ReceiptRef,
		req.NeedsManualReview,
		req.UpdatedAt,
		req.CompletedAt,
		req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", service.ErrRequestNotFound, req.ID)
	}
	return nil
}

// List retrieves requests matching the filter, most recent first
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM purchase_requests`
	where, args := buildRequestWhere(filter)
	query += where + ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.PurchaseRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Count returns the number of requests matching the filter
func (r *RequestRepository) Count(ctx context.Context, filter port.RequestFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM purchase_requests`
	where, args := buildRequestWhere(filter)
	query += where

	var count int64
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return count, nil
}

// CountByStatus returns request counts grouped by status
func (r *RequestRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	query := `SELECT status, COUNT(*) FROM purchase_requests GROUP BY status`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func buildRequestWhere(filter port.RequestFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.RequesterID != "" {
		conditions = append(conditions, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.MinAmount != nil {
		conditions = append(conditions, "amount >= ?")
		args = append(args, *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		conditions = append(conditions, "amount <= ?")
		args = append(args, *filter.MaxAmount)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.PurchaseRequest, error) {
	var req entity.PurchaseRequest
	var completedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.Title,
		&req.Description,
		&req.Amount,
		&req.Status,
		&req.RequesterID,
		&req.VendorName,
		&req.VendorEmail,
		&req.ProformaRef,
		&req.POID,
		&req.ReceiptRef,
		&req.NeedsManualReview,
		&req.CreatedAt,
		&req.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		req.CompletedAt = &completedAt.Time
	}
	return &req, nil
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
