package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/port"
	"github.com/kweku/ai-procurement/internal/application/service"
	"github.com/kweku/ai-procurement/internal/domain/entity"
	"github.com/kweku/ai-procurement/internal/infrastructure/persistence/sqlite"
)

// PurchaseOrderRepository implements port.PurchaseOrderRepository
type PurchaseOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPurchaseOrderRepository creates a new purchase order repository
func NewPurchaseOrderRepository(db *sql.DB, logger *zap.Logger) port.PurchaseOrderRepository {
	return &PurchaseOrderRepository{
		db:     db,
		logger: logger,
	}
}

const poColumns = `
	id, po_number, request_id, vendor_name, vendor_address, vendor_email,
	line_items, subtotal, tax_amount, total_amount, currency,
	payment_terms, delivery_terms, file_path, created_at
`

// Create inserts a purchase order. The UNIQUE constraint on request_id
// guarantees a single PO per request.
func (r *PurchaseOrderRepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	lineItems, err := json.Marshal(po.LineItems)
	if err != nil {
		return fmt.Errorf("failed to marshal line items: %w", err)
	}

	query := `
		INSERT INTO purchase_orders (
			id, po_number, request_id, vendor_name, vendor_address, vendor_email,
			line_items, subtotal, tax_amount, total_amount, currency,
			payment_terms, delivery_terms, file_path, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		po.ID,
		po.PONumber,
		po.RequestID,
		po.VendorName,
		po.VendorAddress,
		po.VendorEmail,
		string(lineItems),
		po.Subtotal,
		po.TaxAmount,
		po.TotalAmount,
		po.Currency,
		po.PaymentTerms,
		po.DeliveryTerms,
		po.FilePath,
		po.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create purchase order", zap.String("id", po.ID), zap.Error(err))
		return fmt.Errorf("failed to create purchase order: %w", err)
	}
	return nil
}

// GetByID retrieves a purchase order by ID
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	query := `SELECT ` + poColumns + ` FROM purchase_orders WHERE id = ?`
	return r.getOne(ctx, query, id)
}

// GetByRequestID retrieves the purchase order generated for a request.
// Returns nil when no PO exists yet.
func (r *PurchaseOrderRepository) GetByRequestID(ctx context.Context, requestID string) (*entity.PurchaseOrder, error) {
	query := `SELECT ` + poColumns + ` FROM purchase_orders WHERE request_id = ?`

	po, err := scanPurchaseOrder(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, requestID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get purchase order by request", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}
	return po, nil
}

// Update persists mutable PO fields, in practice only the file path
func (r *PurchaseOrderRepository) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	lineItems, err := json.Marshal(po.LineItems)
	if err != nil {
		return fmt.Errorf("failed to marshal line items: %w", err)
	}

	query := `
		UPDATE purchase_orders SET
			vendor_name = ?, vendor_address = ?, vendor_email = ?,
			line_items = ?, subtotal = ?, tax_amount = ?, total_amount = ?,
			currency = ?, payment_terms = ?, delivery_terms = ?, file_path = ?
		WHERE id = ?
	`

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		po.VendorName,
		po.VendorAddress,
		po.VendorEmail,
		string(lineItems),
		po.Subtotal,
		po.TaxAmount,
		po.TotalAmount,
		po.Currency,
		po.PaymentTerms,
		po.DeliveryTerms,
		po.FilePath,
		po.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update purchase order", zap.String("id", po.ID), zap.Error(err))
		return fmt.Errorf("failed to update purchase order: %w", err)
	}
	return nil
}

func (r *PurchaseOrderRepository) getOne(ctx context.Context, query string, arg interface{}) (*entity.PurchaseOrder, error) {
	po, err := scanPurchaseOrder(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, service.ErrNoPurchaseOrder
	}
	if err != nil {
		r.logger.Error("Failed to get purchase order", zap.Error(err))
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}
	return po, nil
}

func scanPurchaseOrder(row rowScanner) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	var lineItems string

	err := row.Scan(
		&po.ID,
		&po.PONumber,
		&po.RequestID,
		&po.VendorName,
		&po.VendorAddress,
		&po.VendorEmail,
		&lineItems,
		&po.Subtotal,
		&po.TaxAmount,
		&po.TotalAmount,
		&po.Currency,
		&po.PaymentTerms,
		&po.DeliveryTerms,
		&po.FilePath,
		&po.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(lineItems), &po.LineItems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal line items: %w", err)
	}
	return &po, nil
}

// Verify interface compliance
var _ port.PurchaseOrderRepository = (*PurchaseOrderRepository)(nil)
