package port

import (
	"context"

	"github.com/kweku/ai-procurement/internal/domain/entity"
)

// RequestFilter narrows listing queries over purchase requests
type RequestFilter struct {
	Status      string
	RequesterID string
	MinAmount   *float64
	MaxAmount   *float64
	Limit       int
	Offset      int
}

// RequestRepository persists purchase requests
type RequestRepository interface {
	Create(ctx context.Context, req *entity.PurchaseRequest) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseRequest, error)
	Update(ctx context.Context, req *entity.PurchaseRequest) error
	List(ctx context.Context, filter RequestFilter) ([]*entity.PurchaseRequest, error)
	Count(ctx context.Context, filter RequestFilter) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// DecisionRepository persists approval decisions
type DecisionRepository interface {
	Create(ctx context.Context, decision *entity.ApprovalDecision) error
	GetByRequestAndLevel(ctx context.Context, requestID string, level int) (*entity.ApprovalDecision, error)
	ListByRequest(ctx context.Context, requestID string) ([]*entity.ApprovalDecision, error)
}

// JobRepository persists processing jobs
type JobRepository interface {
	Create(ctx context.Context, job *entity.ProcessingJob) error
	GetByID(ctx context.Context, id string) (*entity.ProcessingJob, error)
	Update(ctx context.Context, job *entity.ProcessingJob) error
	Delete(ctx context.Context, id string) error
	ListByRequest(ctx context.Context, requestID string) ([]*entity.ProcessingJob, error)
}

// PurchaseOrderRepository persists generated purchase orders
type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	GetByRequestID(ctx context.Context, requestID string) (*entity.PurchaseOrder, error)
	Update(ctx context.Context, po *entity.PurchaseOrder) error
}

// TransactionManager provides transactional execution across repositories.
// The transaction travels in the context; repository methods pick it up
// when present and fall back to the plain connection when not.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
