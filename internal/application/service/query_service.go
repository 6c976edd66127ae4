package service

import (
	"context"

	"github.com/kweku/ai-procurement/internal/application/port"
	appworkflow "github.com/kweku/ai-procurement/internal/application/workflow"
	"github.com/kweku/ai-procurement/internal/domain/entity"
	"github.com/kweku/ai-procurement/internal/domain/workflow"
)

// WorkflowInfo is the read model for a request's position in the flow
type WorkflowInfo struct {
	Request           *entity.PurchaseRequest   `json:"request"`
	PermittedTriggers []string                  `json:"permitted_triggers"`
	RequiredLevels    []int                     `json:"required_levels"`
	Decisions         []*entity.ApprovalDecision `json:"decisions"`
	Jobs              []*entity.ProcessingJob   `json:"jobs"`
	Terminal          bool                      `json:"terminal"`
}

// Stats summarizes the request population by status
type Stats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// QueryService serves read-only views over requests, decisions and jobs
type QueryService struct {
	factory   *appworkflow.Factory
	requests  port.RequestRepository
	decisions port.DecisionRepository
	jobs      port.JobRepository
	orders    port.PurchaseOrderRepository
}

// NewQueryService creates the read-side service
func NewQueryService(
	factory *appworkflow.Factory,
	requests port.RequestRepository,
	decisions port.DecisionRepository,
	jobs port.JobRepository,
	orders port.PurchaseOrderRepository,
) *QueryService {
	return &QueryService{
		factory:   factory,
		requests:  requests,
		decisions: decisions,
		jobs:      jobs,
		orders:    orders,
	}
}

// GetRequest returns a single request by ID
func (s *QueryService) GetRequest(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// ListRequests returns requests matching the filter
func (s *QueryService) ListRequests(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, int64, error) {
	items, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.requests.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetWorkflowInfo assembles the full workflow view for one request
func (s *QueryService) GetWorkflowInfo(ctx context.Context, requestID string) (*WorkflowInfo, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	decisions, err := s.decisions.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobs.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	state := workflow.State(req.Status)
	triggers := []string{}
	if state.IsValid() {
		for _, t := range s.factory.MachineFor(state).PermittedTriggers() {
			triggers = append(triggers, t.String())
		}
	}

	return &WorkflowInfo{
		Request:           req,
		PermittedTriggers: triggers,
		RequiredLevels:    entity.RequiredApprovalLevels(req.Amount, s.factory.Threshold()),
		Decisions:         decisions,
		Jobs:              jobs,
		Terminal:          state.IsTerminal(),
	}, nil
}

// GetJob returns a single processing job by ID
func (s *QueryService) GetJob(ctx context.Context, id string) (*entity.ProcessingJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// GetPurchaseOrder returns the PO generated for a request
func (s *QueryService) GetPurchaseOrder(ctx context.Context, requestID string) (*entity.PurchaseOrder, error) {
	po, err := s.orders.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, ErrNoPurchaseOrder
	}
	return po, nil
}

// GetStats returns counts of requests grouped by status
func (s *QueryService) GetStats(ctx context.Context) (*Stats, error) {
	byStatus, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range byStatus {
		total += n
	}
	return &Stats{Total: total, ByStatus: byStatus}, nil
}
