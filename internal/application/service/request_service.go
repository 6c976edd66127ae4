package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/dispatcher"
	"github.com/kweku/ai-procurement/internal/application/port"
	appworkflow "github.com/kweku/ai-procurement/internal/application/workflow"
	"github.com/kweku/ai-procurement/internal/domain/entity"
	"github.com/kweku/ai-procurement/internal/domain/event"
	"github.com/kweku/ai-procurement/internal/domain/workflow"
)

// Enqueuer submits processing jobs to the asynchronous pipeline
type Enqueuer interface {
	Enqueue(ctx context.Context, job *entity.ProcessingJob) error
}

// CreateRequestInput carries the fields for a new draft request
type CreateRequestInput struct {
	Title       string
	Description string
	Amount      float64
	RequesterID string
	VendorName  string
	VendorEmail string
}

// DecisionInput carries one approval or rejection. Level names the
// approval level the approver intends to decide; it must match the
// level the request is actually waiting on.
type DecisionInput struct {
	RequestID  string
	Level      int
	ApproverID string
	Role       entity.Role
	Decision   entity.Decision
	Comment    string
}

// RequestService drives the purchase-request workflow
type RequestService struct {
	engine     appworkflow.Engine
	factory    *appworkflow.Factory
	requests   port.RequestRepository
	decisions  port.DecisionRepository
	orders     port.PurchaseOrderRepository
	jobs       port.JobRepository
	txManager  port.TransactionManager
	storage    port.FileStorage
	poWriter   port.PurchaseOrderWriter
	enqueuer   Enqueuer
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
}

// NewRequestService wires the workflow service. enqueuer may be nil when
// the pipeline is disabled; document jobs are then simply not queued.
func NewRequestService(
	engine appworkflow.Engine,
	factory *appworkflow.Factory,
	requests port.RequestRepository,
	decisions port.DecisionRepository,
	orders port.PurchaseOrderRepository,
	jobs port.JobRepository,
	txManager port.TransactionManager,
	storage port.FileStorage,
	poWriter port.PurchaseOrderWriter,
	enqueuer Enqueuer,
	disp dispatcher.Dispatcher,
	logger *zap.Logger,
) *RequestService {
	return &RequestService{
		engine:     engine,
		factory:    factory,
		requests:   requests,
		decisions:  decisions,
		orders:     orders,
		jobs:       jobs,
		txManager:  txManager,
		storage:    storage,
		poWriter:   poWriter,
		enqueuer:   enqueuer,
		dispatcher: disp,
		logger:     logger,
	}
}

// SetEnqueuer attaches the pipeline after construction. The service and
// the pipeline reference each other, so one side is wired late.
func (s *RequestService) SetEnqueuer(enqueuer Enqueuer) {
	s.enqueuer = enqueuer
}

// CreateDraft creates a new request in DRAFT
func (s *RequestService) CreateDraft(ctx context.Context, input CreateRequestInput) (*entity.PurchaseRequest, error) {
	now := time.Now()
	req := &entity.PurchaseRequest{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Amount:      input.Amount,
		Status:      workflow.StateDraft.String(),
		RequesterID: input.RequesterID,
		VendorName:  input.VendorName,
		VendorEmail: input.VendorEmail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("draft created",
		zap.String("request_id", req.ID),
		zap.String("requester_id", req.RequesterID),
		zap.Float64("amount", req.Amount),
	)
	return req, nil
}

// AttachProforma stores a proforma document against a draft request
func (s *RequestService) AttachProforma(ctx context.Context, requestID, filename string, content io.Reader) (*entity.PurchaseRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	state := workflow.State(req.Status)
	if state != workflow.StateDraft && state != workflow.StateSubmitted {
		return nil, fmt.Errorf("%w: cannot attach proforma in state %s", workflow.ErrInvalidTransition, state)
	}

	ref, err := s.storage.Save(ctx, filename, content)
	if err != nil {
		return nil, fmt.Errorf("store proforma: %w", err)
	}

	req.ProformaRef = ref
	req.UpdatedAt = time.Now()
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Submit moves a complete draft into the approval flow. A draft without
// a proforma document is incomplete and cannot be submitted. The request
// is routed to level-1 review immediately and an extraction job is
// queued for the proforma.
func (s *RequestService) Submit(ctx context.Context, requestID, actorID string) (*entity.PurchaseRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != actorID {
		return nil, fmt.Errorf("%w: only the requester may submit", ErrUnauthorized)
	}
	if err := validateForSubmission(req); err != nil {
		return nil, err
	}

	if _, err := s.engine.Transition(ctx, requestID, workflow.TriggerSubmit, nil); err != nil {
		return nil, err
	}

	res, err := s.engine.Transition(ctx, requestID, workflow.TriggerRoute, nil)
	if err != nil {
		return nil, err
	}
	req = res.Request

	s.dispatch(ctx, event.NewEvent(event.TypeRequestSubmitted, requestID, map[string]interface{}{
		"title":  req.Title,
		"amount": req.Amount,
		"levels": len(entity.RequiredApprovalLevels(req.Amount, s.factory.Threshold())),
	}))

	if _, err := s.enqueueJob(ctx, req, entity.JobKindExtraction, []string{req.ProformaRef}); err != nil {
		s.logger.Warn("proforma extraction not queued",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
	return req, nil
}

func validateForSubmission(req *entity.PurchaseRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrIncompleteRequest)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrIncompleteRequest)
	}
	if req.RequesterID == "" {
		return fmt.Errorf("%w: requester is required", ErrIncompleteRequest)
	}
	if req.ProformaRef == "" {
		return fmt.Errorf("%w: proforma document is required", ErrIncompleteRequest)
	}
	return nil
}

// RecordDecision records an approval or rejection for the stated level.
// A level that already carries a decision conflicts, regardless of how
// far the request has moved since. A rejection at any level is final for
// the whole request. The decision row is written in the same transaction
// as the state change, so at most one decision can ever exist per level.
func (s *RequestService) RecordDecision(ctx context.Context, input DecisionInput) (*entity.ApprovalDecision, error) {
	if !input.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrUnauthorized, input.Role)
	}
	if input.Level != 1 && input.Level != 2 {
		return nil, fmt.Errorf("%w: no approval level %d", workflow.ErrInvalidTransition, input.Level)
	}
	if !input.Role.CanApproveAtLevel(input.Level) {
		return nil, fmt.Errorf("%w: role %s cannot decide level %d", ErrUnauthorized, input.Role, input.Level)
	}

	existing, err := s.decisions.GetByRequestAndLevel(ctx, input.RequestID, input.Level)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: level %d decided by %s", ErrAlreadyDecided, input.Level, existing.ApproverID)
	}

	trigger := workflow.TriggerApprove
	if input.Decision == entity.DecisionReject {
		trigger = workflow.TriggerReject
	}

	var decision *entity.ApprovalDecision

	res, err := s.engine.Transition(ctx, input.RequestID, trigger, func(txCtx context.Context, res *appworkflow.TransitionResult) error {
		pending, err := approvalLevelFor(res.From)
		if err != nil {
			return err
		}
		if input.Level != pending {
			return fmt.Errorf("%w: level %d decision while level %d is pending", workflow.ErrInvalidTransition, input.Level, pending)
		}

		// Re-checked inside the transaction: two racing approvers for
		// the same level both pass the pre-check, only one may write.
		existing, err := s.decisions.GetByRequestAndLevel(txCtx, input.RequestID, input.Level)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: level %d decided by %s", ErrAlreadyDecided, input.Level, existing.ApproverID)
		}

		decision = &entity.ApprovalDecision{
			RequestID:  input.RequestID,
			Level:      input.Level,
			ApproverID: input.ApproverID,
			Role:       input.Role,
			Decision:   input.Decision,
			Comment:    input.Comment,
			DecidedAt:  time.Now(),
		}
		return s.decisions.Create(txCtx, decision)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, event.NewEvent(event.TypeApprovalDecided, input.RequestID, map[string]interface{}{
		"level":    decision.Level,
		"decision": string(input.Decision),
		"approver": input.ApproverID,
	}))
	if res.To == workflow.StateRejected {
		s.dispatch(ctx, event.NewEvent(event.TypeRequestRejected, input.RequestID, map[string]interface{}{
			"level":   decision.Level,
			"comment": input.Comment,
		}))
	}
	return decision, nil
}

func approvalLevelFor(state workflow.State) (int, error) {
	switch state {
	case workflow.StatePendingLevel1:
		return 1, nil
	case workflow.StatePendingLevel2:
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: no approval pending in state %s", workflow.ErrInvalidTransition, state)
	}
}

// GeneratePO materializes the purchase order for a fully approved
// request. The operation is idempotent: once a PO exists, every further
// call returns it unchanged.
func (s *RequestService) GeneratePO(ctx context.Context, requestID string) (*entity.PurchaseOrder, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.POID != "" {
		return s.orders.GetByID(ctx, req.POID)
	}

	po, err := s.buildPurchaseOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.poWriter != nil {
		path, err := s.poWriter.Write(ctx, po)
		if err != nil {
			return nil, fmt.Errorf("render purchase order: %w", err)
		}
		po.FilePath = path
	}

	_, err = s.engine.Transition(ctx, requestID, workflow.TriggerGeneratePO, func(txCtx context.Context, res *appworkflow.TransitionResult) error {
		if err := s.orders.Create(txCtx, po); err != nil {
			return err
		}
		res.Request.POID = po.ID
		return nil
	})
	if err != nil {
		// A concurrent call may have won the race; the stored PO is
		// the answer either way.
		if errors.Is(err, workflow.ErrInvalidTransition) {
			if current, lookupErr := s.requests.GetByID(ctx, requestID); lookupErr == nil && current.POID != "" {
				return s.orders.GetByID(ctx, current.POID)
			}
		}
		return nil, err
	}

	s.dispatch(ctx, event.NewEvent(event.TypePOGenerated, requestID, map[string]interface{}{
		"po_id":     po.ID,
		"po_number": po.PONumber,
		"total":     po.TotalAmount,
	}))
	return po, nil
}

// buildPurchaseOrder assembles the PO from the request and the latest
// successful extraction, when one exists.
func (s *RequestService) buildPurchaseOrder(ctx context.Context, req *entity.PurchaseRequest) (*entity.PurchaseOrder, error) {
	po := &entity.PurchaseOrder{
		ID:          uuid.NewString(),
		PONumber:    NewPONumber(),
		RequestID:   req.ID,
		VendorName:  req.VendorName,
		VendorEmail: req.VendorEmail,
		TotalAmount: req.Amount,
		Currency:    "USD",
		CreatedAt:   time.Now(),
	}

	jobs, err := s.jobs.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	for i := len(jobs) - 1; i >= 0; i-- {
		j := jobs[i]
		if j.Kind != entity.JobKindExtraction || j.Status != entity.JobSucceeded || j.Extraction == nil {
			continue
		}
		data := j.Extraction
		if data.VendorName != "" {
			po.VendorName = data.VendorName
		}
		po.VendorAddress = data.VendorAddress
		if data.VendorEmail != "" {
			po.VendorEmail = data.VendorEmail
		}
		po.LineItems = data.LineItems
		po.Subtotal = data.Subtotal
		po.TaxAmount = data.TaxAmount
		if data.TotalAmount > 0 {
			po.TotalAmount = data.TotalAmount
		}
		if data.Currency != "" {
			po.Currency = data.Currency
		}
		po.PaymentTerms = data.PaymentTerms
		po.DeliveryTerms = data.DeliveryTerms
		break
	}

	if len(po.LineItems) == 0 {
		po.LineItems = []entity.LineItem{{
			Description: req.Title,
			Quantity:    1,
			UnitPrice:   req.Amount,
			Amount:      req.Amount,
		}}
		po.Subtotal = req.Amount
	}
	return po, nil
}

// NewPONumber generates a PO number of the form PO-YYYYMMDD-XXXXXXXX
func NewPONumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("PO-%s-%s", time.Now().Format("20060102"), suffix)
}

// DispatchPO marks the purchase order as sent to the vendor
func (s *RequestService) DispatchPO(ctx context.Context, requestID string) (*entity.PurchaseRequest, error) {
	res, err := s.engine.Transition(ctx, requestID, workflow.TriggerDispatchPO, nil)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, event.NewEvent(event.TypePODispatched, requestID, map[string]interface{}{
		"po_id": res.Request.POID,
	}))
	return res.Request, nil
}

// UploadReceipt stores the vendor receipt and queues a validation job
// against the purchase order. The receipt is persisted even when the
// pipeline queue is full; the returned error then reports the rejected
// job and the request waits in RECEIPT_UPLOADED for a manual retry.
func (s *RequestService) UploadReceipt(ctx context.Context, requestID, filename string, content io.Reader) (*entity.PurchaseRequest, *entity.ProcessingJob, error) {
	ref, err := s.storage.Save(ctx, filename, content)
	if err != nil {
		return nil, nil, fmt.Errorf("store receipt: %w", err)
	}

	res, err := s.engine.Transition(ctx, requestID, workflow.TriggerUploadReceipt, func(txCtx context.Context, res *appworkflow.TransitionResult) error {
		if res.Request.POID == "" {
			return ErrNoPurchaseOrder
		}
		res.Request.ReceiptRef = ref
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	req := res.Request

	s.dispatch(ctx, event.NewEvent(event.TypeReceiptUploaded, requestID, map[string]interface{}{
		"receipt_ref": ref,
	}))

	job, err := s.enqueueJob(ctx, req, entity.JobKindReceiptValidation, []string{ref})
	if err != nil {
		return req, nil, err
	}
	return req, job, nil
}

func (s *RequestService) enqueueJob(ctx context.Context, req *entity.PurchaseRequest, kind entity.JobKind, inputs []string) (*entity.ProcessingJob, error) {
	if s.enqueuer == nil {
		return nil, fmt.Errorf("pipeline not configured")
	}

	job := &entity.ProcessingJob{
		ID:        uuid.NewString(),
		Kind:      kind,
		RequestID: req.ID,
		InputRefs: inputs,
		Status:    entity.JobQueued,
		QueuedAt:  time.Now(),
	}
	if err := s.enqueuer.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ApplyExtractionResult folds extracted proforma data back into the
// request. Vendor fields are only auto-populated while the request is
// still ahead of PO generation; later results are discarded with a log
// line, never an error.
func (s *RequestService) ApplyExtractionResult(ctx context.Context, requestID string, data *entity.ExtractedData) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}

		if !vendorPopulationAllowed(workflow.State(req.Status)) {
			s.logger.Info("extraction result discarded",
				zap.String("request_id", requestID),
				zap.String("status", req.Status),
			)
			return nil
		}

		changed := false
		if req.VendorName == "" && data.VendorName != "" {
			req.VendorName = data.VendorName
			changed = true
		}
		if req.VendorEmail == "" && data.VendorEmail != "" {
			req.VendorEmail = data.VendorEmail
			changed = true
		}
		if !changed {
			return nil
		}

		req.UpdatedAt = time.Now()
		return s.requests.Update(txCtx, req)
	})
	if err != nil {
		return err
	}

	s.dispatch(ctx, event.NewJobEvent(event.TypeExtractionCompleted, requestID, data.JobID, map[string]interface{}{
		"vendor":     data.VendorName,
		"total":      data.TotalAmount,
		"confidence": data.Confidence,
	}))
	return nil
}

func vendorPopulationAllowed(state workflow.State) bool {
	switch state {
	case workflow.StateDraft,
		workflow.StateSubmitted,
		workflow.StatePendingLevel1,
		workflow.StatePendingLevel2,
		workflow.StateApproved:
		return true
	default:
		return false
	}
}

// ApplyValidationResult folds a receipt-validation outcome into the
// workflow. ACCEPT moves the request to VALIDATED; REVIEW_REQUIRED does
// too but flags it for manual review; REJECT keeps it in
// RECEIPT_UPLOADED with the flag set. Re-applying after the request has
// moved on is a no-op.
func (s *RequestService) ApplyValidationResult(ctx context.Context, requestID string, result *entity.ValidationResult) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	state := workflow.State(req.Status)
	if state == workflow.StateValidated || state == workflow.StateCompleted {
		s.logger.Info("validation result ignored, request already validated",
			zap.String("request_id", requestID),
			zap.String("status", req.Status),
		)
		return nil
	}

	switch result.Recommendation {
	case entity.RecommendReject:
		err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			current, err := s.requests.GetByID(txCtx, requestID)
			if err != nil {
				return err
			}
			current.NeedsManualReview = true
			current.UpdatedAt = time.Now()
			return s.requests.Update(txCtx, current)
		})
	default:
		_, err = s.engine.Transition(ctx, requestID, workflow.TriggerValidate, func(txCtx context.Context, res *appworkflow.TransitionResult) error {
			res.Request.NeedsManualReview = result.Recommendation == entity.RecommendReviewRequired
			return nil
		})
		if errors.Is(err, workflow.ErrInvalidTransition) {
			// Lost a race against an identical apply; nothing to do.
			err = nil
		}
	}
	if err != nil {
		return err
	}

	s.dispatch(ctx, event.NewJobEvent(event.TypeValidationCompleted, requestID, result.JobID, map[string]interface{}{
		"recommendation": string(result.Recommendation),
		"score":          result.Score,
		"discrepancies":  len(result.Discrepancies),
	}))
	return nil
}

// Finalize closes out a validated request. Only finance or admin roles
// carry the authority.
func (s *RequestService) Finalize(ctx context.Context, requestID, actorID string, role entity.Role) (*entity.PurchaseRequest, error) {
	if !role.CanFinalize() {
		return nil, fmt.Errorf("%w: role %s cannot finalize", ErrUnauthorized, role)
	}

	res, err := s.engine.Transition(ctx, requestID, workflow.TriggerFinalize, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("request completed",
		zap.String("request_id", requestID),
		zap.String("finalized_by", actorID),
	)
	return res.Request, nil
}

func (s *RequestService) dispatch(ctx context.Context, evt *event.Event) {
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(context.WithoutCancel(ctx), evt)
	}
}
