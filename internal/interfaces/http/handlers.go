package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kweku/ai-procurement/internal/application/port"
	"github.com/kweku/ai-procurement/internal/application/service"
	"github.com/kweku/ai-procurement/internal/domain/entity"
	"github.com/kweku/ai-procurement/internal/domain/workflow"
	"github.com/kweku/ai-procurement/internal/pipeline"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	requests *service.RequestService
	queries  *service.QueryService
	pipeline *pipeline.Pipeline
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	requests *service.RequestService,
	queries *service.QueryService,
	pipe *pipeline.Pipeline,
	logger Logger,
) *Handlers {
	return &Handlers{
		requests: requests,
		queries:  queries,
		pipeline: pipe,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateRequestBody is the payload for creating a draft
type CreateRequestBody struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount" binding:"required"`
	RequesterID string  `json:"requester_id" binding:"required"`
	VendorName  string  `json:"vendor_name"`
	VendorEmail string  `json:"vendor_email"`
}

// ActorBody identifies the acting user
type ActorBody struct {
	ActorID string `json:"actor_id" binding:"required"`
	Role    string `json:"role"`
}

// DecisionBody is the payload for recording an approval decision
type DecisionBody struct {
	Level      int    `json:"level" binding:"required"`
	ApproverID string `json:"approver_id" binding:"required"`
	Role       string `json:"role" binding:"required"`
	Decision   string `json:"decision" binding:"required"`
	Comment    string `json:"comment"`
}

// ListRequestsQuery represents query parameters for listing requests
type ListRequestsQuery struct {
	Status      string `form:"status"`
	RequesterID string `form:"requester_id"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	req, err := h.requests.CreateDraft(c.Request.Context(), service.CreateRequestInput{
		Title:       body.Title,
		Description: body.Description,
		Amount:      body.Amount,
		RequesterID: body.RequesterID,
		VendorName:  body.VendorName,
		VendorEmail: body.VendorEmail,
	})
	if err != nil {
		h.serviceError(c, "failed to create request", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var query ListRequestsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}

	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	items, total, err := h.queries.ListRequests(c.Request.Context(), port.RequestFilter{
		Status:      query.Status,
		RequesterID: query.RequesterID,
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		h.serviceError(c, "failed to list requests", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"items": items,
			"total": total,
		},
	})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.queries.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, "failed to get request", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// GetWorkflowInfo handles GET /api/requests/:id/workflow
func (h *Handlers) GetWorkflowInfo(c *gin.Context) {
	info, err := h.queries.GetWorkflowInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, "failed to get workflow info", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: info})
}

// AttachProforma handles POST /api/requests/:id/proforma
func (h *Handlers) AttachProforma(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.badRequest(c, "missing file upload", err)
		return
	}
	defer file.Close()

	req, err := h.requests.AttachProforma(c.Request.Context(), c.Param("id"), header.Filename, file)
	if err != nil {
		h.serviceError(c, "failed to attach proforma", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// SubmitRequest handles POST /api/requests/:id/submit
func (h *Handlers) SubmitRequest(c *gin.Context) {
	var body ActorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	req, err := h.requests.Submit(c.Request.Context(), c.Param("id"), body.ActorID)
	if err != nil {
		h.serviceError(c, "failed to submit request", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// RecordDecision handles POST /api/requests/:id/decision
func (h *Handlers) RecordDecision(c *gin.Context) {
	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	decision := entity.Decision(body.Decision)
	if decision != entity.DecisionApprove && decision != entity.DecisionReject {
		h.badRequest(c, "decision must be APPROVE or REJECT", nil)
		return
	}

	if body.Level != 1 && body.Level != 2 {
		h.badRequest(c, "level must be 1 or 2", nil)
		return
	}

	recorded, err := h.requests.RecordDecision(c.Request.Context(), service.DecisionInput{
		RequestID:  c.Param("id"),
		Level:      body.Level,
		ApproverID: body.ApproverID,
		Role:       entity.Role(body.Role),
		Decision:   decision,
		Comment:    body.Comment,
	})
	if err != nil {
		h.serviceError(c, "failed to record decision", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: recorded})
}

// GeneratePO handles POST /api/requests/:id/po
func (h *Handlers) GeneratePO(c *gin.Context) {
	po, err := h.requests.GeneratePO(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, "failed to generate purchase order", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: po})
}

// GetPurchaseOrder handles GET /api/requests/:id/po
func (h *Handlers) GetPurchaseOrder(c *gin.Context) {
	po, err := h.queries.GetPurchaseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, "failed to get purchase order", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: po})
}

// DispatchPO handles POST /api/requests/:id/po/dispatch
func (h *Handlers) DispatchPO(c *gin.Context) {
	req, err := h.requests.DispatchPO(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, "failed to dispatch purchase order", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// UploadReceipt handles POST /api/requests/:id/receipt
func (h *Handlers) UploadReceipt(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.badRequest(c, "missing file upload", err)
		return
	}
	defer file.Close()

	req, job, err := h.requests.UploadReceipt(c.Request.Context(), c.Param("id"), header.Filename, file)
	if err != nil {
		// The receipt may have been stored even though validation
		// could not be queued; report the partial outcome.
		if errors.Is(err, pipeline.ErrQueueFull) && req != nil {
			c.JSON(http.StatusTooManyRequests, Response{
				Success: false,
				Data:    gin.H{"request": req},
				Error:   "receipt stored but validation queue is full",
			})
			return
		}
		h.serviceError(c, "failed to upload receipt", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"request": req,
			"job":     job,
		},
	})
}

// FinalizeRequest handles POST /api/requests/:id/finalize
func (h *Handlers) FinalizeRequest(c *gin.Context) {
	var body ActorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	req, err := h.requests.Finalize(c.Request.Context(), c.Param("id"), body.ActorID, entity.Role(body.Role))
	if err != nil {
		h.serviceError(c, "failed to finalize request", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// GetJob handles GET /api/jobs/:id
func (h *Handlers) GetJob(c *gin.Context) {
	job, err := h.pipeline.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, "failed to get job", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: job})
}

// GetStats handles GET /api/stats
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.queries.GetStats(c.Request.Context())
	if err != nil {
		h.serviceError(c, "failed to get stats", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	if err != nil {
		h.logger.Error(msg, "error", err)
	}
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// serviceError maps domain errors to HTTP status codes
func (h *Handlers) serviceError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "error", err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, pipeline.ErrJobNotFound),
		errors.Is(err, service.ErrNoPurchaseOrder):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrIncompleteRequest):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrAlreadyDecided),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrGuardFailed):
		status = http.StatusConflict
	case errors.Is(err, pipeline.ErrQueueFull):
		status = http.StatusTooManyRequests
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}
