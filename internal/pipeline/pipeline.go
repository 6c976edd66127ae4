package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/dispatcher"
	"github.com/kweku/ai-procurement/internal/application/port"
	"github.com/kweku/ai-procurement/internal/domain/entity"
	"github.com/kweku/ai-procurement/internal/domain/event"
)

// ResultSink receives terminal job outcomes. The workflow service
// implements it; the pipeline never imports the service directly.
type ResultSink interface {
	ApplyExtractionResult(ctx context.Context, requestID string, data *entity.ExtractedData) error
	ApplyValidationResult(ctx context.Context, requestID string, result *entity.ValidationResult) error
}

// Config sizes the pipeline
type Config struct {
	QueueCapacity int
	WorkerCount   int

	// AdapterTimeout bounds each extraction call; zero means no bound
	AdapterTimeout time.Duration

	Validator ValidatorConfig
}

// Pipeline runs document jobs asynchronously over a bounded queue.
// Enqueue never blocks: a full queue rejects the job with ErrQueueFull.
// Each job executes at most once and is never retried automatically.
type Pipeline struct {
	queue   chan *entity.ProcessingJob
	tracker *tracker

	adapter        port.ExtractionAdapter
	adapterTimeout time.Duration
	validator      *Validator
	jobs           port.JobRepository
	requests       port.RequestRepository
	orders         port.PurchaseOrderRepository
	sink           ResultSink

	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
	pool       *workerPool
}

// New creates a pipeline; call Start to begin consuming jobs
func New(
	cfg Config,
	adapter port.ExtractionAdapter,
	jobs port.JobRepository,
	requests port.RequestRepository,
	orders port.PurchaseOrderRepository,
	sink ResultSink,
	disp dispatcher.Dispatcher,
	logger *zap.Logger,
) *Pipeline {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 100
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}

	p := &Pipeline{
		queue:          make(chan *entity.ProcessingJob, cfg.QueueCapacity),
		tracker:        newTracker(),
		adapter:        adapter,
		adapterTimeout: cfg.AdapterTimeout,
		validator:      NewValidator(cfg.Validator),
		jobs:           jobs,
		requests:       requests,
		orders:         orders,
		sink:           sink,
		dispatcher:     disp,
		logger:         logger,
	}
	p.pool = newWorkerPool(p, cfg.WorkerCount, logger)
	return p
}

// Start launches the worker pool
func (p *Pipeline) Start(ctx context.Context) {
	p.pool.Start(ctx)
}

// Stop drains in-flight work and stops the workers
func (p *Pipeline) Stop() {
	p.pool.Stop()
}

// Enqueue accepts a job for asynchronous execution. The job row is
// persisted before the queue accepts it; when the queue is full the row
// is removed again and ErrQueueFull is returned.
func (p *Pipeline) Enqueue(ctx context.Context, job *entity.ProcessingJob) error {
	if job.Status != entity.JobQueued {
		return fmt.Errorf("job %s is not in QUEUED: %s", job.ID, job.Status)
	}

	if err := p.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("persist job %s: %w", job.ID, err)
	}

	// Tracked before the channel send: a worker may receive the job the
	// moment it hits the queue, and claiming requires a tracked entry.
	p.tracker.Track(job)

	select {
	case p.queue <- job:
		p.logger.Info("job queued",
			zap.String("job_id", job.ID),
			zap.String("kind", string(job.Kind)),
			zap.String("request_id", job.RequestID),
		)
		return nil
	default:
		p.tracker.Discard(job.ID)
		if err := p.jobs.Delete(ctx, job.ID); err != nil {
			p.logger.Error("failed to remove rejected job", zap.String("job_id", job.ID), zap.Error(err))
		}
		return fmt.Errorf("%w: capacity %d", ErrQueueFull, cap(p.queue))
	}
}

// GetStatus reports the current status of a job, consulting memory first
// and falling back to storage for jobs from earlier runs.
func (p *Pipeline) GetStatus(ctx context.Context, jobID string) (*entity.ProcessingJob, error) {
	if job := p.tracker.Get(jobID); job != nil {
		return job, nil
	}

	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// Execute runs one job to a terminal status. Claiming the job flips it
// to RUNNING exactly once; a second call for the same job is a no-op.
func (p *Pipeline) Execute(ctx context.Context, jobID string) {
	job, ok := p.tracker.Begin(jobID)
	if !ok {
		p.logger.Warn("job not claimable, skipping", zap.String("job_id", jobID))
		return
	}
	p.persist(ctx, job)

	var err error
	switch job.Kind {
	case entity.JobKindExtraction:
		err = p.runExtraction(ctx, job)
	case entity.JobKindReceiptValidation:
		err = p.runReceiptValidation(ctx, job)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	if err != nil {
		failed := p.tracker.Fail(job.ID, err.Error())
		if failed != nil {
			p.persist(ctx, failed)
		}
		p.logger.Error("job failed",
			zap.String("job_id", job.ID),
			zap.String("kind", string(job.Kind)),
			zap.Error(err),
		)
		p.dispatch(ctx, event.NewJobEvent(event.TypeJobFailed, job.RequestID, job.ID, map[string]interface{}{
			"kind":  string(job.Kind),
			"error": err.Error(),
		}))
	}
	p.tracker.Forget(job.ID)
}

func (p *Pipeline) runExtraction(ctx context.Context, job *entity.ProcessingJob) error {
	if len(job.InputRefs) == 0 {
		return fmt.Errorf("%w: no input document", ErrExtractionFailed)
	}

	data, err := p.extract(ctx, job.InputRefs[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := checkConfidence(data.Confidence); err != nil {
		return err
	}
	data.JobID = job.ID

	done := p.tracker.Complete(job.ID, data, nil)
	if done == nil {
		return nil
	}
	p.persist(ctx, done)

	if p.sink != nil {
		if err := p.sink.ApplyExtractionResult(ctx, job.RequestID, data); err != nil {
			p.logger.Error("extraction result not applied",
				zap.String("job_id", job.ID),
				zap.String("request_id", job.RequestID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (p *Pipeline) runReceiptValidation(ctx context.Context, job *entity.ProcessingJob) error {
	if len(job.InputRefs) == 0 {
		return fmt.Errorf("%w: no receipt document", ErrValidationFailed)
	}

	req, err := p.requests.GetByID(ctx, job.RequestID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if req.POID == "" {
		return fmt.Errorf("%w: request %s has no purchase order", ErrValidationFailed, job.RequestID)
	}
	po, err := p.orders.GetByID(ctx, req.POID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	receipt, err := p.extract(ctx, job.InputRefs[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := checkConfidence(receipt.Confidence); err != nil {
		return err
	}

	result := p.validator.Validate(po, receipt)
	result.JobID = job.ID
	result.ReceiptRef = job.InputRefs[0]

	done := p.tracker.Complete(job.ID, nil, result)
	if done == nil {
		return nil
	}
	p.persist(ctx, done)

	if p.sink != nil {
		if err := p.sink.ApplyValidationResult(ctx, job.RequestID, result); err != nil {
			p.logger.Error("validation result not applied",
				zap.String("job_id", job.ID),
				zap.String("request_id", job.RequestID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// extract calls the adapter with the configured timeout applied
func (p *Pipeline) extract(ctx context.Context, ref string) (*entity.ExtractedData, error) {
	if p.adapterTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.adapterTimeout)
		defer cancel()
	}
	return p.adapter.Extract(ctx, ref)
}

// checkConfidence rejects confidences the adapter contract forbids
func checkConfidence(c float64) error {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrAdapterContractViolation, c)
	}
	return nil
}

func (p *Pipeline) persist(ctx context.Context, job *entity.ProcessingJob) {
	if err := p.jobs.Update(ctx, job); err != nil {
		p.logger.Error("failed to persist job status",
			zap.String("job_id", job.ID),
			zap.String("status", string(job.Status)),
			zap.Error(err),
		)
	}
}

func (p *Pipeline) dispatch(ctx context.Context, evt *event.Event) {
	if p.dispatcher != nil {
		p.dispatcher.DispatchAsync(context.WithoutCancel(ctx), evt)
	}
}
