package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/port"
	"github.com/kweku/ai-procurement/internal/domain/entity"
)

// Mock adapter and repositories

type mockAdapter struct {
	mu          sync.Mutex
	extractFunc func(ctx context.Context, ref string) (*entity.ExtractedData, error)
	calls       int
}

func (m *mockAdapter) Extract(ctx context.Context, ref string) (*entity.ExtractedData, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.extractFunc != nil {
		return m.extractFunc(ctx, ref)
	}
	return &entity.ExtractedData{VendorName: "Acme", TotalAmount: 100, Confidence: 0.9}, nil
}

func (m *mockAdapter) HealthCheck(ctx context.Context) error { return nil }

func (m *mockAdapter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockJobRepo struct {
	mu         sync.Mutex
	createFunc func(ctx context.Context, job *entity.ProcessingJob) error
	getFunc    func(ctx context.Context, id string) (*entity.ProcessingJob, error)
	updated    []*entity.ProcessingJob
	deleted    []string
}

func (m *mockJobRepo) Create(ctx context.Context, job *entity.ProcessingJob) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, job)
	}
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, id string) (*entity.ProcessingJob, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockJobRepo) Update(ctx context.Context, job *entity.ProcessingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.updated = append(m.updated, &copied)
	return nil
}

func (m *mockJobRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockJobRepo) ListByRequest(ctx context.Context, requestID string) ([]*entity.ProcessingJob, error) {
	return nil, nil
}

func (m *mockJobRepo) lastUpdate() *entity.ProcessingJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.updated) == 0 {
		return nil
	}
	return m.updated[len(m.updated)-1]
}

func (m *mockJobRepo) deletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.deleted...)
}

type mockRequestRepo struct {
	getFunc func(ctx context.Context, id string) (*entity.PurchaseRequest, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.PurchaseRequest) error { return nil }
func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &entity.PurchaseRequest{ID: id}, nil
}
func (m *mockRequestRepo) Update(ctx context.Context, req *entity.PurchaseRequest) error { return nil }
func (m *mockRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, error) {
	return nil, nil
}
func (m *mockRequestRepo) Count(ctx context.Context, filter port.RequestFilter) (int64, error) {
	return 0, nil
}
func (m *mockRequestRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return nil, nil
}

type mockOrderRepo struct {
	getFunc func(ctx context.Context, id string) (*entity.PurchaseOrder, error)
}

func (m *mockOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error { return nil }
func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &entity.PurchaseOrder{ID: id}, nil
}
func (m *mockOrderRepo) GetByRequestID(ctx context.Context, requestID string) (*entity.PurchaseOrder, error) {
	return nil, nil
}
func (m *mockOrderRepo) Update(ctx context.Context, po *entity.PurchaseOrder) error { return nil }

type mockSink struct {
	mu          sync.Mutex
	extractions []*entity.ExtractedData
	validations []*entity.ValidationResult
}

func (m *mockSink) ApplyExtractionResult(ctx context.Context, requestID string, data *entity.ExtractedData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractions = append(m.extractions, data)
	return nil
}

func (m *mockSink) ApplyValidationResult(ctx context.Context, requestID string, result *entity.ValidationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations = append(m.validations, result)
	return nil
}

func newTestPipeline(capacity int, adapter *mockAdapter, jobs *mockJobRepo, requests *mockRequestRepo, orders *mockOrderRepo, sink *mockSink) *Pipeline {
	return New(Config{
		QueueCapacity: capacity,
		WorkerCount:   1,
	}, adapter, jobs, requests, orders, sink, nil, zap.NewNop())
}

func TestPipeline_Enqueue(t *testing.T) {
	jobs := &mockJobRepo{}
	p := newTestPipeline(2, &mockAdapter{}, jobs, &mockRequestRepo{}, &mockOrderRepo{}, &mockSink{})

	if err := p.Enqueue(context.Background(), queuedJob("job-1")); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	got, err := p.GetStatus(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetStatus() failed: %v", err)
	}
	if got.Status != entity.JobQueued {
		t.Errorf("Status = %v, want %v", got.Status, entity.JobQueued)
	}
}

func TestPipeline_EnqueueRejectsNonQueuedJob(t *testing.T) {
	p := newTestPipeline(2, &mockAdapter{}, &mockJobRepo{}, &mockRequestRepo{}, &mockOrderRepo{}, &mockSink{})

	job := queuedJob("job-1")
	job.Status = entity.JobRunning

	if err := p.Enqueue(context.Background(), job); err == nil {
		t.Error("Enqueue() should reject a job that is not QUEUED")
	}
}

func TestPipeline_EnqueueQueueFull(t *testing.T) {
	jobs := &mockJobRepo{}
	p := newTestPipeline(1, &mockAdapter{}, jobs, &mockRequestRepo{}, &mockOrderRepo{}, &mockSink{})

	if err := p.Enqueue(context.Background(), queuedJob("job-1")); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	err := p.Enqueue(context.Background(), queuedJob("job-2"))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Enqueue() error = %v, want %v", err, ErrQueueFull)
	}

	// The rejected job's row must be rolled back
	deleted := jobs.deletedIDs()
	if len(deleted) != 1 || deleted[0] != "job-2" {
		t.Errorf("deleted jobs = %v, want [job-2]", deleted)
	}

	// No in-memory entry may survive either, or GetStatus would keep
	// reporting a job that does not exist anymore
	if _, err := p.GetStatus(context.Background(), "job-2"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("GetStatus() error = %v, want %v", err, ErrJobNotFound)
	}
}

func TestPipeline_EnqueuedJobIsImmediatelyClaimable(t *testing.T) {
	adapter := &mockAdapter{}
	jobs := &mockJobRepo{}
	p := newTestPipeline(4, adapter, jobs, &mockRequestRepo{}, &mockOrderRepo{}, &mockSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	// With a worker parked on the queue, the job must be claimable the
	// instant the worker receives it; otherwise it stays QUEUED forever.
	if err := p.Enqueue(context.Background(), queuedJob("job-1")); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		last := jobs.lastUpdate()
		if last != nil && last.Status.IsTerminal() {
			if last.Status != entity.JobSucceeded {
				t.Errorf("Status = %v, want %v", last.Status, entity.JobSucceeded)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job never reached a terminal status, last update: %+v", last)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPipeline_EnqueuePersistFailure(t *testing.T) {
	jobs := &mockJobRepo{
		createFunc: func(ctx context.Context, job *entity.ProcessingJob) error {
			return errors.New("disk full")
		},
	}
	p := newTestPipeline(2, &mockAdapter{}, jobs, &mockRequestRepo{}, &mockOrderRepo{}, &mockSink{})

	if err := p.Enqueue(context.Background(), queuedJob("job-1")); err == nil {
		t.Error("Enqueue() should fail when the job row cannot be persisted")
	}
}

func TestPipeline_ExecuteExtraction(t *testing.T) {
	adapter := &mockAdapter{}
	jobs := &mockJobRepo{}
	sink := &mockSink{}
	p := newTestPipeline(2, adapter, jobs, &mockRequestRepo{}, &mockOrderRepo{}, sink)

	job := queuedJob("job-1")
	if err := p.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	p.Execute(context.Background(), "job-1")

	last := jobs.lastUpdate()
	if last == nil {
		t.Fatal("job status was never persisted")
	}
	if last.Status != entity.JobSucceeded {
		t.Errorf("Status = %v, want %v", last.Status, entity.JobSucceeded)
	}
	if last.Extraction == nil || last.Extraction.VendorName != "Acme" {
		t.Errorf("Extraction = %+v, want vendor Acme", last.Extraction)
	}
	if len(sink.extractions) != 1 {
		t.Errorf("sink received %d extraction results, want 1", len(sink.extractions))
	}
}

func TestPipeline_ExecuteAtMostOnce(t *testing.T) {
	adapter := &mockAdapter{}
	jobs := &mockJobRepo{}
	p := newTestPipeline(2, adapter, jobs, &mockRequestRepo{}, &mockOrderRepo{}, &mockSink{})

	if err := p.Enqueue(context.Background(), queuedJob("job-1")); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	p.Execute(context.Background(), "job-1")
	p.Execute(context.Background(), "job-1")

	if got := adapter.callCount(); got != 1 {
		t.Errorf("adapter called %d times, want exactly 1", got)
	}
}

func TestPipeline_ExecuteConfidenceContractViolation(t *testing.T) {
	adapter := &mockAdapter{
		extractFunc: func(ctx context.Context, ref string) (*entity.ExtractedData, error) {
			return &entity.ExtractedData{VendorName: "Acme", Confidence: 1.5}, nil
		},
	}
	jobs := &mockJobRepo{}
	sink := &mockSink{}
	p := newTestPipeline(2, adapter, jobs, &mockRequestRepo{}, &mockOrderRepo{}, sink)

	if err := p.Enqueue(context.Background(), queuedJob("job-1")); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	p.Execute(context.Background(), "job-1")

	last := jobs.lastUpdate()
	if last == nil {
		t.Fatal("job status was never persisted")
	}
	if last.Status != entity.JobFailed {
		t.Errorf("Status = %v, want %v", last.Status, entity.JobFailed)
	}
	if last.ErrorDetail == "" {
		t.Error("ErrorDetail should describe the contract violation")
	}
	if len(sink.extractions) != 0 {
		t.Error("out-of-range confidence must never reach the sink")
	}
}

func TestPipeline_ExecuteExtractionError(t *testing.T) {
	adapter := &mockAdapter{
		extractFunc: func(ctx context.Context, ref string) (*entity.ExtractedData, error) {
			return nil, errors.New("model unavailable")
		},
	}
	jobs := &mockJobRepo{}
	p := newTestPipeline(2, adapter, jobs, &mockRequestRepo{}, &mockOrderRepo{}, &mockSink{})

	if err := p.Enqueue(context.Background(), queuedJob("job-1")); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	p.Execute(context.Background(), "job-1")

	last := jobs.lastUpdate()
	if last == nil || last.Status != entity.JobFailed {
		t.Fatalf("job = %+v, want FAILED", last)
	}

	// No automatic retry: the adapter was called once and the job stays failed
	p.Execute(context.Background(), "job-1")
	if got := adapter.callCount(); got != 1 {
		t.Errorf("adapter called %d times after failed job, want 1", got)
	}
}

func TestPipeline_ExecuteReceiptValidation(t *testing.T) {
	adapter := &mockAdapter{
		extractFunc: func(ctx context.Context, ref string) (*entity.ExtractedData, error) {
			return &entity.ExtractedData{
				VendorName:  "Acme Supplies Ltd",
				TotalAmount: 2700,
				LineItems: []entity.LineItem{
					{Description: "Laptop", Amount: 2400},
					{Description: "Docking Station", Amount: 300},
				},
				Confidence: 0.92,
			}, nil
		},
	}
	requests := &mockRequestRepo{
		getFunc: func(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
			return &entity.PurchaseRequest{ID: id, POID: "po-1"}, nil
		},
	}
	orders := &mockOrderRepo{
		getFunc: func(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
			return testPO(), nil
		},
	}
	jobs := &mockJobRepo{}
	sink := &mockSink{}
	p := newTestPipeline(2, adapter, jobs, requests, orders, sink)

	job := queuedJob("job-1")
	job.Kind = entity.JobKindReceiptValidation
	job.InputRefs = []string{"receipt-1"}
	if err := p.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	p.Execute(context.Background(), "job-1")

	last := jobs.lastUpdate()
	if last == nil || last.Status != entity.JobSucceeded {
		t.Fatalf("job = %+v, want SUCCEEDED", last)
	}
	if last.Validation == nil {
		t.Fatal("Validation result missing")
	}
	if last.Validation.Recommendation != entity.RecommendAccept {
		t.Errorf("Recommendation = %v, want %v", last.Validation.Recommendation, entity.RecommendAccept)
	}
	if len(sink.validations) != 1 {
		t.Fatalf("sink received %d validation results, want 1", len(sink.validations))
	}
	if sink.validations[0].ReceiptRef != "receipt-1" {
		t.Errorf("ReceiptRef = %q, want %q", sink.validations[0].ReceiptRef, "receipt-1")
	}
}

func TestPipeline_ExecuteReceiptValidationWithoutPO(t *testing.T) {
	requests := &mockRequestRepo{
		getFunc: func(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
			return &entity.PurchaseRequest{ID: id}, nil
		},
	}
	jobs := &mockJobRepo{}
	p := newTestPipeline(2, &mockAdapter{}, jobs, requests, &mockOrderRepo{}, &mockSink{})

	job := queuedJob("job-1")
	job.Kind = entity.JobKindReceiptValidation
	if err := p.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	p.Execute(context.Background(), "job-1")

	last := jobs.lastUpdate()
	if last == nil || last.Status != entity.JobFailed {
		t.Fatalf("job = %+v, want FAILED when no PO exists", last)
	}
}

func TestPipeline_GetStatusFallsBackToStorage(t *testing.T) {
	stored := &entity.ProcessingJob{ID: "job-old", Status: entity.JobSucceeded}
	jobs := &mockJobRepo{
		getFunc: func(ctx context.Context, id string) (*entity.ProcessingJob, error) {
			if id == "job-old" {
				return stored, nil
			}
			return nil, nil
		},
	}
	p := newTestPipeline(2, &mockAdapter{}, jobs, &mockRequestRepo{}, &mockOrderRepo{}, &mockSink{})

	got, err := p.GetStatus(context.Background(), "job-old")
	if err != nil {
		t.Fatalf("GetStatus() failed: %v", err)
	}
	if got.Status != entity.JobSucceeded {
		t.Errorf("Status = %v, want %v", got.Status, entity.JobSucceeded)
	}

	if _, err := p.GetStatus(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("GetStatus() error = %v, want %v", err, ErrJobNotFound)
	}
}

func TestPipeline_WorkersDrainQueue(t *testing.T) {
	adapter := &mockAdapter{}
	jobs := &mockJobRepo{}
	sink := &mockSink{}
	p := New(Config{QueueCapacity: 8, WorkerCount: 2}, adapter, jobs, &mockRequestRepo{}, &mockOrderRepo{}, sink, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	for i := 0; i < 5; i++ {
		job := queuedJob("job-" + string(rune('a'+i)))
		if err := p.Enqueue(context.Background(), job); err != nil {
			t.Fatalf("Enqueue() failed: %v", err)
		}
	}

	// Unclaimed jobs stay queued across Stop, so wait for the workers to
	// drain everything before shutting down.
	deadline := time.After(5 * time.Second)
	for adapter.callCount() < 5 {
		select {
		case <-deadline:
			t.Fatalf("workers processed %d of 5 jobs before timeout", adapter.callCount())
		case <-time.After(10 * time.Millisecond):
		}
	}

	p.Stop()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.extractions) != 5 {
		t.Errorf("sink received %d results, want 5", len(sink.extractions))
	}
}
