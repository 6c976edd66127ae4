package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// workerPool consumes the job queue with a fixed number of goroutines
type workerPool struct {
	pipeline *Pipeline
	count    int
	logger   *zap.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

func newWorkerPool(p *Pipeline, count int, logger *zap.Logger) *workerPool {
	return &workerPool{
		pipeline: p,
		count:    count,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (w *workerPool) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	for i := 0; i < w.count; i++ {
		w.wg.Add(1)
		go w.run(ctx, fmt.Sprintf("pipeline-worker-%d", i))
	}
	w.logger.Info("pipeline workers started", zap.Int("count", w.count))
}

// Stop signals the workers and waits for in-flight jobs to finish.
// Queued jobs not yet claimed stay QUEUED in storage.
func (w *workerPool) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	w.logger.Info("pipeline workers stopped")
}

func (w *workerPool) run(ctx context.Context, name string) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case job, ok := <-w.pipeline.queue:
			if !ok {
				return
			}
			w.logger.Debug("worker picked up job",
				zap.String("worker", name),
				zap.String("job_id", job.ID),
			)
			w.pipeline.Execute(ctx, job.ID)
		}
	}
}
