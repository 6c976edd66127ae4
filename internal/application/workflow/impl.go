package workflow

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/dispatcher"
	"github.com/kweku/ai-procurement/internal/application/port"
	"github.com/kweku/ai-procurement/internal/domain/event"
	"github.com/kweku/ai-procurement/internal/domain/workflow"
)

const lockStripes = 64

type engine struct {
	factory    *Factory
	requests   port.RequestRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger

	locks [lockStripes]sync.Mutex
}

// NewEngine creates a workflow engine backed by the given repository
func NewEngine(
	factory *Factory,
	requests port.RequestRepository,
	txManager port.TransactionManager,
	disp dispatcher.Dispatcher,
	logger *zap.Logger,
) Engine {
	return &engine{
		factory:    factory,
		requests:   requests,
		txManager:  txManager,
		dispatcher: disp,
		logger:     logger,
	}
}

func (e *engine) Transition(ctx context.Context, requestID string, trigger workflow.Trigger, mutate MutateFunc) (*TransitionResult, error) {
	lock := e.lockFor(requestID)
	lock.Lock()
	defer lock.Unlock()

	var result *TransitionResult

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.requests.GetByID(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("load request %s: %w", requestID, err)
		}

		from := workflow.State(req.Status)
		if !from.IsValid() {
			return fmt.Errorf("%w: request %s has state %q", workflow.ErrInvalidState, requestID, req.Status)
		}

		machine := e.factory.MachineFor(from)
		fireCtx := ContextWithAmount(txCtx, req.Amount)

		if err := machine.Fire(fireCtx, trigger); err != nil {
			return err
		}

		to := machine.State()
		req.Status = to.String()
		req.UpdatedAt = time.Now()
		if to == workflow.StateCompleted {
			now := time.Now()
			req.CompletedAt = &now
		}

		result = &TransitionResult{
			RequestID: requestID,
			Trigger:   trigger,
			From:      from,
			To:        to,
			Request:   req,
		}

		if mutate != nil {
			if err := mutate(txCtx, result); err != nil {
				return err
			}
		}

		if err := e.requests.Update(txCtx, req); err != nil {
			return fmt.Errorf("persist transition for request %s: %w", requestID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("state transition",
		zap.String("request_id", requestID),
		zap.String("trigger", result.Trigger.String()),
		zap.String("from", result.From.String()),
		zap.String("to", result.To.String()),
	)

	if e.dispatcher != nil {
		evt := event.NewEvent(event.TypeStatusChanged, requestID, map[string]interface{}{
			"trigger": result.Trigger.String(),
			"from":    result.From.String(),
			"to":      result.To.String(),
		})
		e.dispatcher.DispatchAsync(context.WithoutCancel(ctx), evt)
	}

	return result, nil
}

func (e *engine) PermittedTriggers(ctx context.Context, requestID string) ([]workflow.Trigger, error) {
	req, err := e.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}

	state := workflow.State(req.Status)
	if !state.IsValid() {
		return nil, fmt.Errorf("%w: request %s has state %q", workflow.ErrInvalidState, requestID, req.Status)
	}

	return e.factory.MachineFor(state).PermittedTriggers(), nil
}

func (e *engine) lockFor(requestID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(requestID))
	return &e.locks[h.Sum32()%lockStripes]
}
