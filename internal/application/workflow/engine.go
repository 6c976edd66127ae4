package workflow

import (
	"context"

	"github.com/kweku/ai-procurement/internal/domain/entity"
	"github.com/kweku/ai-procurement/internal/domain/workflow"
)

// TransitionResult describes a completed state transition
type TransitionResult struct {
	RequestID string
	Trigger   workflow.Trigger
	From      workflow.State
	To        workflow.State
	Request   *entity.PurchaseRequest
}

// MutateFunc adjusts request fields inside the same transaction as the
// transition. It runs after the target state is known but before the
// request is persisted; ctx carries the open transaction, so callers may
// perform further repository writes that commit atomically with it.
// res.Request points at the loaded request, already stamped with the new
// status.
type MutateFunc func(ctx context.Context, res *TransitionResult) error

// Engine executes state transitions against persisted purchase requests.
// Transitions on the same request are serialized; the persisted status is
// reloaded under the lock, so a stale caller fails with an invalid
// transition rather than overwriting a newer decision.
type Engine interface {
	// Transition fires the trigger for the request, persisting the
	// resulting state. mutate may be nil.
	Transition(ctx context.Context, requestID string, trigger workflow.Trigger, mutate MutateFunc) (*TransitionResult, error)

	// PermittedTriggers returns the triggers available from the
	// request's current state.
	PermittedTriggers(ctx context.Context, requestID string) ([]workflow.Trigger, error)
}
