package workflow

import (
	"context"

	"github.com/kweku/ai-procurement/internal/domain/workflow"
)

type contextKey string

const amountKey contextKey = "request_amount"

// ContextWithAmount attaches the request amount so routing guards can
// evaluate it during a transition.
func ContextWithAmount(ctx context.Context, amount float64) context.Context {
	return context.WithValue(ctx, amountKey, amount)
}

func amountFromContext(ctx context.Context) (float64, bool) {
	amount, ok := ctx.Value(amountKey).(float64)
	return amount, ok
}

// Factory builds procurement state machines. The machine definition is
// assembled once; Build produces independent instances positioned at a
// persisted state.
type Factory struct {
	builder   *workflow.Builder
	threshold float64
}

// NewFactory creates a factory with the given single-level approval
// threshold. Requests at or below the threshold skip level 2.
func NewFactory(threshold float64) *Factory {
	f := &Factory{threshold: threshold}
	f.builder = f.configure()
	return f
}

// Threshold returns the configured single-level approval threshold
func (f *Factory) Threshold() float64 {
	return f.threshold
}

// MachineFor returns a state machine positioned at the given state
func (f *Factory) MachineFor(state workflow.State) *workflow.Machine {
	return f.builder.Build(state)
}

func (f *Factory) configure() *workflow.Builder {
	b := workflow.NewBuilder()

	b.Configure(workflow.StateDraft).
		Permit(workflow.TriggerSubmit, workflow.StateSubmitted)

	b.Configure(workflow.StateSubmitted).
		Permit(workflow.TriggerRoute, workflow.StatePendingLevel1)

	// Level-1 approval routes on amount: at or below the threshold the
	// request is fully approved, above it a second level is required.
	b.Configure(workflow.StatePendingLevel1).
		PermitIf(workflow.TriggerApprove, workflow.StateApproved, f.withinThreshold).
		PermitIf(workflow.TriggerApprove, workflow.StatePendingLevel2, f.aboveThreshold).
		Permit(workflow.TriggerReject, workflow.StateRejected)

	b.Configure(workflow.StatePendingLevel2).
		Permit(workflow.TriggerApprove, workflow.StateApproved).
		Permit(workflow.TriggerReject, workflow.StateRejected)

	b.Configure(workflow.StateApproved).
		Permit(workflow.TriggerGeneratePO, workflow.StatePOGenerated)

	// A receipt may arrive before the PO was formally dispatched, so the
	// upload is accepted from either side of the dispatch step.
	b.Configure(workflow.StatePOGenerated).
		Permit(workflow.TriggerDispatchPO, workflow.StateAwaitingReceipt).
		Permit(workflow.TriggerUploadReceipt, workflow.StateReceiptUploaded)

	b.Configure(workflow.StateAwaitingReceipt).
		Permit(workflow.TriggerUploadReceipt, workflow.StateReceiptUploaded)

	b.Configure(workflow.StateReceiptUploaded).
		Permit(workflow.TriggerValidate, workflow.StateValidated)

	b.Configure(workflow.StateValidated).
		Permit(workflow.TriggerFinalize, workflow.StateCompleted)

	return b
}

func (f *Factory) withinThreshold(ctx context.Context) bool {
	amount, ok := amountFromContext(ctx)
	return ok && amount <= f.threshold
}

func (f *Factory) aboveThreshold(ctx context.Context) bool {
	amount, ok := amountFromContext(ctx)
	return ok && amount > f.threshold
}
