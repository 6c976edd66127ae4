package workflow

// State represents a workflow state in the purchase-request lifecycle
type State string

const (
	StateDraft           State = "DRAFT"
	StateSubmitted       State = "SUBMITTED"
	StatePendingLevel1   State = "PENDING_LEVEL_1"
	StatePendingLevel2   State = "PENDING_LEVEL_2"
	StateApproved        State = "APPROVED"
	StatePOGenerated     State = "PO_GENERATED"
	StateAwaitingReceipt State = "AWAITING_RECEIPT"
	StateReceiptUploaded State = "RECEIPT_UPLOADED"
	StateValidated       State = "VALIDATED"
	StateCompleted       State = "COMPLETED"
	StateRejected        State = "REJECTED"
)

var validStates = map[State]bool{
	StateDraft:           true,
	StateSubmitted:       true,
	StatePendingLevel1:   true,
	StatePendingLevel2:   true,
	StateApproved:        true,
	StatePOGenerated:     true,
	StateAwaitingReceipt: true,
	StateReceiptUploaded: true,
	StateValidated:       true,
	StateCompleted:       true,
	StateRejected:        true,
}

var terminalStates = map[State]bool{
	StateRejected:  true,
	StateCompleted: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
