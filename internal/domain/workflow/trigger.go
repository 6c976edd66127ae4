package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerSubmit        Trigger = "SUBMIT"
	TriggerRoute         Trigger = "ROUTE"
	TriggerApprove       Trigger = "APPROVE"
	TriggerReject        Trigger = "REJECT"
	TriggerGeneratePO    Trigger = "GENERATE_PO"
	TriggerDispatchPO    Trigger = "DISPATCH_PO"
	TriggerUploadReceipt Trigger = "UPLOAD_RECEIPT"
	TriggerValidate      Trigger = "VALIDATE"
	TriggerFinalize      Trigger = "FINALIZE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
