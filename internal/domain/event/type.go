package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestSubmitted    Type = "request.submitted"
	TypeApprovalDecided     Type = "request.approval_decided"
	TypeRequestRejected     Type = "request.rejected"
	TypePOGenerated         Type = "request.po_generated"
	TypePODispatched        Type = "request.po_dispatched"
	TypeReceiptUploaded     Type = "request.receipt_uploaded"
	TypeStatusChanged       Type = "request.status_changed"
	TypeExtractionCompleted Type = "job.extraction_completed"
	TypeValidationCompleted Type = "job.validation_completed"
	TypeJobFailed           Type = "job.failed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestSubmitted,
		TypeApprovalDecided,
		TypeRequestRejected,
		TypePOGenerated,
		TypePODispatched,
		TypeReceiptUploaded,
		TypeStatusChanged,
		TypeExtractionCompleted,
		TypeValidationCompleted,
		TypeJobFailed:
		return true
	default:
		return false
	}
}
