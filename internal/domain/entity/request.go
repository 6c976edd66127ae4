package entity

import "time"

// Decision is the outcome recorded by an approver at a given level
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// PurchaseRequest is the aggregate root of the approval workflow.
// Status is the single source of truth for the lifecycle; booleans such
// as "has a PO" are derived from references, never stored.
type PurchaseRequest struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Status      string     `json:"status"`
	RequesterID string     `json:"requester_id"`
	VendorName  string     `json:"vendor_name,omitempty"`
	VendorEmail string     `json:"vendor_email,omitempty"`

	ProformaRef string `json:"proforma_ref,omitempty"`
	POID        string `json:"po_id,omitempty"`
	ReceiptRef  string `json:"receipt_ref,omitempty"`

	NeedsManualReview bool `json:"needs_manual_review"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ApprovalDecision is one recorded approval or rejection. At most one
// decision exists per (request, level).
type ApprovalDecision struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	Level      int       `json:"level"`
	ApproverID string    `json:"approver_id"`
	Role       Role      `json:"role"`
	Decision   Decision  `json:"decision"`
	Comment    string    `json:"comment,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

// Approved reports whether the decision is an approval
func (d *ApprovalDecision) Approved() bool {
	return d.Decision == DecisionApprove
}

// RequiredApprovalLevels returns the approval levels the amount demands
// given the single-level threshold. The boundary amount itself takes the
// cheaper single-level path.
func RequiredApprovalLevels(amount, threshold float64) []int {
	if amount <= threshold {
		return []int{1}
	}
	return []int{1, 2}
}
