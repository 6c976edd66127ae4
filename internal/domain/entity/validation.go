package entity

// Recommendation is the disposition suggested by receipt validation
type Recommendation string

const (
	RecommendAccept         Recommendation = "ACCEPT"
	RecommendReviewRequired Recommendation = "REVIEW_REQUIRED"
	RecommendReject         Recommendation = "REJECT"
)

// Discrepancy is one field-level mismatch between a PO and a receipt
type Discrepancy struct {
	Field        string `json:"field"`
	POValue      string `json:"po_value"`
	ReceiptValue string `json:"receipt_value"`
}

// ValidationResult is the immutable outcome of a receipt-validation job
type ValidationResult struct {
	JobID      string `json:"job_id"`
	POID       string `json:"po_id"`
	ReceiptRef string `json:"receipt_ref"`

	Discrepancies []Discrepancy  `json:"discrepancies"`
	Score         float64        `json:"score"`
	Recommendation Recommendation `json:"recommendation"`
}
