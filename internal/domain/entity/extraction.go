package entity

// LineItem is one row of a proforma, purchase order or receipt
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

// ExtractedData is the structured output of a document extraction job.
// It is an immutable snapshot owned by the job that produced it; the
// workflow reads it by value and never mutates it.
type ExtractedData struct {
	JobID string `json:"job_id"`

	VendorName    string `json:"vendor_name,omitempty"`
	VendorAddress string `json:"vendor_address,omitempty"`
	VendorEmail   string `json:"vendor_email,omitempty"`
	VendorPhone   string `json:"vendor_phone,omitempty"`

	DocumentNumber string `json:"document_number,omitempty"`
	DocumentDate   string `json:"document_date,omitempty"`

	LineItems   []LineItem `json:"line_items"`
	Subtotal    float64    `json:"subtotal"`
	TaxAmount   float64    `json:"tax_amount"`
	TotalAmount float64    `json:"total_amount"`
	Currency    string     `json:"currency"`

	PaymentTerms  string `json:"payment_terms,omitempty"`
	DeliveryTerms string `json:"delivery_terms,omitempty"`

	// Confidence is the adapter-reported certainty in [0,1]
	Confidence float64 `json:"confidence"`
}
