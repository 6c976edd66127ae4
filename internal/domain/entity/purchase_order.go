package entity

import "time"

// PurchaseOrder is the formal order generated once a request is fully
// approved. Exactly one PO exists per request; regeneration returns the
// existing record.
type PurchaseOrder struct {
	ID        string `json:"id"`
	PONumber  string `json:"po_number"`
	RequestID string `json:"request_id"`

	VendorName    string `json:"vendor_name,omitempty"`
	VendorAddress string `json:"vendor_address,omitempty"`
	VendorEmail   string `json:"vendor_email,omitempty"`

	LineItems   []LineItem `json:"line_items"`
	Subtotal    float64    `json:"subtotal"`
	TaxAmount   float64    `json:"tax_amount"`
	TotalAmount float64    `json:"total_amount"`
	Currency    string     `json:"currency"`

	PaymentTerms  string `json:"payment_terms,omitempty"`
	DeliveryTerms string `json:"delivery_terms,omitempty"`

	FilePath  string    `json:"file_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
