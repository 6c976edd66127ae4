package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/kweku/ai-procurement/internal/domain/entity"
)

// ValidatorConfig tunes receipt-against-PO matching
type ValidatorConfig struct {
	// AmountTolerance is the relative tolerance on monetary amounts;
	// 0.05 accepts a 5% difference.
	AmountTolerance float64

	// AcceptThreshold is the minimum score for an ACCEPT recommendation
	AcceptThreshold float64

	// ReviewThreshold is the minimum score for REVIEW_REQUIRED; scores
	// below it recommend REJECT.
	ReviewThreshold float64
}

// DefaultValidatorConfig returns the standard matching thresholds
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		AmountTolerance: 0.05,
		AcceptThreshold: 0.85,
		ReviewThreshold: 0.5,
	}
}

// Validator compares receipt data against the purchase order it settles.
// Each compared field contributes equally; the score is the matched
// fraction and the recommendation follows fixed bands.
type Validator struct {
	cfg ValidatorConfig
}

// NewValidator creates a validator with the given thresholds
func NewValidator(cfg ValidatorConfig) *Validator {
	if cfg.AcceptThreshold == 0 && cfg.ReviewThreshold == 0 {
		cfg = DefaultValidatorConfig()
	}
	return &Validator{cfg: cfg}
}

// Validate scores the receipt against the PO and recommends a disposition
func (v *Validator) Validate(po *entity.PurchaseOrder, receipt *entity.ExtractedData) *entity.ValidationResult {
	var discrepancies []entity.Discrepancy
	compared := 0

	compared++
	if normalizeVendor(po.VendorName) != normalizeVendor(receipt.VendorName) {
		discrepancies = append(discrepancies, entity.Discrepancy{
			Field:        "vendor_name",
			POValue:      po.VendorName,
			ReceiptValue: receipt.VendorName,
		})
	}

	compared++
	if !v.amountsMatch(po.TotalAmount, receipt.TotalAmount) {
		discrepancies = append(discrepancies, entity.Discrepancy{
			Field:        "total_amount",
			POValue:      formatAmount(po.TotalAmount),
			ReceiptValue: formatAmount(receipt.TotalAmount),
		})
	}

	receiptLines := make(map[string]entity.LineItem, len(receipt.LineItems))
	for _, item := range receipt.LineItems {
		receiptLines[normalizeVendor(item.Description)] = item
	}

	for _, item := range po.LineItems {
		compared++
		match, ok := receiptLines[normalizeVendor(item.Description)]
		if !ok {
			discrepancies = append(discrepancies, entity.Discrepancy{
				Field:        fmt.Sprintf("line_item:%s", item.Description),
				POValue:      formatAmount(item.Amount),
				ReceiptValue: "missing",
			})
			continue
		}
		if !v.amountsMatch(item.Amount, match.Amount) {
			discrepancies = append(discrepancies, entity.Discrepancy{
				Field:        fmt.Sprintf("line_item:%s", item.Description),
				POValue:      formatAmount(item.Amount),
				ReceiptValue: formatAmount(match.Amount),
			})
		}
	}

	score := 1.0
	if compared > 0 {
		score = 1.0 - float64(len(discrepancies))/float64(compared)
	}
	score = clamp01(score)

	return &entity.ValidationResult{
		POID:           po.ID,
		Discrepancies:  discrepancies,
		Score:          score,
		Recommendation: v.recommend(score),
	}
}

func (v *Validator) recommend(score float64) entity.Recommendation {
	switch {
	case score >= v.cfg.AcceptThreshold:
		return entity.RecommendAccept
	case score >= v.cfg.ReviewThreshold:
		return entity.RecommendReviewRequired
	default:
		return entity.RecommendReject
	}
}

func (v *Validator) amountsMatch(expected, actual float64) bool {
	if expected == actual {
		return true
	}
	if expected == 0 {
		return math.Abs(actual) < 1e-9
	}
	return math.Abs(expected-actual)/math.Abs(expected) <= v.cfg.AmountTolerance
}

func normalizeVendor(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func formatAmount(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
