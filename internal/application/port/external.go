package port

import (
	"context"

	"github.com/kweku/ai-procurement/internal/domain/entity"
)

// ExtractionAdapter is the boundary to the document-understanding model.
// Implementations must report Confidence within [0,1]; callers treat a
// value outside that range as a contract violation, not a model opinion.
type ExtractionAdapter interface {
	// Extract reads the document behind ref and returns structured data
	Extract(ctx context.Context, ref string) (*entity.ExtractedData, error)

	// HealthCheck verifies the backing model endpoint is reachable
	HealthCheck(ctx context.Context) error
}

// DocumentConverter renders a stored document into page images the
// extraction model can read
type DocumentConverter interface {
	PageImages(ctx context.Context, path string) ([][]byte, error)
}

// PurchaseOrderWriter renders a purchase order into a distributable file
type PurchaseOrderWriter interface {
	Write(ctx context.Context, po *entity.PurchaseOrder) (filePath string, err error)
}
