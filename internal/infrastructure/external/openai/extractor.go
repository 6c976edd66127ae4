package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/port"
	"github.com/kweku/ai-procurement/internal/domain/entity"
)

// Config holds the extraction model settings. BaseURL may point at any
// OpenAI-compatible endpoint, including a local Ollama server.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Extractor implements port.ExtractionAdapter against an
// OpenAI-compatible vision model
type Extractor struct {
	client    *openai.Client
	converter port.DocumentConverter
	storage   port.FileStorage
	cfg       Config
	logger    *zap.Logger
}

// NewExtractor creates a new document extractor
func NewExtractor(cfg Config, converter port.DocumentConverter, storage port.FileStorage, logger *zap.Logger) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	return &Extractor{
		client:    openai.NewClientWithConfig(clientCfg),
		converter: converter,
		storage:   storage,
		cfg:       cfg,
		logger:    logger,
	}
}

// extractedDocument is the wire format the model is asked to produce
type extractedDocument struct {
	VendorName    string `json:"vendor_name"`
	VendorAddress string `json:"vendor_address"`
	VendorEmail   string `json:"vendor_email"`
	VendorPhone   string `json:"vendor_phone"`

	DocumentNumber string `json:"document_number"`
	DocumentDate   string `json:"document_date"`

	LineItems []struct {
		Description string  `json:"description"`
		Quantity    float64 `json:"quantity"`
		UnitPrice   float64 `json:"unit_price"`
		Amount      float64 `json:"amount"`
	} `json:"line_items"`

	Subtotal    float64 `json:"subtotal"`
	TaxAmount   float64 `json:"tax_amount"`
	TotalAmount float64 `json:"total_amount"`
	Currency    string  `json:"currency"`

	PaymentTerms  string  `json:"payment_terms"`
	DeliveryTerms string  `json:"delivery_terms"`
	Confidence    float64 `json:"confidence"`
}

// Extract reads the document behind ref and returns structured data.
// The reported confidence is passed through untouched; the pipeline
// decides whether it honors the adapter contract.
func (e *Extractor) Extract(ctx context.Context, ref string) (*entity.ExtractedData, error) {
	path := e.storage.Path(ref)
	e.logger.Info("Extracting document", zap.String("ref", ref))

	images, err := e.converter.PageImages(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}

	contentParts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: extractionPrompt,
		},
	}
	for _, imgData := range images {
		contentParts = append(contentParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(imgData)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: extractionSystemPrompt,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		e.logger.Error("Extraction API call failed", zap.Error(err))
		return nil, fmt.Errorf("extraction API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from extraction model")
	}

	content := resp.Choices[0].Message.Content

	var doc extractedDocument
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		e.logger.Error("Failed to parse extraction response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	e.logger.Info("Document extracted",
		zap.String("ref", ref),
		zap.String("vendor", doc.VendorName),
		zap.Float64("total", doc.TotalAmount),
		zap.Float64("confidence", doc.Confidence))

	return toExtractedData(&doc), nil
}

// HealthCheck verifies the model endpoint is reachable
func (e *Extractor) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("extraction endpoint unreachable: %w", err)
	}
	return nil
}

func toExtractedData(doc *extractedDocument) *entity.ExtractedData {
	items := make([]entity.LineItem, 0, len(doc.LineItems))
	for _, item := range doc.LineItems {
		items = append(items, entity.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}

	return &entity.ExtractedData{
		VendorName:     doc.VendorName,
		VendorAddress:  doc.VendorAddress,
		VendorEmail:    doc.VendorEmail,
		VendorPhone:    doc.VendorPhone,
		DocumentNumber: doc.DocumentNumber,
		DocumentDate:   doc.DocumentDate,
		LineItems:      items,
		Subtotal:       doc.Subtotal,
		TaxAmount:      doc.TaxAmount,
		TotalAmount:    doc.TotalAmount,
		Currency:       doc.Currency,
		PaymentTerms:   doc.PaymentTerms,
		DeliveryTerms:  doc.DeliveryTerms,
		Confidence:     doc.Confidence,
	}
}

// Verify interface compliance
var _ port.ExtractionAdapter = (*Extractor)(nil)
