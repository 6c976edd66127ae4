package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubConverter returns a fixed page image
type stubConverter struct {
	pages [][]byte
	err   error
}

func (s *stubConverter) PageImages(ctx context.Context, path string) ([][]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pages, nil
}

// stubStorage resolves refs to themselves
type stubStorage struct{}

func (stubStorage) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	return name, nil
}
func (stubStorage) Open(ctx context.Context, ref string) (io.ReadCloser, error) { return nil, nil }
func (stubStorage) Path(ref string) string                                      { return "/docs/" + ref }
func (stubStorage) Exists(ctx context.Context, ref string) bool                 { return true }

// chatResponse builds a minimal chat-completion payload whose message
// content is the given document JSON
func chatResponse(t *testing.T, doc map[string]interface{}) []byte {
	t.Helper()
	content, err := json.Marshal(doc)
	require.NoError(t, err)

	body, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"role": "assistant", "content": string(content)}},
		},
	})
	require.NoError(t, err)
	return body
}

func TestExtractor_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write(chatResponse(t, map[string]interface{}{
			"vendor_name":  "Acme Supplies Ltd",
			"vendor_email": "sales@acme.example",
			"line_items": []map[string]interface{}{
				{"description": "Laptop", "quantity": 2, "unit_price": 1200, "amount": 2400},
			},
			"subtotal":     2400,
			"tax_amount":   120,
			"total_amount": 2520,
			"currency":     "USD",
			"confidence":   0.91,
		}))
	}))
	defer server.Close()

	extractor := NewExtractor(Config{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Model:   "gpt-4o",
	}, &stubConverter{pages: [][]byte{{0xFF, 0xD8}}}, stubStorage{}, zap.NewNop())

	data, err := extractor.Extract(context.Background(), "proforma.pdf")
	require.NoError(t, err)

	assert.Equal(t, "Acme Supplies Ltd", data.VendorName)
	assert.Equal(t, "sales@acme.example", data.VendorEmail)
	assert.Len(t, data.LineItems, 1)
	assert.Equal(t, 2400.0, data.LineItems[0].Amount)
	assert.Equal(t, 2520.0, data.TotalAmount)
	assert.Equal(t, 0.91, data.Confidence)
}

func TestExtractor_ExtractPassesConfidenceThrough(t *testing.T) {
	// An out-of-range confidence is still returned verbatim; enforcing
	// the contract is the caller's job.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(chatResponse(t, map[string]interface{}{
			"vendor_name": "Acme",
			"confidence":  1.7,
		}))
	}))
	defer server.Close()

	extractor := NewExtractor(Config{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Model:   "gpt-4o",
	}, &stubConverter{pages: [][]byte{{0xFF, 0xD8}}}, stubStorage{}, zap.NewNop())

	data, err := extractor.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1.7, data.Confidence)
}

func TestExtractor_ExtractConverterFailure(t *testing.T) {
	extractor := NewExtractor(Config{
		APIKey: "test-key",
		Model:  "gpt-4o",
	}, &stubConverter{err: errors.New("corrupt pdf")}, stubStorage{}, zap.NewNop())

	_, err := extractor.Extract(context.Background(), "broken.pdf")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "render document")
}

func TestExtractor_ExtractMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body, _ := json.Marshal(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "not json at all"}},
			},
		})
		w.Write(body)
	}))
	defer server.Close()

	extractor := NewExtractor(Config{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Model:   "gpt-4o",
	}, &stubConverter{pages: [][]byte{{0xFF, 0xD8}}}, stubStorage{}, zap.NewNop())

	_, err := extractor.Extract(context.Background(), "doc.pdf")
	assert.Error(t, err)
}

func TestExtractor_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	extractor := NewExtractor(Config{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Model:   "gpt-4o",
	}, &stubConverter{}, stubStorage{}, zap.NewNop())

	assert.NoError(t, extractor.HealthCheck(context.Background()))
}

func TestExtractor_HealthCheckUnreachable(t *testing.T) {
	extractor := NewExtractor(Config{
		APIKey:  "test-key",
		BaseURL: "http://127.0.0.1:1/v1",
		Model:   "gpt-4o",
	}, &stubConverter{}, stubStorage{}, zap.NewNop())

	assert.Error(t, extractor.HealthCheck(context.Background()))
}
