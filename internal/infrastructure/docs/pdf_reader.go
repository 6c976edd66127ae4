package docs

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/port"
)

// PDFConverter renders proforma and receipt documents into page images
// for the extraction model. PDFs go through mupdf; plain image files
// are re-encoded as JPEG directly.
type PDFConverter struct {
	maxPages int
	logger   *zap.Logger
}

// NewPDFConverter creates a converter that renders at most maxPages
// pages per document
func NewPDFConverter(maxPages int, logger *zap.Logger) *PDFConverter {
	if maxPages <= 0 {
		maxPages = 2
	}
	return &PDFConverter{
		maxPages: maxPages,
		logger:   logger,
	}
}

// PageImages renders the document at path into JPEG page images
func (c *PDFConverter) PageImages(ctx context.Context, path string) ([][]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("document not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return c.convertPDF(path)
	case ".jpg", ".jpeg", ".png":
		img, err := c.readImageFile(path, ext)
		if err != nil {
			return nil, err
		}
		return [][]byte{img}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func (c *PDFConverter) convertPDF(path string) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount > c.maxPages {
		pageCount = c.maxPages
	}

	c.logger.Debug("Rendering PDF pages",
		zap.String("path", path),
		zap.Int("total_pages", doc.NumPage()),
		zap.Int("rendered_pages", pageCount))

	var images [][]byte
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			c.logger.Warn("Failed to render page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		encoded, err := encodeJPEG(img)
		if err != nil {
			c.logger.Warn("Failed to encode page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		images = append(images, encoded)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no pages rendered from %s", path)
	}
	return images, nil
}

func (c *PDFConverter) readImageFile(path, ext string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	var img image.Image
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	case ".png":
		img, err = png.Decode(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return encodeJPEG(img)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify interface compliance
var _ port.DocumentConverter = (*PDFConverter)(nil)
