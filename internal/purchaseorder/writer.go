package purchaseorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kweku/ai-procurement/internal/application/port"
	"github.com/kweku/ai-procurement/internal/domain/entity"
)

// ExcelWriter renders purchase orders as xlsx documents ready to send
// to the vendor
type ExcelWriter struct {
	outputDir   string
	companyName string
	logger      *zap.Logger
}

// NewExcelWriter creates a writer that stores PO files under outputDir
func NewExcelWriter(outputDir, companyName string, logger *zap.Logger) (*ExcelWriter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &ExcelWriter{
		outputDir:   outputDir,
		companyName: companyName,
		logger:      logger,
	}, nil
}

// Write renders the PO and returns the path of the generated file
func (w *ExcelWriter) Write(ctx context.Context, po *entity.PurchaseOrder) (string, error) {
	w.logger.Info("Rendering purchase order",
		zap.String("po_number", po.PONumber),
		zap.String("request_id", po.RequestID))

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	w.setCell(f, sheet, "A1", "PURCHASE ORDER")
	w.setCell(f, sheet, "A2", w.companyName)
	w.setCell(f, sheet, "A4", "PO Number:")
	w.setCell(f, sheet, "B4", po.PONumber)
	w.setCell(f, sheet, "A5", "Date:")
	w.setCell(f, sheet, "B5", po.CreatedAt.Format("2006-01-02"))

	w.setCell(f, sheet, "A7", "Vendor:")
	w.setCell(f, sheet, "B7", po.VendorName)
	w.setCell(f, sheet, "A8", "Address:")
	w.setCell(f, sheet, "B8", po.VendorAddress)
	w.setCell(f, sheet, "A9", "Email:")
	w.setCell(f, sheet, "B9", po.VendorEmail)

	// Line item table
	headerRow := 11
	w.setCell(f, sheet, cell("A", headerRow), "Description")
	w.setCell(f, sheet, cell("B", headerRow), "Quantity")
	w.setCell(f, sheet, cell("C", headerRow), "Unit Price")
	w.setCell(f, sheet, cell("D", headerRow), "Amount")

	row := headerRow + 1
	for _, item := range po.LineItems {
		w.setCell(f, sheet, cell("A", row), item.Description)
		w.setCell(f, sheet, cell("B", row), item.Quantity)
		w.setCell(f, sheet, cell("C", row), item.UnitPrice)
		w.setCell(f, sheet, cell("D", row), item.Amount)
		row++
	}

	row++
	w.setCell(f, sheet, cell("C", row), "Subtotal:")
	w.setCell(f, sheet, cell("D", row), po.Subtotal)
	row++
	w.setCell(f, sheet, cell("C", row), "Tax:")
	w.setCell(f, sheet, cell("D", row), po.TaxAmount)
	row++
	w.setCell(f, sheet, cell("C", row), fmt.Sprintf("Total (%s):", po.Currency))
	w.setCell(f, sheet, cell("D", row), po.TotalAmount)

	if po.PaymentTerms != "" {
		row += 2
		w.setCell(f, sheet, cell("A", row), "Payment Terms:")
		w.setCell(f, sheet, cell("B", row), po.PaymentTerms)
	}
	if po.DeliveryTerms != "" {
		row++
		w.setCell(f, sheet, cell("A", row), "Delivery Terms:")
		w.setCell(f, sheet, cell("B", row), po.DeliveryTerms)
	}

	outputPath := filepath.Join(w.outputDir, fmt.Sprintf("%s.xlsx", po.PONumber))
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save purchase order file: %w", err)
	}

	w.logger.Info("Purchase order rendered", zap.String("path", outputPath))
	return outputPath, nil
}

func (w *ExcelWriter) setCell(f *excelize.File, sheet, cellRef string, value interface{}) {
	if err := f.SetCellValue(sheet, cellRef, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("cell", cellRef),
			zap.Error(err))
	}
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// Verify interface compliance
var _ port.PurchaseOrderWriter = (*ExcelWriter)(nil)
