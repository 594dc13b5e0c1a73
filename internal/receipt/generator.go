package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/models"
)

// Generator produces XLSX payment receipts for accepted payments.
type Generator struct {
	outputDir   string
	companyName string
	logger      *zap.Logger
}

// NewGenerator creates a new receipt generator
func NewGenerator(outputDir, companyName string, logger *zap.Logger) *Generator {
	return &Generator{outputDir: outputDir, companyName: companyName, logger: logger}
}

// Generate writes a receipt workbook for the payment and returns its path.
func (g *Generator) Generate(customer *models.Customer, invoice *models.Invoice, payment *models.Payment) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Receipt"
	f.SetSheetName("Sheet1", sheet)

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create receipt style: %w", err)
	}
	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create receipt style: %w", err)
	}

	f.MergeCell(sheet, "A1", "B1")
	f.SetCellValue(sheet, "A1", g.companyName)
	f.SetCellStyle(sheet, "A1", "B1", titleStyle)

	f.MergeCell(sheet, "A2", "B2")
	f.SetCellValue(sheet, "A2", "BUKTI PEMBAYARAN")
	f.SetCellStyle(sheet, "A2", "B2", titleStyle)

	statusLabel := "SEBAGIAN"
	if invoice.Status == models.InvoiceStatusPaid {
		statusLabel = "LUNAS"
	}

	rows := [][2]interface{}{
		{"Tanggal", payment.PaymentDate.Format("02-01-2006 15:04")},
		{"Pelanggan", customer.Name},
		{"Kode Pelanggan", customer.CustomerCode},
		{"No. Invoice", invoice.InvoiceNumber},
		{"Periode", invoice.BillingPeriod},
		{"Jumlah Dibayar", fmt.Sprintf("Rp %.0f", payment.Amount)},
		{"Sisa Tagihan", fmt.Sprintf("Rp %.0f", invoice.RemainingAmount)},
		{"Status", statusLabel},
		{"No. Referensi", payment.ReferenceNumber},
		{"Metode", payment.Method},
	}
	for i, row := range rows {
		rowNum := i + 4
		f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNum), row[0])
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), labelStyle)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNum), row[1])
	}

	f.SetColWidth(sheet, "A", "A", 18)
	f.SetColWidth(sheet, "B", "B", 30)

	filename := fmt.Sprintf("receipt_%s_%s.xlsx", invoice.InvoiceNumber, time.Now().Format("20060102_150405"))
	path := filepath.Join(g.outputDir, filename)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save receipt: %w", err)
	}

	g.logger.Info("Payment receipt generated", zap.String("path", path))
	return path, nil
}
