package ai

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/models"
)

// TesseractExtractor runs local OCR over a receipt image. It is the last
// resort when the vision model cannot read an amount; results carry a fixed
// reduced confidence because plain OCR cannot judge manipulation.
type TesseractExtractor struct {
	logger *zap.Logger
}

// NewTesseractExtractor creates a local OCR extractor
func NewTesseractExtractor(logger *zap.Logger) *TesseractExtractor {
	return &TesseractExtractor{logger: logger}
}

// Extract OCRs the image and parses transfer fields out of the raw text.
func (t *TesseractExtractor) Extract(image []byte) (models.ExtractedTransferData, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage("ind", "eng"); err != nil {
		return models.ExtractedTransferData{}, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return models.ExtractedTransferData{}, fmt.Errorf("failed to load image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return models.ExtractedTransferData{}, fmt.Errorf("OCR failed: %w", err)
	}

	t.logger.Debug("OCR text recovered", zap.Int("chars", len(text)))

	data := ParseTransferText(text)
	if data.Amount <= 0 {
		return data, fmt.Errorf("no amount found in OCR text")
	}
	return data, nil
}

var (
	// Rp 150.000 / Rp150,000.00 / IDR 150000
	amountLabeledRe = regexp.MustCompile(`(?i)(?:Rp\.?|IDR)\s*([\d.,]+)`)
	// Nominal: 150.000 / Jumlah 150000 / Total Rp ... already covered above
	amountKeywordRe = regexp.MustCompile(`(?i)(?:nominal|jumlah|total|amount)\s*:?\s*(?:Rp\.?|IDR)?\s*([\d.,]+)`)
	dateSlashRe     = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
	dateISORe       = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	timeRe          = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?::\d{2})?\b`)
	refRe           = regexp.MustCompile(`(?i)(?:ref(?:erensi)?|no\.?\s*ref|transaksi)\s*:?\s*#?\s*([A-Za-z0-9-]{6,})`)
)

var knownBanks = []string{
	"BRI", "BRIMO", "BCA", "MANDIRI", "BNI", "BSI", "BTN", "CIMB",
	"PERMATA", "DANAMON", "SEABANK", "JAGO",
	"DANA", "OVO", "GOPAY", "SHOPEEPAY", "LINKAJA", "QRIS",
}

// ParseTransferText pulls transfer fields out of raw OCR text. Amounts marked
// with a keyword (nominal, jumlah, total) win over bare Rp amounts, which can
// also be admin fees or balances.
func ParseTransferText(text string) models.ExtractedTransferData {
	data := models.ExtractedTransferData{}
	upper := strings.ToUpper(text)

	if m := amountKeywordRe.FindStringSubmatch(text); m != nil {
		data.Amount = parseRupiah(m[1])
	}
	if data.Amount <= 0 {
		// Take the largest bare Rp amount; fees are smaller than transfers.
		for _, m := range amountLabeledRe.FindAllStringSubmatch(text, -1) {
			if v := parseRupiah(m[1]); v > data.Amount {
				data.Amount = v
			}
		}
	}

	if m := dateISORe.FindStringSubmatch(text); m != nil {
		data.Date = fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	} else if m := dateSlashRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month > 12 && day <= 12 {
			day, month = month, day
		}
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			data.Date = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		}
	}

	if m := timeRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		data.Time = fmt.Sprintf("%02d:%s", hour, m[2])
	}

	for _, bank := range knownBanks {
		if strings.Contains(upper, bank) {
			if bank == "BRIMO" {
				bank = "BRI"
			}
			data.Bank = bank
			break
		}
	}

	if m := refRe.FindStringSubmatch(text); m != nil {
		data.ReferenceNumber = strings.TrimSpace(m[1])
	}

	data.IsPaymentProof = data.Amount > 0 &&
		(strings.Contains(upper, "BERHASIL") ||
			strings.Contains(upper, "SUKSES") ||
			strings.Contains(upper, "TRANSFER") ||
			strings.Contains(upper, "STRUK"))

	return data
}

// parseRupiah converts "150.000" / "150,000" / "150000,50" style strings into
// a float. Indonesian receipts use dots as thousands separators.
func parseRupiah(s string) float64 {
	s = strings.TrimSpace(s)
	// A trailing comma group of 2 digits is decimals, everything else is a
	// thousands separator.
	if i := strings.LastIndexByte(s, ','); i >= 0 && len(s)-i-1 == 2 {
		s = strings.ReplaceAll(s[:i], ".", "") + "." + s[i+1:]
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
