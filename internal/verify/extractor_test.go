package verify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/ai"
	"github.com/wisnuaji/payproof/internal/models"
)

type fakeOCR struct {
	data models.ExtractedTransferData
	err  error
}

func (f *fakeOCR) Extract(image []byte) (models.ExtractedTransferData, error) {
	return f.data, f.err
}

func newTestExtractor(vision VisionAnalyzer, ocr OCRFallback) *Extractor {
	return NewExtractor(vision, ocr, testVerificationConfig(), zap.NewNop())
}

func TestExtractor_PrimaryPassSucceeds(t *testing.T) {
	vision := &fakeVision{responses: []string{analysisJSON(nil)}}
	e := newTestExtractor(vision, nil)

	result := e.Extract(context.Background(), []byte("img"))
	assert.Equal(t, ai.OutcomeParsed, result.Outcome)
	assert.Equal(t, 150000.0, result.Extracted.Amount)
	assert.Equal(t, 1, vision.calls)
}

func TestExtractor_NotAProofDoesNotRetry(t *testing.T) {
	resp := analysisJSON(map[string]string{"isValid": "false", "isPaymentProof": "false", "amount": "0"})
	vision := &fakeVision{responses: []string{resp}}
	e := newTestExtractor(vision, &fakeOCR{err: fmt.Errorf("should not be called")})

	result := e.Extract(context.Background(), []byte("img"))
	assert.Equal(t, ai.OutcomeInvalid, result.Outcome)
	assert.Equal(t, 1, vision.calls)
}

func TestExtractor_AmountOnlyRetryRecovers(t *testing.T) {
	primary := analysisJSON(map[string]string{"amount": "0"})
	retry := `{"amount": 150000, "bank": "DANA", "referenceNumber": "RETRY-REF"}`
	vision := &fakeVision{responses: []string{primary, retry}}
	e := newTestExtractor(vision, nil)

	result := e.Extract(context.Background(), []byte("img"))
	assert.Equal(t, ai.OutcomeParsed, result.Outcome)
	assert.Equal(t, 150000.0, result.Extracted.Amount)
	// Fields the first pass already read are kept over the retry's.
	assert.Equal(t, "BRI", result.Extracted.Bank)
	assert.Equal(t, "TRX-TEST-001", result.Extracted.ReferenceNumber)
	assert.Equal(t, 2, vision.calls)
}

func TestExtractor_OCRFallbackRecovers(t *testing.T) {
	vision := &fakeVision{responses: []string{"unreadable", "still unreadable"}}
	ocr := &fakeOCR{data: models.ExtractedTransferData{
		Amount:          99000,
		Bank:            "BCA",
		Date:            "2026-08-31",
		ReferenceNumber: "OCR-REF",
		IsPaymentProof:  true,
	}}
	e := newTestExtractor(vision, ocr)

	result := e.Extract(context.Background(), []byte("img"))
	assert.Equal(t, ai.OutcomeParsed, result.Outcome)
	assert.Equal(t, 99000.0, result.Extracted.Amount)
	assert.Equal(t, "BCA", result.Extracted.Bank)
	assert.Equal(t, 55.0, result.Confidence, "OCR results carry the reduced fallback confidence")
}

func TestExtractor_AllAttemptsFailTerminally(t *testing.T) {
	vision := &fakeVision{responses: []string{"unreadable", "still unreadable"}}
	ocr := &fakeOCR{err: fmt.Errorf("tesseract found nothing")}
	e := newTestExtractor(vision, ocr)

	result := e.Extract(context.Background(), []byte("img"))
	assert.Equal(t, ai.OutcomeUnparseable, result.Outcome)
	assert.Equal(t, models.RiskHigh, result.RiskLevel)
	assert.Equal(t, 80.0, result.RiskScore)
	assert.Equal(t, 0.0, result.Confidence)
}

// A model outage must stay inside the stage: no error escapes, and OCR still
// gets its chance to read the proof.
func TestExtractor_VisionOutageFallsBackToOCR(t *testing.T) {
	vision := &fakeVision{err: fmt.Errorf("model unavailable")}
	ocr := &fakeOCR{data: models.ExtractedTransferData{
		Amount:         120000,
		Bank:           "BNI",
		IsPaymentProof: true,
	}}
	e := newTestExtractor(vision, ocr)

	result := e.Extract(context.Background(), []byte("img"))
	require.NotNil(t, result)
	assert.Equal(t, ai.OutcomeParsed, result.Outcome)
	assert.Equal(t, 120000.0, result.Extracted.Amount)
	assert.Equal(t, 55.0, result.Confidence)
}

func TestExtractor_VisionOutageWithoutOCRIsTerminal(t *testing.T) {
	vision := &fakeVision{err: fmt.Errorf("model unavailable")}
	e := newTestExtractor(vision, nil)

	result := e.Extract(context.Background(), []byte("img"))
	require.NotNil(t, result)
	assert.Equal(t, ai.OutcomeUnparseable, result.Outcome)
	assert.Equal(t, models.RiskHigh, result.RiskLevel)
	assert.Equal(t, 0.0, result.Confidence)
}
