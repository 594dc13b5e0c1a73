package verify

import (
	"context"

	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/ai"
	"github.com/wisnuaji/payproof/internal/config"
)

// Extractor turns a proof image into structured transfer data. It escalates
// through three attempts: the full extraction prompt, a specialized
// amount-only retry, and finally local OCR.
type Extractor struct {
	vision VisionAnalyzer
	ocr    OCRFallback
	cfg    config.VerificationConfig
	logger *zap.Logger
}

// NewExtractor creates a new extractor stage
func NewExtractor(vision VisionAnalyzer, ocr OCRFallback, cfg config.VerificationConfig, logger *zap.Logger) *Extractor {
	return &Extractor{vision: vision, ocr: ocr, cfg: cfg, logger: logger}
}

// Extract runs the escalation chain. Model and network errors never escape
// the stage: every path either recovers an amount or returns a terminal
// high-risk result for the pipeline to fail at the extraction stage.
func (e *Extractor) Extract(ctx context.Context, image []byte) *ai.AnalysisResult {
	var result *ai.AnalysisResult

	raw, err := e.vision.Analyze(ctx, image, ai.ExtractionPrompt())
	if err != nil {
		// A model outage is an extraction failure, not a pipeline error.
		// The fallbacks below still get their chance.
		e.logger.Warn("Primary extraction call failed, trying fallbacks", zap.Error(err))
		result = ai.ParseAnalysis("")
	} else {
		result = ai.ParseAnalysis(raw)
	}

	if result.Outcome == ai.OutcomeParsed && result.Extracted.Amount > 0 {
		return result
	}
	if result.Outcome == ai.OutcomeInvalid {
		// The model read the image fine and says it is not a payment proof.
		// Retrying will not change that.
		return result
	}

	e.logger.Info("Primary extraction found no amount, retrying with amount-only prompt",
		zap.String("outcome", result.Outcome.String()))

	if recovered := e.retryAmountOnly(ctx, image, result); recovered != nil {
		return recovered
	}

	if recovered := e.fallbackOCR(image, result); recovered != nil {
		return recovered
	}

	// Terminal: nothing could read an amount. Keep whatever the first pass
	// produced so the audit row carries the model's raw response.
	e.logger.Warn("All extraction attempts failed to recover an amount")
	return result
}

// retryAmountOnly re-asks the model with the narrow amount prompt and merges
// the recovered fields into the first pass result.
func (e *Extractor) retryAmountOnly(ctx context.Context, image []byte, base *ai.AnalysisResult) *ai.AnalysisResult {
	raw, err := e.vision.Analyze(ctx, image, ai.AmountOnlyPrompt())
	if err != nil {
		e.logger.Warn("Amount-only retry failed", zap.Error(err))
		return nil
	}

	amount, ok := ai.ParseAmountOnly(raw)
	if !ok {
		return nil
	}

	merged := *base
	merged.Outcome = ai.OutcomeParsed
	merged.Extracted.Amount = amount.Amount
	merged.Extracted.IsPaymentProof = true
	if merged.Extracted.Bank == "" {
		merged.Extracted.Bank = amount.Bank
	}
	if merged.Extracted.ReferenceNumber == "" {
		merged.Extracted.ReferenceNumber = amount.ReferenceNumber
	}
	if merged.Confidence == 0 {
		merged.Confidence = e.cfg.OCRFallbackConfidence
	}
	merged.Validation.IsPaymentProof = true
	return &merged
}

// fallbackOCR runs local OCR. Results carry a fixed reduced confidence since
// plain OCR cannot judge manipulation.
func (e *Extractor) fallbackOCR(image []byte, base *ai.AnalysisResult) *ai.AnalysisResult {
	if e.ocr == nil {
		return nil
	}

	data, err := e.ocr.Extract(image)
	if err != nil {
		e.logger.Warn("OCR fallback failed", zap.Error(err))
		return nil
	}

	e.logger.Info("OCR fallback recovered transfer data",
		zap.Float64("amount", data.Amount), zap.String("bank", data.Bank))

	merged := *base
	merged.Outcome = ai.OutcomeParsed
	merged.Extracted = data
	merged.Extracted.IsPaymentProof = true
	merged.Validation.IsPaymentProof = true
	merged.Confidence = e.cfg.OCRFallbackConfidence
	return &merged
}
