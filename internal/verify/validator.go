package verify

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/ai"
	"github.com/wisnuaji/payproof/internal/config"
	"github.com/wisnuaji/payproof/internal/models"
)

// Assessment is the validator's combined judgment over a matched proof.
type Assessment struct {
	// Analysis is the fraud-pass analysis merged over the extraction pass.
	Analysis *ai.AnalysisResult
	// RiskScore is the recomputed 0-100 score; it overrides whatever the
	// model self-reported.
	RiskScore float64
	// Duplicate is set when the reference number was already accepted.
	Duplicate bool
	// Recent reports whether the transfer date falls inside the allowed
	// window.
	Recent bool
}

// Validator runs the fraud-focused second pass and the deterministic checks
// the model cannot be trusted with: duplicates, the time window, and amount
// consistency.
type Validator struct {
	vision    VisionAnalyzer
	refExists func(string) (bool, error)
	cfg       config.VerificationConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewValidator creates a new validator stage
func NewValidator(vision VisionAnalyzer, refExists func(string) (bool, error), cfg config.VerificationConfig, logger *zap.Logger) *Validator {
	return &Validator{
		vision:    vision,
		refExists: refExists,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Validate cross-checks the extraction against the matched invoice. The
// fraud pass failing is not fatal; the extraction-pass analysis is assessed
// alone in that case.
func (v *Validator) Validate(ctx context.Context, image []byte, extraction *ai.AnalysisResult, match *Match, customer *models.Customer, policy models.ApprovalPolicy) (*Assessment, error) {
	analysis := v.fraudPass(ctx, image, extraction, match, customer)

	assessment := &Assessment{Analysis: analysis}

	// Duplicate reference check is advisory here; the unique constraint at
	// execution time is the authoritative guard.
	if ref := analysis.Extracted.ReferenceNumber; ref != "" {
		exists, err := v.refExists(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to check duplicate reference: %w", err)
		}
		if exists {
			assessment.Duplicate = true
			analysis.FraudIndicators = append(analysis.FraudIndicators, models.FraudIndicator{
				Type:        models.FraudDuplicate,
				Severity:    models.SeverityCritical,
				Description: "reference number was already accepted for a previous payment",
				Evidence:    ref,
			})
		}
	}

	assessment.Recent = v.checkRecency(analysis, policy)
	v.checkAmountConsistency(analysis, extraction)

	assessment.RiskScore = ComputeRiskScore(analysis, assessment.Recent)
	analysis.RiskScore = assessment.RiskScore

	v.logger.Info("Proof validated",
		zap.Float64("risk_score", assessment.RiskScore),
		zap.String("risk_level", string(analysis.RiskLevel)),
		zap.Bool("duplicate", assessment.Duplicate),
		zap.Bool("recent", assessment.Recent),
		zap.Int("fraud_indicators", len(analysis.FraudIndicators)))

	return assessment, nil
}

// fraudPass runs the second vision call with invoice context. On any failure
// the extraction-pass analysis is used unchanged.
func (v *Validator) fraudPass(ctx context.Context, image []byte, extraction *ai.AnalysisResult, match *Match, customer *models.Customer) *ai.AnalysisResult {
	exp := ai.Expectation{
		Amount:        match.Invoice.RemainingAmount,
		CustomerName:  customer.Name,
		InvoiceNumber: match.Invoice.InvoiceNumber,
		Bank:          extraction.Extracted.Bank,
	}

	raw, err := v.vision.Analyze(ctx, image, ai.FraudAnalysisPrompt(exp))
	if err != nil {
		v.logger.Warn("Fraud analysis pass failed, assessing extraction pass alone", zap.Error(err))
		return extraction
	}

	analysis := ai.ParseAnalysis(raw)
	if analysis.Outcome == ai.OutcomeUnparseable {
		v.logger.Warn("Fraud analysis response unparseable, assessing extraction pass alone")
		return extraction
	}

	// Keep the extraction pass's amount when the fraud pass read none.
	if analysis.Extracted.Amount <= 0 {
		analysis.Extracted.Amount = extraction.Extracted.Amount
	}
	if analysis.Extracted.ReferenceNumber == "" {
		analysis.Extracted.ReferenceNumber = extraction.Extracted.ReferenceNumber
	}
	if analysis.Extracted.Date == "" {
		analysis.Extracted.Date = extraction.Extracted.Date
	}
	if analysis.Extracted.Bank == "" {
		analysis.Extracted.Bank = extraction.Extracted.Bank
	}
	return analysis
}

// checkRecency verifies the transfer date sits inside the policy window and
// not in the future beyond clock-drift allowance. An unparseable date fails
// open to the model's own isRecent flag; the model sees the printed date even
// when OCR mangles it.
func (v *Validator) checkRecency(analysis *ai.AnalysisResult, policy models.ApprovalPolicy) bool {
	transferAt, hasClock, ok := parseTransferTimestamp(analysis.Extracted.Date, analysis.Extracted.Time)
	if !ok {
		return analysis.Validation.IsRecent
	}

	now := v.now()
	if transferAt.After(now.Add(v.cfg.FutureSkew)) {
		analysis.FraudIndicators = append(analysis.FraudIndicators, models.FraudIndicator{
			Type:        models.FraudContextIssue,
			Severity:    models.SeverityHigh,
			Description: "transfer is dated in the future",
			Evidence:    analysis.Extracted.Date,
		})
		return false
	}

	maxAge := time.Duration(policy.MaxAgeHours) * time.Hour
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if !hasClock {
		// A date-only timestamp counts as end of that day so a same-day
		// transfer is never older than the window.
		transferAt = transferAt.Add(23*time.Hour + 59*time.Minute)
	}
	return now.Sub(transferAt) <= maxAge
}

// checkAmountConsistency flags a fraud pass that read a different amount than
// the extraction pass. A disagreement between two reads of the same image is
// a manipulation signal.
func (v *Validator) checkAmountConsistency(analysis, extraction *ai.AnalysisResult) {
	if analysis == extraction || extraction.Extracted.Amount <= 0 || analysis.Extracted.Amount <= 0 {
		return
	}
	if math.Abs(analysis.Extracted.Amount-extraction.Extracted.Amount) > v.cfg.ConsistencyTolerance {
		analysis.FraudIndicators = append(analysis.FraudIndicators, models.FraudIndicator{
			Type:        models.FraudDataMismatch,
			Severity:    models.SeverityMedium,
			Description: "extraction passes read different amounts from the same image",
			Evidence: fmt.Sprintf("first read %.0f, second read %.0f",
				extraction.Extracted.Amount, analysis.Extracted.Amount),
		})
	}
}

// parseTransferTimestamp combines the extracted date and optional time.
// The transfer timestamp is interpreted in server-local time, matching how
// receipt timestamps are printed. hasClock reports whether a time of day was
// recovered; without one the timestamp is the start of the day.
func parseTransferTimestamp(date, clock string) (t time.Time, hasClock, ok bool) {
	if date == "" {
		return time.Time{}, false, false
	}
	if clock != "" {
		if t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.Local); err == nil {
			return t, true, true
		}
	}
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return time.Time{}, false, false
	}
	return t, false, true
}

// ComputeRiskScore recomputes the 0-100 risk score from the model's
// qualitative level plus deterministic penalties. The model's self-reported
// numeric score is ignored.
func ComputeRiskScore(analysis *ai.AnalysisResult, recent bool) float64 {
	var score float64
	switch analysis.RiskLevel {
	case models.RiskLow:
		score = 10
	case models.RiskMedium:
		score = 40
	case models.RiskHigh:
		score = 70
	case models.RiskCritical:
		score = 90
	default:
		score = 70
	}

	if !analysis.Validation.IsPaymentProof {
		score += 30
	}
	if !recent {
		score += 15
	}
	if !analysis.Validation.AmountMatches {
		score += 10
	}
	if analysis.Validation.HasManipulation {
		score += 40
	}

	score -= analysis.Confidence / 5

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
