package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/ai"
	"github.com/wisnuaji/payproof/internal/models"
	"github.com/wisnuaji/payproof/internal/repository"
)

// Pipeline chains the five verification stages. One invocation verifies one
// proof for one customer and always leaves exactly one audit row behind.
type Pipeline struct {
	extractor *Extractor
	matcher   *Matcher
	validator *Validator
	executor  *Executor
	payments  *repository.PaymentRepository
	customers *repository.CustomerRepository
	settings  *repository.SettingsRepository
	logs      *repository.VerificationLogRepository
	logger    *zap.Logger
}

// NewPipeline creates a new verification pipeline
func NewPipeline(extractor *Extractor, matcher *Matcher, validator *Validator, executor *Executor,
	payments *repository.PaymentRepository, customers *repository.CustomerRepository,
	settings *repository.SettingsRepository, logs *repository.VerificationLogRepository,
	logger *zap.Logger) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		matcher:   matcher,
		validator: validator,
		executor:  executor,
		payments:  payments,
		customers: customers,
		settings:  settings,
		logs:      logs,
		logger:    logger,
	}
}

// Verify runs a proof through the full pipeline. Rejections and review
// verdicts come back as a Result, not an error; errors mean the pipeline
// itself could not run (storage failure, unknown customer).
func (p *Pipeline) Verify(ctx context.Context, customerID int64, proof []byte, opts Options) (*Result, error) {
	customer, err := p.customers.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("customer %d not found", customerID)
	}

	proofHash := hashProof(proof)

	// An identical image accepted before is a duplicate regardless of what
	// the model would extract from it. Cheapest check first.
	seen, err := p.payments.ProofHashExists(proofHash)
	if err != nil {
		return nil, err
	}
	if seen {
		result := &Result{
			Stage:     StageValidation,
			Reason:    "this exact proof image was already accepted",
			RiskLevel: models.RiskCritical,
			RiskScore: 100,
		}
		p.audit(customer.ID, models.AttemptFailed, result)
		return result, nil
	}

	if ai.IsPDF(proof) {
		rendered, err := ai.RenderPDFPage(proof)
		if err != nil {
			result := &Result{Stage: StageExtraction, Reason: fmt.Sprintf("unreadable PDF: %v", err)}
			p.audit(customer.ID, models.AttemptFailed, result)
			return result, nil
		}
		proof = rendered
	}

	policy, err := p.settings.GetActivePolicy()
	if err != nil {
		return nil, err
	}

	// Stage 1: extraction.
	analysis := p.extractor.Extract(ctx, proof)
	if analysis.Outcome != ai.OutcomeParsed || analysis.Extracted.Amount <= 0 {
		result := &Result{
			Stage:      StageExtraction,
			Reason:     extractionFailureReason(analysis),
			Confidence: analysis.Confidence,
			RiskLevel:  analysis.RiskLevel,
			RiskScore:  analysis.RiskScore,
			Extracted:  &analysis.Extracted,
		}
		p.audit(customer.ID, models.AttemptFailed, result)
		return result, nil
	}

	// Stage 2: matching.
	match, err := p.matcher.Match(customer.ID, analysis.Extracted.Amount, opts.InvoiceID)
	if err != nil {
		result := &Result{
			Stage:      StageMatching,
			Reason:     err.Error(),
			Confidence: analysis.Confidence,
			RiskLevel:  analysis.RiskLevel,
			Extracted:  &analysis.Extracted,
		}
		p.audit(customer.ID, models.AttemptFailed, result)
		return result, nil
	}

	// An amount fitting no tier fails here, before the fraud pass spends a
	// second model call. The operator bypass carries the mismatch forward.
	if match.Tier == models.MatchMismatch && !opts.BypassAmountCheck {
		result := &Result{
			Stage: StageMatching,
			Reason: fmt.Sprintf("amount %.0f does not match any open invoice (closest %s differs by %.0f)",
				analysis.Extracted.Amount, match.Invoice.InvoiceNumber, match.Diff),
			Confidence: analysis.Confidence,
			RiskLevel:  analysis.RiskLevel,
			RiskScore:  analysis.RiskScore,
			MatchTier:  match.Tier,
			Extracted:  &analysis.Extracted,
			Invoice:    match.Invoice,
		}
		p.audit(customer.ID, models.AttemptFailed, result)
		return result, nil
	}

	// Stage 3: validation.
	assessment, err := p.validator.Validate(ctx, proof, analysis, match, customer, policy)
	if err != nil {
		return nil, err
	}
	final := assessment.Analysis

	// Stage 4: approval.
	decision := Decide(assessment, match, policy, opts)

	result := &Result{
		Stage:           StageApproval,
		Reason:          decision.Reason,
		Confidence:      final.Confidence,
		RiskLevel:       final.RiskLevel,
		RiskScore:       assessment.RiskScore,
		MatchTier:       match.Tier,
		Extracted:       &final.Extracted,
		Invoice:         match.Invoice,
		FraudIndicators: final.FraudIndicators,
	}

	switch decision.Outcome {
	case DecisionReject:
		p.audit(customer.ID, models.AttemptFailed, result)
		return result, nil
	case DecisionReview:
		result.RequiresReview = true
		p.audit(customer.ID, models.AttemptManualReview, result)
		return result, nil
	}

	// Stage 5: execution.
	if final.Extracted.ReferenceNumber == "" {
		// The unique reference constraint needs a value; derive one from the
		// image so resubmitting the same proof still collides.
		final.Extracted.ReferenceNumber = "PH-" + proofHash[:16]
	}

	payment, actions, err := p.executor.Execute(ctx, customer, match, final.Extracted, proofHash)
	if err != nil {
		result.Stage = StageExecution
		if errors.Is(err, repository.ErrDuplicateReference) {
			result.Reason = "reference number was already used by an accepted payment"
			p.audit(customer.ID, models.AttemptFailed, result)
			return result, nil
		}
		result.Reason = err.Error()
		p.audit(customer.ID, models.AttemptFailed, result)
		return nil, err
	}

	result.Stage = StageComplete
	result.Success = true
	result.Payment = payment
	result.Actions = &actions
	p.audit(customer.ID, models.AttemptSuccess, result)
	return result, nil
}

// Customer looks up a customer for callers sitting on top of the pipeline.
func (p *Pipeline) Customer(id int64) (*models.Customer, error) {
	customer, err := p.customers.GetByID(id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("customer %d not found", id)
	}
	return customer, nil
}

// audit appends one row to the verification log. A logging failure never
// changes the pipeline outcome.
func (p *Pipeline) audit(customerID int64, status string, result *Result) {
	metadata := repository.MarshalMetadata(map[string]interface{}{
		"stage":      result.Stage,
		"confidence": result.Confidence,
		"risk_level": result.RiskLevel,
		"risk_score": result.RiskScore,
		"match_tier": result.MatchTier,
		"actions":    result.Actions,
	})
	attempt := &models.VerificationAttempt{
		CustomerID: customerID,
		Status:     status,
		Reason:     result.Reason,
		Metadata:   metadata,
	}
	if err := p.logs.Append(attempt); err != nil {
		p.logger.Error("Failed to append verification audit row",
			zap.Int64("customer_id", customerID), zap.Error(err))
	}
}

func extractionFailureReason(analysis *ai.AnalysisResult) string {
	switch analysis.Outcome {
	case ai.OutcomeInvalid:
		return "image is not a payment proof"
	case ai.OutcomeUnparseable:
		return "could not read the proof image"
	default:
		return "no transfer amount could be read"
	}
}

func hashProof(proof []byte) string {
	sum := sha256.Sum256(proof)
	return hex.EncodeToString(sum[:])
}
