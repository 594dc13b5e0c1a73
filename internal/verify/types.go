package verify

import (
	"context"

	"github.com/wisnuaji/payproof/internal/models"
)

// Pipeline stage names, recorded on results and audit rows so a failure can
// be traced to the stage that produced it. A run that makes it all the way
// through reports the complete stage.
const (
	StageExtraction = "extraction"
	StageMatching   = "matching"
	StageValidation = "validation"
	StageApproval   = "approval"
	StageExecution  = "execution"
	StageComplete   = "complete"
)

// Options tune a single verification run.
type Options struct {
	// ForceManualReview short-circuits the approver into manual review even
	// when the proof would auto-approve.
	ForceManualReview bool
	// BypassAmountCheck lets an operator continue past a mismatch tier that
	// would otherwise fail the run at the matching stage.
	BypassAmountCheck bool
	// InvoiceID pins the run to one invoice instead of letting the matcher
	// choose among the customer's open invoices.
	InvoiceID int64
}

// Result is the outcome of one pipeline run. Exactly one of Success,
// RequiresReview, or a failure reason applies.
type Result struct {
	Success         bool                          `json:"success"`
	RequiresReview  bool                          `json:"requires_review"`
	Stage           string                        `json:"stage"`
	Reason          string                        `json:"reason,omitempty"`
	Confidence      float64                       `json:"confidence"`
	RiskLevel       models.RiskLevel              `json:"risk_level"`
	RiskScore       float64                       `json:"risk_score"`
	MatchTier       models.MatchTier              `json:"match_tier,omitempty"`
	Extracted       *models.ExtractedTransferData `json:"extracted,omitempty"`
	Invoice         *models.Invoice               `json:"invoice,omitempty"`
	Payment         *models.Payment               `json:"payment,omitempty"`
	FraudIndicators []models.FraudIndicator       `json:"fraud_indicators,omitempty"`
	// Actions reports which side effects the executor performed.
	Actions *Actions `json:"actions,omitempty"`
}

// Actions flags the side effects of a successful execution. Isolation removal
// and notification are best-effort, so a successful payment can still carry
// false flags for them.
type Actions struct {
	PaymentRecorded  bool `json:"payment_recorded"`
	IsolationRemoved bool `json:"isolation_removed"`
	NotificationSent bool `json:"notification_sent"`
}

// VisionAnalyzer is the vision model dependency of the extractor and
// validator.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, image []byte, prompt string) (string, error)
}

// OCRFallback is the local OCR dependency used when the vision model cannot
// read an amount.
type OCRFallback interface {
	Extract(image []byte) (models.ExtractedTransferData, error)
}

// Isolator re-enables service for a customer after their last invoice is
// settled. Called after commit; failures are logged, never rolled back.
type Isolator interface {
	Unisolate(ctx context.Context, customerID int64) error
}

// Notifier informs the customer that a payment was accepted. Called after
// commit; failures are logged, never rolled back.
type Notifier interface {
	PaymentAccepted(ctx context.Context, customer *models.Customer, invoice *models.Invoice, payment *models.Payment, settled bool) error
}
