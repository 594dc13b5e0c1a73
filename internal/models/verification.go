package models

import "time"

// RiskLevel is the ordinal fraud-likelihood estimate for a payment proof.
type RiskLevel string

// Risk levels, ordered from least to most severe.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Ordinal returns the rank of the risk level for threshold comparisons.
// Unknown values rank as high.
func (r RiskLevel) Ordinal() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 2
	}
}

// MatchTier is the qualitative closeness between an extracted amount and an
// invoice's remaining or total balance.
type MatchTier string

const (
	MatchExact    MatchTier = "exact"
	MatchClose    MatchTier = "close"
	MatchPartial  MatchTier = "partial"
	MatchMismatch MatchTier = "mismatch"
)

// Rank orders match tiers for tie-breaking; higher is better.
func (m MatchTier) Rank() int {
	switch m {
	case MatchExact:
		return 3
	case MatchClose:
		return 2
	case MatchPartial:
		return 1
	default:
		return 0
	}
}

// Fraud indicator types
const (
	FraudManipulation      = "manipulation"
	FraudDataMismatch      = "data_mismatch"
	FraudSuspiciousPattern = "suspicious_pattern"
	FraudContextIssue      = "context_issue"
	FraudDuplicate         = "duplicate"
)

// Fraud indicator severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// FraudIndicator is a single fraud signal attached to a verification attempt.
type FraudIndicator struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Evidence    string `json:"evidence,omitempty"`
}

// IsBlocking reports whether the indicator's severity forbids auto-approval.
func (f FraudIndicator) IsBlocking() bool {
	return f.Severity == SeverityHigh || f.Severity == SeverityCritical
}

// ExtractedTransferData holds the structured fields read off a transfer
// receipt. Currency is assumed IDR. Transient; never persisted standalone.
type ExtractedTransferData struct {
	Amount          float64 `json:"amount"`
	Date            string  `json:"date"` // YYYY-MM-DD
	Time            string  `json:"time"` // HH:MM
	Bank            string  `json:"bank"`
	AccountNumber   string  `json:"accountNumber"`
	AccountHolder   string  `json:"accountHolder"`
	ReferenceNumber string  `json:"referenceNumber"`
	TransferMethod  string  `json:"transferMethod"`
	IsPaymentProof  bool    `json:"isPaymentProof"`
}

// ApprovalPolicy is the stored auto-approval configuration. Exactly one
// active row exists; when absent, auto-approve is disabled.
type ApprovalPolicy struct {
	AutoApproveEnabled  bool      `json:"auto_approve_enabled"`
	MinConfidence       float64   `json:"min_confidence"` // 0-100
	RiskThreshold       RiskLevel `json:"risk_threshold"`
	MaxAgeHours         int       `json:"max_age_hours"`
	AllowAmountMismatch bool      `json:"allow_amount_mismatch"`
}

// DefaultApprovalPolicy is the policy used when no settings row exists:
// auto-approve disabled, conservative thresholds.
func DefaultApprovalPolicy() ApprovalPolicy {
	return ApprovalPolicy{
		AutoApproveEnabled:  false,
		MinConfidence:       70,
		RiskThreshold:       RiskMedium,
		MaxAgeHours:         24,
		AllowAmountMismatch: false,
	}
}

// Verification attempt outcome statuses
const (
	AttemptSuccess      = "success"
	AttemptFailed       = "failed"
	AttemptManualReview = "manual_review"
)

// VerificationAttempt is an append-only audit record of a pipeline run.
// One row is written per invocation regardless of outcome and is never
// mutated or deleted afterwards.
type VerificationAttempt struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason"`
	Metadata   string    `json:"metadata"` // JSON blob
	CreatedAt  time.Time `json:"created_at"`
}

// VerificationStats aggregates the audit log for reporting.
type VerificationStats struct {
	Total         int64   `json:"total"`
	AutoApproved  int64   `json:"auto_approved"`
	ManualReview  int64   `json:"manual_review"`
	Rejected      int64   `json:"rejected"`
	AvgConfidence float64 `json:"avg_confidence"`
}
