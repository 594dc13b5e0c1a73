package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wisnuaji/payproof/internal/ai"
	"github.com/wisnuaji/payproof/internal/models"
)

func passingAssessment() *Assessment {
	return &Assessment{
		Analysis: &ai.AnalysisResult{
			Outcome:    ai.OutcomeParsed,
			IsValid:    true,
			Confidence: 90,
			RiskLevel:  models.RiskLow,
			Validation: ai.Validation{
				IsPaymentProof: true,
				IsRecent:       true,
				AmountMatches:  true,
			},
		},
		RiskScore: 10,
		Recent:    true,
	}
}

func lenientPolicy() models.ApprovalPolicy {
	return models.ApprovalPolicy{
		AutoApproveEnabled:  true,
		MinConfidence:       70,
		RiskThreshold:       models.RiskMedium,
		MaxAgeHours:         24,
		AllowAmountMismatch: false,
	}
}

func exactMatch() *Match {
	return &Match{
		Invoice: &models.Invoice{ID: 1, RemainingAmount: 150000, TotalAmount: 150000},
		Tier:    models.MatchExact,
	}
}

func TestDecide_ApprovesCleanProof(t *testing.T) {
	d := Decide(passingAssessment(), exactMatch(), lenientPolicy(), Options{})
	assert.Equal(t, DecisionApprove, d.Outcome)
	assert.Empty(t, d.Reason)
}

func TestDecide_DuplicateRejectsBeforeEverything(t *testing.T) {
	a := passingAssessment()
	a.Duplicate = true
	d := Decide(a, exactMatch(), lenientPolicy(), Options{ForceManualReview: true})
	assert.Equal(t, DecisionReject, d.Outcome)
	assert.Contains(t, d.Reason, "reference number")
}

func TestDecide_NotAProofRejects(t *testing.T) {
	a := passingAssessment()
	a.Analysis.Outcome = ai.OutcomeInvalid
	a.Analysis.Validation.IsPaymentProof = false
	d := Decide(a, exactMatch(), lenientPolicy(), Options{})
	assert.Equal(t, DecisionReject, d.Outcome)
}

func TestDecide_BlockingFraudIndicatorRejects(t *testing.T) {
	a := passingAssessment()
	a.Analysis.FraudIndicators = []models.FraudIndicator{
		{Type: models.FraudManipulation, Severity: models.SeverityHigh, Description: "pasted box over amount"},
	}
	d := Decide(a, exactMatch(), lenientPolicy(), Options{})
	assert.Equal(t, DecisionReject, d.Outcome)
	assert.Contains(t, d.Reason, models.FraudManipulation)
}

func TestDecide_LowSeverityIndicatorDoesNotReject(t *testing.T) {
	a := passingAssessment()
	a.Analysis.FraudIndicators = []models.FraudIndicator{
		{Type: models.FraudContextIssue, Severity: models.SeverityLow, Description: "slightly blurry"},
	}
	d := Decide(a, exactMatch(), lenientPolicy(), Options{})
	assert.Equal(t, DecisionApprove, d.Outcome)
}

func TestDecide_ForceManualReview(t *testing.T) {
	d := Decide(passingAssessment(), exactMatch(), lenientPolicy(), Options{ForceManualReview: true})
	assert.Equal(t, DecisionReview, d.Outcome)
}

func TestDecide_AutoApproveDisabledGoesToReview(t *testing.T) {
	policy := lenientPolicy()
	policy.AutoApproveEnabled = false
	d := Decide(passingAssessment(), exactMatch(), policy, Options{})
	assert.Equal(t, DecisionReview, d.Outcome)
	assert.Contains(t, d.Reason, "disabled")
}

func TestDecide_LowConfidenceGoesToReview(t *testing.T) {
	a := passingAssessment()
	a.Analysis.Confidence = 60
	d := Decide(a, exactMatch(), lenientPolicy(), Options{})
	assert.Equal(t, DecisionReview, d.Outcome)
	assert.Contains(t, d.Reason, "confidence")
}

func TestDecide_RiskAboveThresholdGoesToReview(t *testing.T) {
	a := passingAssessment()
	a.Analysis.RiskLevel = models.RiskHigh
	d := Decide(a, exactMatch(), lenientPolicy(), Options{})
	assert.Equal(t, DecisionReview, d.Outcome)
	assert.Contains(t, d.Reason, "risk level")
}

func TestDecide_StaleTransferGoesToReview(t *testing.T) {
	a := passingAssessment()
	a.Recent = false
	d := Decide(a, exactMatch(), lenientPolicy(), Options{})
	assert.Equal(t, DecisionReview, d.Outcome)
	assert.Contains(t, d.Reason, "window")
}

func TestDecide_MatchTierAgainstPolicy(t *testing.T) {
	strict := lenientPolicy() // AllowAmountMismatch false
	tolerant := lenientPolicy()
	tolerant.AllowAmountMismatch = true

	tests := []struct {
		name   string
		tier   models.MatchTier
		policy models.ApprovalPolicy
		want   DecisionOutcome
	}{
		{"strict policy approves exact", models.MatchExact, strict, DecisionApprove},
		{"strict policy reviews close", models.MatchClose, strict, DecisionReview},
		{"strict policy reviews partial", models.MatchPartial, strict, DecisionReview},
		{"strict policy reviews mismatch", models.MatchMismatch, strict, DecisionReview},
		{"tolerant policy approves close", models.MatchClose, tolerant, DecisionApprove},
		{"tolerant policy approves partial", models.MatchPartial, tolerant, DecisionApprove},
		{"tolerant policy still reviews mismatch", models.MatchMismatch, tolerant, DecisionReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := exactMatch()
			m.Tier = tt.tier
			m.Diff = 120000
			d := Decide(passingAssessment(), m, tt.policy, Options{})
			assert.Equal(t, tt.want, d.Outcome)
		})
	}
}

// A critical risk assessment rejects even when the policy's own risk
// threshold is cranked all the way up to critical.
func TestDecide_CriticalRiskRejectsUnderAnyPolicy(t *testing.T) {
	a := passingAssessment()
	a.Analysis.RiskLevel = models.RiskCritical

	policy := lenientPolicy()
	policy.RiskThreshold = models.RiskCritical

	d := Decide(a, exactMatch(), policy, Options{})
	assert.Equal(t, DecisionReject, d.Outcome)
	assert.Contains(t, d.Reason, "critical")
}

// Enabling auto-approval must never turn a rejection into an approval; hard
// fraud checks run before any policy leniency.
func TestDecide_PolicyLeniencyCannotOverrideRejection(t *testing.T) {
	a := passingAssessment()
	a.Analysis.FraudIndicators = []models.FraudIndicator{
		{Type: models.FraudManipulation, Severity: models.SeverityCritical, Description: "edited"},
	}

	strict := models.ApprovalPolicy{AutoApproveEnabled: false, MinConfidence: 99, RiskThreshold: models.RiskLow}
	lenient := models.ApprovalPolicy{AutoApproveEnabled: true, MinConfidence: 0, RiskThreshold: models.RiskCritical, AllowAmountMismatch: true}

	dStrict := Decide(a, exactMatch(), strict, Options{})
	dLenient := Decide(a, exactMatch(), lenient, Options{})

	assert.Equal(t, DecisionReject, dStrict.Outcome)
	assert.Equal(t, DecisionReject, dLenient.Outcome)
}
