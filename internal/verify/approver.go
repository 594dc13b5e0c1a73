package verify

import (
	"fmt"

	"github.com/wisnuaji/payproof/internal/ai"
	"github.com/wisnuaji/payproof/internal/models"
)

// DecisionOutcome is the approver's verdict on a validated proof.
type DecisionOutcome int

const (
	// DecisionApprove lets the executor record the payment.
	DecisionApprove DecisionOutcome = iota
	// DecisionReview parks the proof for a human. Nothing is written.
	DecisionReview
	// DecisionReject refuses the proof outright. Nothing is written.
	DecisionReject
)

func (d DecisionOutcome) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionReview:
		return "manual_review"
	default:
		return "reject"
	}
}

// Decision carries the verdict and the first reason that produced it.
type Decision struct {
	Outcome DecisionOutcome
	Reason  string
}

// Decide applies the approval policy to a validated proof. Checks run in a
// fixed order and the first failing check decides; hard fraud signals reject
// before any policy leniency is consulted, so enabling auto-approval can only
// ever move proofs from review to approval, never from rejection.
func Decide(assessment *Assessment, match *Match, policy models.ApprovalPolicy, opts Options) Decision {
	analysis := assessment.Analysis

	if assessment.Duplicate {
		return Decision{DecisionReject, "reference number was already used by an accepted payment"}
	}

	if analysis.Outcome != ai.OutcomeParsed || !analysis.Validation.IsPaymentProof {
		return Decision{DecisionReject, "image is not a readable payment proof"}
	}

	// Critical risk rejects no matter how lenient the policy is, even one
	// whose risk threshold is set to critical.
	if analysis.RiskLevel == models.RiskCritical {
		return Decision{DecisionReject, "proof assessed at critical risk"}
	}

	for _, ind := range analysis.FraudIndicators {
		if ind.IsBlocking() {
			return Decision{DecisionReject, fmt.Sprintf("blocking fraud indicator: %s (%s)", ind.Type, ind.Description)}
		}
	}

	if opts.ForceManualReview {
		return Decision{DecisionReview, "manual review requested by operator"}
	}

	if !policy.AutoApproveEnabled {
		return Decision{DecisionReview, "auto-approval is disabled"}
	}

	if analysis.Confidence < policy.MinConfidence {
		return Decision{DecisionReview, fmt.Sprintf("confidence %.0f below threshold %.0f", analysis.Confidence, policy.MinConfidence)}
	}

	if analysis.RiskLevel.Ordinal() > policy.RiskThreshold.Ordinal() {
		return Decision{DecisionReview, fmt.Sprintf("risk level %s above threshold %s", analysis.RiskLevel, policy.RiskThreshold)}
	}

	if !assessment.Recent {
		return Decision{DecisionReview, "transfer date outside the allowed window"}
	}

	if policy.AllowAmountMismatch {
		if match.Tier == models.MatchMismatch {
			return Decision{DecisionReview, fmt.Sprintf("amount does not match any open invoice (closest differs by %.0f)", match.Diff)}
		}
	} else if match.Tier != models.MatchExact {
		return Decision{DecisionReview, fmt.Sprintf("match tier %s needs a human; policy only auto-approves exact amounts", match.Tier)}
	}

	return Decision{DecisionApprove, ""}
}
