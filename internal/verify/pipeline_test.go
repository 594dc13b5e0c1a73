package verify

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/models"
)

func newTestPipeline(s *testStore, vision VisionAnalyzer) *Pipeline {
	logger := zap.NewNop()
	cfg := testVerificationConfig()

	extractor := NewExtractor(vision, nil, cfg, logger)
	matcher := NewMatcher(s.invoices.ListOpenByCustomer, s.invoices.GetByID, cfg, logger)
	validator := NewValidator(vision, s.payments.ReferenceExists, cfg, logger)
	executor := NewExecutor(s.db, s.invoices, s.payments, s.customers, cfg, nil, nil, logger)

	return NewPipeline(extractor, matcher, validator, executor,
		s.payments, s.customers, s.settings, s.logs, logger)
}

func enableAutoApproval(t *testing.T, s *testStore) {
	t.Helper()
	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		return s.settings.SavePolicy(tx, models.ApprovalPolicy{
			AutoApproveEnabled:  true,
			MinConfidence:       70,
			RiskThreshold:       models.RiskMedium,
			MaxAgeHours:         24,
			AllowAmountMismatch: false,
		})
	})
	require.NoError(t, err)
}

func todayJSON(overrides map[string]string) string {
	merged := map[string]string{
		"date": fmt.Sprintf("%q", time.Now().Format("2006-01-02")),
		"time": `""`,
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return analysisJSON(merged)
}

func TestPipeline_CleanProofAutoApproves(t *testing.T) {
	s := newTestStore(t)
	customer := s.seedCustomer(t, models.BillingModePrepaid, false)
	inv := s.seedInvoice(t, customer.ID, "INV-001", 150000)
	enableAutoApproval(t, s)

	vision := &fakeVision{responses: []string{todayJSON(nil), todayJSON(nil)}}
	p := newTestPipeline(s, vision)

	result, err := p.Verify(context.Background(), customer.ID, []byte("proof-image-1"), Options{})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, StageComplete, result.Stage)
	assert.Equal(t, models.MatchExact, result.MatchTier)
	require.NotNil(t, result.Payment)
	assert.Equal(t, "TRX-TEST-001", result.Payment.ReferenceNumber)
	require.NotNil(t, result.Actions)
	assert.True(t, result.Actions.PaymentRecorded)
	assert.Equal(t, 2, vision.calls, "extraction pass plus fraud pass")

	stored, err := s.invoices.GetByID(inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, stored.Status)

	stats, err := s.logs.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.AutoApproved)
}

func TestPipeline_ResubmittedImageRejectedWithoutModelCall(t *testing.T) {
	s := newTestStore(t)
	customer := s.seedCustomer(t, models.BillingModePrepaid, false)
	s.seedInvoice(t, customer.ID, "INV-001", 150000)
	s.seedInvoice(t, customer.ID, "INV-002", 150000)
	enableAutoApproval(t, s)

	proof := []byte("proof-image-1")
	vision := &fakeVision{responses: []string{todayJSON(nil), todayJSON(nil)}}
	p := newTestPipeline(s, vision)

	result, err := p.Verify(context.Background(), customer.ID, proof, Options{})
	require.NoError(t, err)
	require.True(t, result.Success)
	callsAfterFirst := vision.calls

	result, err = p.Verify(context.Background(), customer.ID, proof, Options{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Reason, "already accepted")
	assert.Equal(t, models.RiskCritical, result.RiskLevel)
	assert.Equal(t, callsAfterFirst, vision.calls, "duplicate image must not reach the model")

	stats, err := s.logs.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Rejected)
}

func TestPipeline_ReusedReferenceNumberRejected(t *testing.T) {
	s := newTestStore(t)
	customer := s.seedCustomer(t, models.BillingModePrepaid, false)
	s.seedInvoice(t, customer.ID, "INV-001", 150000)
	s.seedInvoice(t, customer.ID, "INV-002", 150000)
	enableAutoApproval(t, s)

	vision := &fakeVision{responses: []string{todayJSON(nil), todayJSON(nil)}}
	p := newTestPipeline(s, vision)

	result, err := p.Verify(context.Background(), customer.ID, []byte("proof-image-1"), Options{})
	require.NoError(t, err)
	require.True(t, result.Success)

	// A different screenshot carrying the same reference number.
	vision.responses = []string{todayJSON(nil), todayJSON(nil)}
	result, err = p.Verify(context.Background(), customer.ID, []byte("proof-image-2"), Options{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Reason, "reference number")
}

func TestPipeline_DisabledPolicyParksForReview(t *testing.T) {
	s := newTestStore(t)
	customer := s.seedCustomer(t, models.BillingModePrepaid, false)
	inv := s.seedInvoice(t, customer.ID, "INV-001", 150000)

	vision := &fakeVision{responses: []string{todayJSON(nil), todayJSON(nil)}}
	p := newTestPipeline(s, vision)

	result, err := p.Verify(context.Background(), customer.ID, []byte("proof-image-1"), Options{})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.True(t, result.RequiresReview)
	assert.Nil(t, result.Payment)

	// Nothing was written.
	stored, err := s.invoices.GetByID(inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, stored.Status)

	stats, err := s.logs.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ManualReview)
}

func TestPipeline_NotAProofFailsAtExtraction(t *testing.T) {
	s := newTestStore(t)
	customer := s.seedCustomer(t, models.BillingModePrepaid, false)
	s.seedInvoice(t, customer.ID, "INV-001", 150000)
	enableAutoApproval(t, s)

	resp := todayJSON(map[string]string{"isValid": "false", "isPaymentProof": "false", "amount": "0"})
	vision := &fakeVision{responses: []string{resp}}
	p := newTestPipeline(s, vision)

	result, err := p.Verify(context.Background(), customer.ID, []byte("cat-photo"), Options{})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, StageExtraction, result.Stage)
	assert.Contains(t, result.Reason, "not a payment proof")
	assert.Equal(t, 1, vision.calls, "no fraud pass for a non-proof")
}

func TestPipeline_VisionOutageFailsAtExtraction(t *testing.T) {
	s := newTestStore(t)
	customer := s.seedCustomer(t, models.BillingModePrepaid, false)
	s.seedInvoice(t, customer.ID, "INV-001", 150000)
	enableAutoApproval(t, s)

	vision := &fakeVision{err: fmt.Errorf("model unavailable")}
	p := newTestPipeline(s, vision)

	result, err := p.Verify(context.Background(), customer.ID, []byte("proof-image-1"), Options{})
	require.NoError(t, err, "a model outage is a verification failure, not a pipeline error")

	assert.False(t, result.Success)
	assert.Equal(t, StageExtraction, result.Stage)
	assert.Contains(t, result.Reason, "could not read")

	// The outage still leaves an audit row behind.
	stats, err := s.logs.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Rejected)
}

func TestPipeline_MismatchedAmountFailsAtMatching(t *testing.T) {
	s := newTestStore(t)
	customer := s.seedCustomer(t, models.BillingModePrepaid, false)
	s.seedInvoice(t, customer.ID, "INV-001", 150000)
	enableAutoApproval(t, s)

	vision := &fakeVision{responses: []string{todayJSON(map[string]string{"amount": "400000"})}}
	p := newTestPipeline(s, vision)

	result, err := p.Verify(context.Background(), customer.ID, []byte("proof-image-1"), Options{})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, StageMatching, result.Stage)
	assert.Equal(t, models.MatchMismatch, result.MatchTier)
	assert.Contains(t, result.Reason, "INV-001")
	assert.Equal(t, 1, vision.calls, "no fraud pass for a mismatched amount")

	stats, err := s.logs.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Rejected)
}

func TestPipeline_BypassCarriesMismatchToApproval(t *testing.T) {
	s := newTestStore(t)
	customer := s.seedCustomer(t, models.BillingModePrepaid, false)
	s.seedInvoice(t, customer.ID, "INV-001", 150000)
	enableAutoApproval(t, s)

	resp := todayJSON(map[string]string{"amount": "400000"})
	vision := &fakeVision{responses: []string{resp, resp}}
	p := newTestPipeline(s, vision)

	result, err := p.Verify(context.Background(), customer.ID, []byte("proof-image-1"), Options{BypassAmountCheck: true})
	require.NoError(t, err)

	// The bypass gets the proof past matching; the policy still demands an
	// exact tier, so the proof parks for a human instead of failing outright.
	assert.False(t, result.Success)
	assert.True(t, result.RequiresReview)
	assert.Equal(t, StageApproval, result.Stage)
	assert.Equal(t, 2, vision.calls)
}

func TestPipeline_NoOpenInvoicesFailsAtMatching(t *testing.T) {
	s := newTestStore(t)
	customer := s.seedCustomer(t, models.BillingModePrepaid, false)
	enableAutoApproval(t, s)

	vision := &fakeVision{responses: []string{todayJSON(nil)}}
	p := newTestPipeline(s, vision)

	result, err := p.Verify(context.Background(), customer.ID, []byte("proof-image-1"), Options{})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, StageMatching, result.Stage)
}

func TestPipeline_UnknownCustomerIsAnError(t *testing.T) {
	s := newTestStore(t)
	p := newTestPipeline(s, &fakeVision{})

	_, err := p.Verify(context.Background(), 999, []byte("proof-image-1"), Options{})
	assert.Error(t, err)
}

func TestPipeline_MissingReferenceDerivedFromImage(t *testing.T) {
	s := newTestStore(t)
	customer := s.seedCustomer(t, models.BillingModePrepaid, false)
	s.seedInvoice(t, customer.ID, "INV-001", 150000)
	enableAutoApproval(t, s)

	resp := todayJSON(map[string]string{"reference": `""`})
	vision := &fakeVision{responses: []string{resp, resp}}
	p := newTestPipeline(s, vision)

	result, err := p.Verify(context.Background(), customer.ID, []byte("proof-image-1"), Options{})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Contains(t, result.Payment.ReferenceNumber, "PH-")
}
