package verify

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/config"
	"github.com/wisnuaji/payproof/internal/models"
)

// Match pairs an extracted amount with one invoice at a given tier.
type Match struct {
	Invoice *models.Invoice
	Tier    models.MatchTier
	// Diff is the absolute difference against the invoice's remaining amount.
	Diff float64
}

// Matcher pairs an extracted transfer amount with one of the customer's open
// invoices.
type Matcher struct {
	invoices *invoiceLister
	cfg      config.VerificationConfig
	logger   *zap.Logger
}

// invoiceLister is the narrow repository surface the matcher needs.
type invoiceLister struct {
	ListOpenByCustomer func(customerID int64) ([]*models.Invoice, error)
	GetByID            func(id int64) (*models.Invoice, error)
}

// NewMatcher creates a new matcher stage
func NewMatcher(listOpen func(int64) ([]*models.Invoice, error), getByID func(int64) (*models.Invoice, error), cfg config.VerificationConfig, logger *zap.Logger) *Matcher {
	return &Matcher{
		invoices: &invoiceLister{ListOpenByCustomer: listOpen, GetByID: getByID},
		cfg:      cfg,
		logger:   logger,
	}
}

// Match selects the invoice the amount most plausibly pays. When pinnedID is
// nonzero the choice is forced to that invoice and only the tier is computed.
// Among candidates the best tier wins; ties go to the earliest due date,
// which is the order the repository returns.
func (m *Matcher) Match(customerID int64, amount float64, pinnedID int64) (*Match, error) {
	if pinnedID != 0 {
		inv, err := m.invoices.GetByID(pinnedID)
		if err != nil {
			return nil, err
		}
		if inv == nil || inv.CustomerID != customerID {
			return nil, fmt.Errorf("invoice %d not found for customer %d", pinnedID, customerID)
		}
		tier := ClassifyAmount(amount, inv.RemainingAmount, inv.TotalAmount, m.cfg)
		return &Match{Invoice: inv, Tier: tier, Diff: math.Abs(amount - inv.RemainingAmount)}, nil
	}

	invoices, err := m.invoices.ListOpenByCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, fmt.Errorf("customer %d has no open invoices", customerID)
	}

	best := &Match{Invoice: invoices[0], Tier: models.MatchMismatch, Diff: math.MaxFloat64}
	for _, inv := range invoices {
		tier := ClassifyAmount(amount, inv.RemainingAmount, inv.TotalAmount, m.cfg)
		diff := math.Abs(amount - inv.RemainingAmount)

		if tier.Rank() > best.Tier.Rank() {
			best = &Match{Invoice: inv, Tier: tier, Diff: diff}
		} else if tier.Rank() == best.Tier.Rank() && diff < best.Diff && tier == models.MatchMismatch {
			// For a mismatch keep the closest candidate as the diagnostic.
			best = &Match{Invoice: inv, Tier: tier, Diff: diff}
		}
	}

	m.logger.Debug("Amount matched to invoice",
		zap.Int64("invoice_id", best.Invoice.ID),
		zap.String("tier", string(best.Tier)),
		zap.Float64("amount", amount),
		zap.Float64("remaining", best.Invoice.RemainingAmount))

	return best, nil
}

// ClassifyAmount grades how well an amount fits an invoice:
//
//	exact    within ExactTolerance of the remaining amount
//	close    within max(remaining*ClosePct, CloseAbs) of the remaining
//	         amount, or within ExactTolerance of the invoice total
//	partial  at least half of the remaining amount but below it
//	mismatch everything else
func ClassifyAmount(amount, remaining, total float64, cfg config.VerificationConfig) models.MatchTier {
	if amount <= 0 || remaining <= 0 {
		return models.MatchMismatch
	}

	diff := math.Abs(amount - remaining)
	if diff <= cfg.ExactTolerance {
		return models.MatchExact
	}

	closeBand := math.Max(remaining*cfg.ClosePct, cfg.CloseAbs)
	if diff <= closeBand || math.Abs(amount-total) <= cfg.ExactTolerance {
		return models.MatchClose
	}

	// Partial means an underpayment. An overpayment past the close band is a
	// mismatch, not a partial settlement.
	if amount >= remaining*0.5 && amount < remaining {
		return models.MatchPartial
	}

	return models.MatchMismatch
}
