package verify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/config"
	"github.com/wisnuaji/payproof/internal/models"
	"github.com/wisnuaji/payproof/internal/repository"
	"github.com/wisnuaji/payproof/pkg/database"
)

// Executor records an approved payment. All writes happen in one transaction;
// a failure at any point leaves no partial state. Isolation lifting with the
// external system and customer notification run after commit and are never
// rolled back.
type Executor struct {
	db        *database.DB
	invoices  *repository.InvoiceRepository
	payments  *repository.PaymentRepository
	customers *repository.CustomerRepository
	cfg       config.VerificationConfig
	isolator  Isolator
	notifier  Notifier
	logger    *zap.Logger
}

// NewExecutor creates a new executor stage
func NewExecutor(db *database.DB, invoices *repository.InvoiceRepository, payments *repository.PaymentRepository,
	customers *repository.CustomerRepository, cfg config.VerificationConfig,
	isolator Isolator, notifier Notifier, logger *zap.Logger) *Executor {
	return &Executor{
		db:        db,
		invoices:  invoices,
		payments:  payments,
		customers: customers,
		cfg:       cfg,
		isolator:  isolator,
		notifier:  notifier,
		logger:    logger,
	}
}

// Execute applies the payment to the matched invoice. The paid amount records
// the full transferred sum; overpayment beyond the invoice total is credited
// to the customer's account balance unless they are postpaid, where it is
// absorbed into the next billing cycle. Isolation is lifted only when the
// settled invoice was the customer's last unpaid one.
func (e *Executor) Execute(ctx context.Context, customer *models.Customer, match *Match,
	extracted models.ExtractedTransferData, proofHash string) (*models.Payment, Actions, error) {

	amount := extracted.Amount
	payment := &models.Payment{
		InvoiceID:       match.Invoice.ID,
		Amount:          amount,
		Method:          models.PaymentMethodTransfer,
		ReferenceNumber: extracted.ReferenceNumber,
		ProofHash:       proofHash,
		PaymentDate:     paymentDate(extracted),
		Notes:           fmt.Sprintf("auto-verified transfer via %s", bankOrUnknown(extracted.Bank)),
	}

	var actions Actions
	var settled bool

	err := e.db.WithTransaction(func(tx *sql.Tx) error {
		inv, err := e.invoices.GetByIDTx(tx, match.Invoice.ID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("invoice %d disappeared before execution", match.Invoice.ID)
		}
		if !inv.IsOpen() {
			return fmt.Errorf("invoice %d is no longer open", inv.ID)
		}

		excess := amount - inv.RemainingAmount
		newPaid := inv.PaidAmount + amount
		newRemaining := inv.TotalAmount - newPaid
		if newRemaining < 0 {
			newRemaining = 0
		}

		status := models.InvoiceStatusPartial
		if newRemaining <= e.cfg.SettleTolerance {
			newRemaining = 0
			status = models.InvoiceStatusPaid
			settled = true
		}

		if err := e.invoices.UpdateAmountsTx(tx, inv.ID, newPaid, newRemaining, status); err != nil {
			return err
		}

		if err := e.payments.InsertTx(tx, payment); err != nil {
			return err
		}
		actions.PaymentRecorded = true

		if excess > e.cfg.SettleTolerance && customer.BillingMode != models.BillingModePostpaid {
			desc := fmt.Sprintf("overpayment on invoice %s", inv.InvoiceNumber)
			if err := e.customers.CreditBalanceTx(tx, customer.ID, excess, desc, payment.ID); err != nil {
				return err
			}
		}

		if settled && customer.IsIsolated {
			others, err := e.invoices.CountOtherUnpaidTx(tx, customer.ID, inv.ID)
			if err != nil {
				return err
			}
			if others == 0 {
				if err := e.customers.SetIsolatedTx(tx, customer.ID, false); err != nil {
					return err
				}
				actions.IsolationRemoved = true
			}
		}

		match.Invoice.PaidAmount = newPaid
		match.Invoice.RemainingAmount = newRemaining
		match.Invoice.Status = status
		return nil
	})
	if err != nil {
		return nil, Actions{}, err
	}

	// Post-commit side effects. The payment stands regardless of how these go.
	if actions.IsolationRemoved && e.isolator != nil {
		if err := e.isolator.Unisolate(ctx, customer.ID); err != nil {
			e.logger.Error("Failed to re-enable service after settlement",
				zap.Int64("customer_id", customer.ID), zap.Error(err))
		}
	}

	if e.notifier != nil {
		if err := e.notifier.PaymentAccepted(ctx, customer, match.Invoice, payment, settled); err != nil {
			e.logger.Warn("Failed to queue payment notification",
				zap.Int64("customer_id", customer.ID), zap.Error(err))
		} else {
			actions.NotificationSent = true
		}
	}

	e.logger.Info("Payment executed",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("invoice_id", match.Invoice.ID),
		zap.Float64("amount", amount),
		zap.Bool("settled", settled))

	return payment, actions, nil
}

func paymentDate(extracted models.ExtractedTransferData) time.Time {
	if t, _, ok := parseTransferTimestamp(extracted.Date, extracted.Time); ok {
		return t
	}
	return time.Now()
}

func bankOrUnknown(bank string) string {
	if bank == "" {
		return "unknown bank"
	}
	return bank
}
