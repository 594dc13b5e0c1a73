package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/models"
	"github.com/wisnuaji/payproof/internal/repository"
)

// Notification types
const (
	TypePaymentAccepted = "payment_accepted"
	TypePaymentSettled  = "payment_settled"
)

// QueueNotifier queues customer notifications into the database for a
// separate sender process to deliver. Queueing failures are reported to the
// caller but never affect the payment that triggered them.
type QueueNotifier struct {
	repo   *repository.NotificationRepository
	logger *zap.Logger
}

// NewQueueNotifier creates a new queue-backed notifier
func NewQueueNotifier(repo *repository.NotificationRepository, logger *zap.Logger) *QueueNotifier {
	return &QueueNotifier{repo: repo, logger: logger}
}

// PaymentAccepted queues a payment confirmation. Settled invoices get the
// LUNAS template, partial payments the SEBAGIAN one.
func (n *QueueNotifier) PaymentAccepted(ctx context.Context, customer *models.Customer, invoice *models.Invoice, payment *models.Payment, settled bool) error {
	notifType := TypePaymentAccepted
	statusLabel := "SEBAGIAN"
	if settled {
		notifType = TypePaymentSettled
		statusLabel = "LUNAS"
	}

	variables := repository.MarshalMetadata(map[string]interface{}{
		"customer_name":  customer.Name,
		"invoice_number": invoice.InvoiceNumber,
		"amount":         fmt.Sprintf("Rp %.0f", payment.Amount),
		"remaining":      fmt.Sprintf("Rp %.0f", invoice.RemainingAmount),
		"status":         statusLabel,
		"reference":      payment.ReferenceNumber,
	})

	if err := n.repo.Enqueue(customer.ID, invoice.ID, notifType, "whatsapp", variables, "normal"); err != nil {
		return err
	}

	n.logger.Debug("Payment notification queued",
		zap.Int64("customer_id", customer.ID),
		zap.String("type", notifType))
	return nil
}
