package repository

import (
	"fmt"

	"github.com/wisnuaji/payproof/pkg/database"
)

// NotificationRepository queues outbound customer notifications. Delivery is
// handled by a separate sender process draining the queue.
type NotificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Enqueue inserts a queued notification. Variables is a JSON object of
// template substitutions.
func (r *NotificationRepository) Enqueue(customerID, invoiceID int64, notificationType, channel, variables, priority string) error {
	if variables == "" {
		variables = "{}"
	}
	if priority == "" {
		priority = "normal"
	}
	_, err := r.db.Exec(`INSERT INTO notifications
		(customer_id, invoice_id, notification_type, channel, variables, priority, status)
		VALUES (?, ?, ?, ?, ?, ?, 'queued')`,
		customerID, invoiceID, notificationType, channel, variables, priority)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}
