package models

import "time"

// Invoice status constants
const (
	InvoiceStatusSent    = "sent"
	InvoiceStatusPartial = "partial"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
)

// Invoice represents a billing invoice for a customer.
// Paid/remaining amounts and status are mutated only by the payment executor;
// remaining_amount is always total_amount - paid_amount, clamped at zero.
type Invoice struct {
	ID              int64     `json:"id"`
	CustomerID      int64     `json:"customer_id"`
	InvoiceNumber   string    `json:"invoice_number"`
	TotalAmount     float64   `json:"total_amount"`
	PaidAmount      float64   `json:"paid_amount"`
	RemainingAmount float64   `json:"remaining_amount"`
	Status          string    `json:"status"`
	DueDate         time.Time `json:"due_date"`
	BillingPeriod   string    `json:"billing_period"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsOpen reports whether the invoice still has an outstanding balance.
func (i *Invoice) IsOpen() bool {
	return i.Status != InvoiceStatusPaid && i.RemainingAmount > 0
}
