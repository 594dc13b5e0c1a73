package models

import "time"

// Payment method constants
const (
	PaymentMethodTransfer = "transfer"
	PaymentMethodCash     = "cash"
	PaymentMethodBalance  = "balance"
)

// Payment represents an accepted payment against an invoice. Payments are
// created exactly once and never updated; corrections are new compensating
// payments. The reference number is the anti-duplication key and is unique
// across all accepted payments.
type Payment struct {
	ID              int64     `json:"id"`
	InvoiceID       int64     `json:"invoice_id"`
	Amount          float64   `json:"amount"`
	Method          string    `json:"method"`
	ReferenceNumber string    `json:"reference_number"`
	ProofHash       string    `json:"proof_hash,omitempty"`
	PaymentDate     time.Time `json:"payment_date"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}

// BalanceEntry is an append-only ledger row recording a credit or debit
// against a customer's account balance.
type BalanceEntry struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"` // credit or debit
	Description string    `json:"description"`
	ReferenceID int64     `json:"reference_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Balance entry types
const (
	BalanceEntryCredit = "credit"
	BalanceEntryDebit  = "debit"
)
