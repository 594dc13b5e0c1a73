package models

import "time"

// Billing mode constants
const (
	BillingModePrepaid  = "prepaid"
	BillingModePostpaid = "postpaid"
)

// Customer represents a billed customer. AccountBalance holds overpayment
// credit; IsIsolated marks service suspension that is lifted only when the
// customer has no outstanding invoice.
type Customer struct {
	ID             int64     `json:"id"`
	CustomerCode   string    `json:"customer_code"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	BillingMode    string    `json:"billing_mode"`
	AccountBalance float64   `json:"account_balance"`
	IsIsolated     bool      `json:"is_isolated"`
	CreatedAt      time.Time `json:"created_at"`
}
