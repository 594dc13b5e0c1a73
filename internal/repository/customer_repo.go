package repository

import (
	"database/sql"
	"fmt"

	"github.com/wisnuaji/payproof/internal/models"
	"github.com/wisnuaji/payproof/pkg/database"
)

// CustomerRepository handles customer data access
type CustomerRepository struct {
	db *database.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *database.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepository) GetByID(id int64) (*models.Customer, error) {
	var c models.Customer
	err := r.db.QueryRow(`SELECT id, customer_code, name, phone, billing_mode,
		account_balance, is_isolated, created_at
		FROM customers WHERE id = ?`, id).Scan(
		&c.ID, &c.CustomerCode, &c.Name, &c.Phone, &c.BillingMode,
		&c.AccountBalance, &c.IsIsolated, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

// CreditBalanceTx adds an overpayment credit to the customer's balance and
// writes the matching ledger row in the same transaction.
func (r *CustomerRepository) CreditBalanceTx(tx *sql.Tx, customerID int64, amount float64, description string, referenceID int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %.2f", amount)
	}

	if _, err := tx.Exec(`UPDATE customers SET account_balance = account_balance + ? WHERE id = ?`,
		amount, customerID); err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO balance_ledger (customer_id, amount, type, description, reference_id)
		VALUES (?, ?, ?, ?, ?)`,
		customerID, amount, models.BalanceEntryCredit, description, referenceID); err != nil {
		return fmt.Errorf("failed to write balance ledger: %w", err)
	}
	return nil
}

// SetIsolatedTx flips the customer's isolation flag.
func (r *CustomerRepository) SetIsolatedTx(tx *sql.Tx, customerID int64, isolated bool) error {
	if _, err := tx.Exec(`UPDATE customers SET is_isolated = ? WHERE id = ?`, isolated, customerID); err != nil {
		return fmt.Errorf("failed to update isolation flag: %w", err)
	}
	return nil
}

// Create inserts a new customer. Used by tests and seeding, not the pipeline.
func (r *CustomerRepository) Create(c *models.Customer) error {
	result, err := r.db.Exec(`INSERT INTO customers (customer_code, name, phone, billing_mode, account_balance, is_isolated)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.CustomerCode, c.Name, c.Phone, c.BillingMode, c.AccountBalance, c.IsIsolated)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	c.ID, err = result.LastInsertId()
	return err
}

// ListBalanceEntries returns the customer's balance ledger, newest first.
func (r *CustomerRepository) ListBalanceEntries(customerID int64) ([]*models.BalanceEntry, error) {
	rows, err := r.db.Query(`SELECT id, customer_id, amount, type, description, reference_id, created_at
		FROM balance_ledger WHERE customer_id = ? ORDER BY created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balance ledger: %w", err)
	}
	defer rows.Close()

	var entries []*models.BalanceEntry
	for rows.Next() {
		var e models.BalanceEntry
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.Amount, &e.Type, &e.Description, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
