package repository

import (
	"database/sql"
	"fmt"

	"github.com/wisnuaji/payproof/internal/models"
	"github.com/wisnuaji/payproof/pkg/database"
)

// InvoiceRepository handles invoice data access
type InvoiceRepository struct {
	db *database.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, customer_id, invoice_number, total_amount, paid_amount,
	remaining_amount, status, due_date, billing_period, created_at, updated_at`

func scanInvoice(row interface{ Scan(...interface{}) error }) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(
		&inv.ID, &inv.CustomerID, &inv.InvoiceNumber, &inv.TotalAmount,
		&inv.PaidAmount, &inv.RemainingAmount, &inv.Status, &inv.DueDate,
		&inv.BillingPeriod, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetByID retrieves an invoice by its ID.
func (r *InvoiceRepository) GetByID(id int64) (*models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = ?`, invoiceColumns)
	inv, err := scanInvoice(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

// ListOpenByCustomer returns the customer's unpaid invoices ordered oldest
// due date first. This ordering is the matcher's tie-breaker.
func (r *InvoiceRepository) ListOpenByCustomer(customerID int64) ([]*models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices
		WHERE customer_id = ? AND status != 'paid' AND remaining_amount > 0
		ORDER BY due_date ASC, created_at ASC`, invoiceColumns)

	rows, err := r.db.Query(query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// GetByIDTx re-reads an invoice inside a transaction so the executor works
// against current amounts, not the snapshot the matcher saw.
func (r *InvoiceRepository) GetByIDTx(tx *sql.Tx, id int64) (*models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = ?`, invoiceColumns)
	inv, err := scanInvoice(tx.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice in tx: %w", err)
	}
	return inv, nil
}

// UpdateAmountsTx writes the invoice's new paid/remaining amounts and status.
// Returns an error when the row no longer exists, which aborts the enclosing
// transaction.
func (r *InvoiceRepository) UpdateAmountsTx(tx *sql.Tx, id int64, paidAmount, remainingAmount float64, status string) error {
	result, err := tx.Exec(`UPDATE invoices
		SET paid_amount = ?, remaining_amount = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		paidAmount, remainingAmount, status, id)
	if err != nil {
		return fmt.Errorf("failed to update invoice amounts: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check invoice update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("invoice %d not found during update", id)
	}
	return nil
}

// CountOtherUnpaidTx counts the customer's unpaid invoices excluding the one
// being settled. Zero means the isolation flag can be lifted.
func (r *InvoiceRepository) CountOtherUnpaidTx(tx *sql.Tx, customerID, excludeInvoiceID int64) (int, error) {
	var count int
	err := tx.QueryRow(`SELECT COUNT(*) FROM invoices
		WHERE customer_id = ? AND id != ? AND status != 'paid' AND remaining_amount > 0`,
		customerID, excludeInvoiceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unpaid invoices: %w", err)
	}
	return count, nil
}

// Create inserts a new invoice. Used by tests and seeding, not the pipeline.
func (r *InvoiceRepository) Create(inv *models.Invoice) error {
	result, err := r.db.Exec(`INSERT INTO invoices
		(customer_id, invoice_number, total_amount, paid_amount, remaining_amount, status, due_date, billing_period)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.CustomerID, inv.InvoiceNumber, inv.TotalAmount, inv.PaidAmount,
		inv.RemainingAmount, inv.Status, inv.DueDate, inv.BillingPeriod)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	inv.ID, err = result.LastInsertId()
	return err
}
