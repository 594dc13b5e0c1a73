package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/wisnuaji/payproof/internal/models"
	"github.com/wisnuaji/payproof/pkg/database"
)

// ErrDuplicateReference is returned when a payment's reference number has
// already been accepted. The unique constraint on payments.reference_number
// is the authoritative guard; this sentinel lets callers treat the race as a
// duplicate instead of a storage failure.
var ErrDuplicateReference = errors.New("payment reference number already used")

// PaymentRepository handles payment data access
type PaymentRepository struct {
	db *database.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// InsertTx inserts an accepted payment inside the executor's transaction.
// A reference-number collision maps to ErrDuplicateReference.
func (r *PaymentRepository) InsertTx(tx *sql.Tx, p *models.Payment) error {
	result, err := tx.Exec(`INSERT INTO payments
		(invoice_id, amount, payment_method, reference_number, proof_hash, payment_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.InvoiceID, p.Amount, p.Method, p.ReferenceNumber, p.ProofHash, p.PaymentDate, p.Notes)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	p.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read payment id: %w", err)
	}
	return nil
}

// ReferenceExists reports whether a reference number was already accepted.
// Advisory pre-check only; InsertTx remains the authoritative guard.
func (r *PaymentRepository) ReferenceExists(ref string) (bool, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM payments WHERE reference_number = ?`, ref).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check reference number: %w", err)
	}
	return count > 0, nil
}

// ProofHashExists reports whether the exact proof image was submitted before.
func (r *PaymentRepository) ProofHashExists(hash string) (bool, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM payments WHERE proof_hash = ? AND proof_hash != ''`, hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check proof hash: %w", err)
	}
	return count > 0, nil
}

// GetByInvoice lists payments recorded against an invoice, oldest first.
func (r *PaymentRepository) GetByInvoice(invoiceID int64) ([]*models.Payment, error) {
	rows, err := r.db.Query(`SELECT id, invoice_id, amount, payment_method, reference_number,
		proof_hash, payment_date, notes, created_at
		FROM payments WHERE invoice_id = ? ORDER BY created_at ASC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.ReferenceNumber,
			&p.ProofHash, &p.PaymentDate, &p.Notes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
