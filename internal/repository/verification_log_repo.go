package repository

import (
	"encoding/json"
	"fmt"

	"github.com/wisnuaji/payproof/internal/models"
	"github.com/wisnuaji/payproof/pkg/database"
)

// VerificationLogRepository persists the append-only audit log of pipeline
// runs and aggregates it for reporting.
type VerificationLogRepository struct {
	db *database.DB
}

// NewVerificationLogRepository creates a new verification log repository
func NewVerificationLogRepository(db *database.DB) *VerificationLogRepository {
	return &VerificationLogRepository{db: db}
}

// Append writes one audit row. Rows are never updated or deleted.
func (r *VerificationLogRepository) Append(attempt *models.VerificationAttempt) error {
	if attempt.Metadata == "" {
		attempt.Metadata = "{}"
	}
	result, err := r.db.Exec(`INSERT INTO verification_attempts (customer_id, status, reason, metadata)
		VALUES (?, ?, ?, ?)`,
		attempt.CustomerID, attempt.Status, attempt.Reason, attempt.Metadata)
	if err != nil {
		return fmt.Errorf("failed to append verification attempt: %w", err)
	}
	attempt.ID, err = result.LastInsertId()
	return err
}

// Stats aggregates the audit log. Average confidence is computed over rows
// whose metadata carries a numeric confidence field.
func (r *VerificationLogRepository) Stats() (*models.VerificationStats, error) {
	stats := &models.VerificationStats{}

	err := r.db.QueryRow(`SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'manual_review' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(CASE WHEN json_valid(metadata) THEN json_extract(metadata, '$.confidence') END), 0)
		FROM verification_attempts`).Scan(
		&stats.Total, &stats.AutoApproved, &stats.ManualReview, &stats.Rejected, &stats.AvgConfidence)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate verification stats: %w", err)
	}

	return stats, nil
}

// MarshalMetadata encodes attempt metadata, falling back to an empty object
// so a logging failure never blocks the pipeline result.
func MarshalMetadata(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
