package repository

import (
	"database/sql"
	"fmt"

	"github.com/wisnuaji/payproof/internal/models"
	"github.com/wisnuaji/payproof/pkg/database"
)

// SettingsRepository reads the stored auto-approval policy.
type SettingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetActivePolicy returns the active approval policy, or the conservative
// default when no row exists.
func (r *SettingsRepository) GetActivePolicy() (models.ApprovalPolicy, error) {
	var p models.ApprovalPolicy
	err := r.db.QueryRow(`SELECT auto_approve_enabled, min_confidence, risk_threshold,
		max_age_hours, allow_amount_mismatch
		FROM ai_settings WHERE is_active = 1 ORDER BY updated_at DESC LIMIT 1`).Scan(
		&p.AutoApproveEnabled, &p.MinConfidence, &p.RiskThreshold, &p.MaxAgeHours, &p.AllowAmountMismatch)
	if err == sql.ErrNoRows {
		return models.DefaultApprovalPolicy(), nil
	}
	if err != nil {
		return models.ApprovalPolicy{}, fmt.Errorf("failed to load approval policy: %w", err)
	}
	return p, nil
}

// SavePolicy deactivates any existing policy rows and inserts the new one as
// active.
func (r *SettingsRepository) SavePolicy(tx *sql.Tx, p models.ApprovalPolicy) error {
	if _, err := tx.Exec(`UPDATE ai_settings SET is_active = 0 WHERE is_active = 1`); err != nil {
		return fmt.Errorf("failed to deactivate old policy: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO ai_settings
		(auto_approve_enabled, min_confidence, risk_threshold, max_age_hours, allow_amount_mismatch, is_active)
		VALUES (?, ?, ?, ?, ?, 1)`,
		p.AutoApproveEnabled, p.MinConfidence, string(p.RiskThreshold), p.MaxAgeHours, p.AllowAmountMismatch); err != nil {
		return fmt.Errorf("failed to save approval policy: %w", err)
	}
	return nil
}
