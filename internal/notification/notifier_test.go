package notification

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/models"
	"github.com/wisnuaji/payproof/internal/repository"
	"github.com/wisnuaji/payproof/pkg/database"
)

func newTestNotifier(t *testing.T) (*QueueNotifier, *database.DB) {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	return NewQueueNotifier(repository.NewNotificationRepository(db), logger), db
}

func queuedNotification(t *testing.T, db *database.DB) (notifType, variables string) {
	t.Helper()
	err := db.QueryRow(`SELECT notification_type, variables FROM notifications ORDER BY id DESC LIMIT 1`).
		Scan(&notifType, &variables)
	require.NoError(t, err)
	return notifType, variables
}

func TestPaymentAccepted_SettledUsesLunasTemplate(t *testing.T) {
	n, db := newTestNotifier(t)

	customer := &models.Customer{ID: 1, Name: "Budi Santoso"}
	invoice := &models.Invoice{ID: 2, InvoiceNumber: "INV-001", Status: models.InvoiceStatusPaid}
	payment := &models.Payment{ID: 3, Amount: 150000, ReferenceNumber: "TRX-001"}

	require.NoError(t, n.PaymentAccepted(context.Background(), customer, invoice, payment, true))

	notifType, variables := queuedNotification(t, db)
	assert.Equal(t, TypePaymentSettled, notifType)
	assert.Contains(t, variables, "LUNAS")
	assert.Contains(t, variables, "INV-001")
}

func TestPaymentAccepted_PartialUsesSebagianTemplate(t *testing.T) {
	n, db := newTestNotifier(t)

	customer := &models.Customer{ID: 1, Name: "Budi Santoso"}
	invoice := &models.Invoice{ID: 2, InvoiceNumber: "INV-001", RemainingAmount: 70000, Status: models.InvoiceStatusPartial}
	payment := &models.Payment{ID: 3, Amount: 80000, ReferenceNumber: "TRX-001"}

	require.NoError(t, n.PaymentAccepted(context.Background(), customer, invoice, payment, false))

	notifType, variables := queuedNotification(t, db)
	assert.Equal(t, TypePaymentAccepted, notifType)
	assert.Contains(t, variables, "SEBAGIAN")
}
