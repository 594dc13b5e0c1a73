package isolation

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/repository"
)

// WebhookIsolator re-enables a customer's service by calling the network
// controller's webhook. With no URL configured it degrades to the database
// flag alone, which the executor already clears.
type WebhookIsolator struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookIsolator creates a new webhook-backed isolator
func NewWebhookIsolator(url string, timeout time.Duration, logger *zap.Logger) *WebhookIsolator {
	return &WebhookIsolator{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Unisolate asks the network controller to restore service.
func (i *WebhookIsolator) Unisolate(ctx context.Context, customerID int64) error {
	if i.url == "" {
		i.logger.Debug("No isolation webhook configured, skipping",
			zap.Int64("customer_id", customerID))
		return nil
	}

	body := repository.MarshalMetadata(map[string]interface{}{
		"customer_id": customerID,
		"action":      "unisolate",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.url, bytes.NewBufferString(body))
	if err != nil {
		return fmt.Errorf("failed to build unisolate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("unisolate webhook failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unisolate webhook returned status %d", resp.StatusCode)
	}

	i.logger.Info("Service re-enabled via webhook", zap.Int64("customer_id", customerID))
	return nil
}
