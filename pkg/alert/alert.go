package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Alerter receives captured failures for observability. Implementations must
// never propagate their own failures back into control flow.
type Alerter interface {
	Capture(ctx context.Context, message string, err error)
}

// WebhookAlerter posts captured failures to an ops webhook. Delivery is
// best-effort: failures are logged at Warn, never propagated, never retried.
type WebhookAlerter struct {
	webhookURL string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookAlerter creates an alerter posting to the given webhook URL
func NewWebhookAlerter(webhookURL string, logger *zap.Logger) *WebhookAlerter {
	return &WebhookAlerter{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Capture sends a single alert describing the failure
func (a *WebhookAlerter) Capture(ctx context.Context, message string, err error) {
	a.logger.Warn("Captured failure", zap.String("message", message), zap.Error(err))

	payload := map[string]string{
		"text": fmt.Sprintf("crewcall: %s: %v", message, err),
	}
	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		a.logger.Warn("Failed to marshal alert payload", zap.Error(marshalErr))
		return
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(body))
	if reqErr != nil {
		a.logger.Warn("Failed to create alert request", zap.Error(reqErr))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, postErr := a.httpClient.Do(req)
	if postErr != nil {
		a.logger.Warn("Failed to deliver alert", zap.Error(postErr))
		return
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.logger.Warn("Alert webhook returned non-2xx status", zap.Int("status", resp.StatusCode))
	}
}

// NopAlerter discards all captures. Used in tests and when no webhook is
// configured.
type NopAlerter struct{}

func (NopAlerter) Capture(ctx context.Context, message string, err error) {}
