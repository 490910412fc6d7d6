package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
)

// WebhookNotifier posts alerts as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *logrus.Logger
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(url string, timeout time.Duration, logger *logrus.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Name identifies the channel in logs.
func (n *WebhookNotifier) Name() string { return "webhook" }

// Send posts the alert. Any non-2xx response is an error.
func (n *WebhookNotifier) Send(ctx context.Context, alert alerting.Alert) error {
	if n.url == "" {
		return fmt.Errorf("webhook notifier is not configured")
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert for webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"url":      n.url,
	}).Debug("Alert webhook delivered")
	return nil
}
