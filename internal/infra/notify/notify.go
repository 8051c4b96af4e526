// Package notify delivers the fully-signed event to the notification
// collaborator. Delivery is best-effort by contract: the commit path records
// the outcome and moves on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"firma/internal/domain"
)

// Webhook posts the event as JSON to a configured endpoint.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *Webhook) NotifyFullySigned(ctx context.Context, event domain.FullySignedEvent) error {
	payload, err := json.Marshal(map[string]any{
		"type":          "signature_request.fully_signed",
		"request_id":    event.RequestID,
		"title":         event.Title,
		"creator_email": event.CreatorEmail,
		"signed_at":     event.SignedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Log only records the event. Used when no webhook is configured.
type Log struct {
	Logger *slog.Logger
}

func (l *Log) NotifyFullySigned(_ context.Context, event domain.FullySignedEvent) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("signature request fully signed",
		"requestId", event.RequestID,
		"creatorEmail", event.CreatorEmail,
	)
	return nil
}

var (
	_ domain.Notifier = (*Webhook)(nil)
	_ domain.Notifier = (*Log)(nil)
)
