package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jerseyprint/internal/domain"
)

// ErrNoRecipients signals that there is nobody to notify.
var ErrNoRecipients = errors.New("no notification recipients")

// WebhookPayload is the JSON accepted by the mail-sending webhook.
type WebhookPayload struct {
	Recipients  []string `json:"recipients"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
}

// Webhook posts order e-mails to an HTTP endpoint.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{URL: strings.TrimSpace(url), Client: &http.Client{Timeout: timeout}}
}

// Send notifies recipients about order. Blank addresses are dropped.
func (w *Webhook) Send(ctx context.Context, order domain.Order, recipients []string) error {
	if w == nil || w.URL == "" {
		return fmt.Errorf("notification webhook: %w", domain.ErrNotConfigured)
	}
	to := cleanRecipients(recipients)
	if len(to) == 0 {
		return ErrNoRecipients
	}

	body, err := render(webhookBody, order)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(WebhookPayload{
		Recipients:  to,
		Subject:     "New Custom Order - " + order.ID,
		Body:        body,
		Attachments: []string{},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded %s", resp.Status)
	}
	return nil
}

func cleanRecipients(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, r := range in {
		r = strings.TrimSpace(r)
		if r == "" || seen[strings.ToLower(r)] {
			continue
		}
		seen[strings.ToLower(r)] = true
		out = append(out, r)
	}
	return out
}
