package notify

import (
	"context"
	"fmt"

	"jerseyprint/internal/domain"
)

// MailQueue adds mail documents that a separate mail service delivers.
type MailQueue struct {
	Store      domain.DocumentStore
	Recipients []string
}

// Enqueue writes {to, message{subject, html}} to the mail collection.
func (q *MailQueue) Enqueue(ctx context.Context, order domain.Order) error {
	if q == nil || q.Store == nil {
		return fmt.Errorf("mail queue: %w", domain.ErrNotConfigured)
	}
	to := cleanRecipients(q.Recipients)
	if len(to) == 0 {
		return ErrNoRecipients
	}
	html, err := render(mailBody, order)
	if err != nil {
		return err
	}
	_, err = q.Store.Create(ctx, domain.CollectionMail, "", map[string]any{
		"to": to,
		"message": map[string]any{
			"subject": "[Custom Orders] New order #" + order.ID,
			"html":    html,
		},
	})
	if err != nil {
		return fmt.Errorf("enqueue mail for order %s: %w", order.ID, err)
	}
	return nil
}
