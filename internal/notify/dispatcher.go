// Package notify tells store owners about new orders. Every delivery runs in
// the background; its outcome is logged and counted, never returned to the
// order submission.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"jerseyprint/internal/domain"
	"jerseyprint/internal/infra/logging"
	"jerseyprint/internal/infra/metrics"
)

const (
	ChannelMail    = "mail"
	ChannelWebhook = "webhook"
)

// Dispatcher runs fire-and-forget tasks with a timeout each.
type Dispatcher struct {
	timeout time.Duration
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{timeout: timeout, metrics: m}
}

// Go runs fn in its own goroutine, detached from any request context.
func (d *Dispatcher) Go(channel string, fields []any, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		err := fn(ctx)
		kv := append([]any{"channel", channel}, fields...)
		switch {
		case err == nil:
			logging.Info("Notification sent", kv...)
		case errors.Is(err, ErrNoRecipients), errors.Is(err, domain.ErrNotConfigured):
			logging.Warn("Notification skipped", append(kv, "reason", err.Error())...)
			return
		default:
			logging.Error("Notification failed", append(kv, "error", err)...)
		}
		d.metrics.ObserveNotification(channel, err)
	}()
}

// Wait blocks until all dispatched tasks finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// StoreDirectory lists the store e-mail addresses.
type StoreDirectory interface {
	StoreEmails(ctx context.Context) ([]string, error)
}

// Notifier fans an order out to the mail queue and the webhook.
type Notifier struct {
	Dispatcher *Dispatcher
	Mail       *MailQueue
	Webhook    *Webhook
	Stores     StoreDirectory
}

// OrderPlaced schedules both notifications and returns immediately.
func (n *Notifier) OrderPlaced(order domain.Order) {
	if n == nil || n.Dispatcher == nil {
		return
	}
	fields := []any{"order_id", order.ID}

	n.Dispatcher.Go(ChannelMail, fields, func(ctx context.Context) error {
		return n.Mail.Enqueue(ctx, order)
	})
	n.Dispatcher.Go(ChannelWebhook, fields, func(ctx context.Context) error {
		if n.Webhook == nil || n.Webhook.URL == "" || n.Stores == nil {
			return n.Webhook.Send(ctx, order, nil)
		}
		recipients, err := n.Stores.StoreEmails(ctx)
		if err != nil {
			return err
		}
		return n.Webhook.Send(ctx, order, recipients)
	})
}
