package services

import (
	"context"
	"log/slog"

	"szamlazo/internal/amqp"
	"szamlazo/internal/core"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishInvoiceEvent(ctx context.Context, msg *amqp.InvoiceEventMessage) error
}

// publishInvoiceEvent never fails the caller; the change is already committed.
func publishInvoiceEvent(ctx context.Context, p EventPublisher, action string, inv core.Invoice) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP not configured, skipping invoice event",
			"invoice_id", inv.ID, "action", action)
		return
	}
	if err := p.PublishInvoiceEvent(ctx, amqp.NewInvoiceEventMessage(action, inv)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish invoice event",
			"invoice_id", inv.ID,
			"action", action,
			"error", err)
	}
}
