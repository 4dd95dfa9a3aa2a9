package worker

import (
	"context"
	"fmt"
	"log/slog"

	"szamlazo/internal/amqp"
	"szamlazo/internal/journal"
)

// JournalWorker turns invoice events into journal entries.
type JournalWorker struct {
	journal journal.Writer
}

func NewJournalWorker(w journal.Writer) *JournalWorker {
	return &JournalWorker{journal: w}
}

// HandleInvoiceEvent appends one journal entry for msg. A returned error makes
// the consumer requeue the message.
func (w *JournalWorker) HandleInvoiceEvent(ctx context.Context, msg *amqp.InvoiceEventMessage) error {
	slog.InfoContext(ctx, "Processing invoice event",
		"invoice_id", msg.InvoiceID,
		"invoice_number", msg.InvoiceNumber,
		"action", msg.Action)

	entry := journal.Entry{
		Timestamp:     msg.Timestamp,
		Action:        msg.Action,
		InvoiceID:     msg.InvoiceID,
		InvoiceNumber: msg.InvoiceNumber,
		CompanyName:   msg.CompanyName,
		IssueDate:     msg.IssueDate,
		Total:         msg.Total,
		Currency:      msg.Currency,
	}

	ref, err := w.journal.AppendEntry(ctx, entry)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to append journal entry",
			"invoice_id", msg.InvoiceID,
			"action", msg.Action,
			"error", err)
		return fmt.Errorf("append journal entry: %w", err)
	}

	slog.InfoContext(ctx, "Journal entry appended",
		"invoice_id", msg.InvoiceID,
		"action", msg.Action,
		"ref", ref)
	return nil
}
