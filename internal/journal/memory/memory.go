package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"szamlazo/internal/journal"
)

// DefaultCapacity bounds the entries a Store retains.
const DefaultCapacity = 1000

// Store logs each journal entry and keeps the most recent ones in memory.
// Used by the worker when no spreadsheet is configured.
type Store struct {
	mu       sync.Mutex
	items    []journal.Entry
	seq      int
	capacity int
	logger   *slog.Logger
}

var _ journal.Writer = (*Store)(nil)

// New returns a Store retaining at most capacity entries; a non-positive
// capacity uses DefaultCapacity.
func New(logger *slog.Logger, capacity int) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{logger: logger, capacity: capacity}
}

// AppendEntry stores the entry and returns a synthetic row reference.
func (s *Store) AppendEntry(ctx context.Context, e journal.Entry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.seq++
	ref := fmt.Sprintf("mem:%d", s.seq)
	if len(s.items) == s.capacity {
		copy(s.items, s.items[1:])
		s.items[len(s.items)-1] = e
	} else {
		s.items = append(s.items, e)
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Journal entry recorded",
		"ref", ref,
		"action", e.Action,
		"invoice_id", e.InvoiceID,
		"invoice_number", e.InvoiceNumber,
		"total", e.Total.String(),
		"currency", e.Currency)
	return ref, nil
}

// Entries returns a copy of the retained entries, oldest first.
func (s *Store) Entries() []journal.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]journal.Entry(nil), s.items...)
}
