// Package journal defines where invoice events end up once the worker has
// consumed them.
package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidEntry = errors.New("invalid journal entry")

// Entry is one journal line per invoice event.
type Entry struct {
	Timestamp     time.Time
	Action        string
	InvoiceID     int64
	InvoiceNumber string
	CompanyName   string
	IssueDate     string
	Total         decimal.Decimal
	Currency      string
}

func (e Entry) Validate() error {
	if e.InvoiceID <= 0 || strings.TrimSpace(e.Action) == "" {
		return ErrInvalidEntry
	}
	return nil
}

// Ports for outbound adapters.
type (
	Writer interface {
		// AppendEntry stores e and returns a sink-specific reference to it.
		AppendEntry(ctx context.Context, e Entry) (ref string, err error)
	}
)
