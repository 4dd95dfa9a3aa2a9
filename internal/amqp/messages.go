package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"szamlazo/internal/core"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// InvoiceEventMessage describes a committed invoice change. It carries a
// snapshot of the invoice so consumers never have to read the database.
type InvoiceEventMessage struct {
	InvoiceID     int64           `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CompanyName   string          `json:"company_name"`
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	IssueDate     string          `json:"issue_date"`
	Action        string          `json:"action"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewInvoiceEventMessage snapshots inv for the given action
func NewInvoiceEventMessage(action string, inv core.Invoice) *InvoiceEventMessage {
	return &InvoiceEventMessage{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CompanyName:   inv.CompanyName,
		Currency:      inv.Currency,
		Total:         inv.Total(),
		IssueDate:     inv.IssueDate.String(),
		Action:        action,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *InvoiceEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvoiceEventMessageFromJSON decodes and validates a message body.
func InvoiceEventMessageFromJSON(data []byte) (*InvoiceEventMessage, error) {
	var msg InvoiceEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	if msg.InvoiceID <= 0 {
		return nil, fmt.Errorf("invalid invoice id %d", msg.InvoiceID)
	}
	return &msg, nil
}
