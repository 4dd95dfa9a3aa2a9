package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when an invoice is saved without a currency.
const DefaultCurrency = "HUF"

type (
	Company struct {
		ID            int64
		Name          string
		Address       string
		TaxNumber     string
		BankAccount   string
		ContactPerson string
		Email         string
		Phone         string
	}

	InvoiceItem struct {
		ID          int64
		InvoiceID   int64
		Description string
		Quantity    decimal.Decimal
		UnitPrice   decimal.Decimal
	}

	Invoice struct {
		ID            int64
		CompanyID     int64
		CompanyName   string // read-only, joined from company
		InvoiceNumber string
		IssueDate     Date
		DueDate       Date
		Currency      string
		Note          string
		Items         []InvoiceItem
	}

	// OwnerCompany is the issuing business printed as PDF letterhead.
	OwnerCompany struct {
		Name        string
		Address     string
		TaxNumber   string
		BankAccount string
		Email       string
		Phone       string
	}
)

var (
	ErrEmptyName          = errors.New("name is required")
	ErrEmptyAddress       = errors.New("address is required")
	ErrEmptyTaxNumber     = errors.New("tax number is required")
	ErrMissingCompany     = errors.New("company is required")
	ErrEmptyInvoiceNumber = errors.New("invoice number is required")
	ErrInvalidIssueDate   = errors.New("invalid issue date")
	ErrInvalidDueDate     = errors.New("invalid due date")
	ErrNoItems            = errors.New("at least one line item with a description is required")
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrInvalidUnitPrice   = errors.New("unit price cannot be negative")

	ErrNotFound               = errors.New("not found")
	ErrCompanyNotFound        = errors.New("company not found")
	ErrDuplicateInvoiceNumber = errors.New("invoice number already exists")
	ErrDuplicateTaxNumber     = errors.New("tax number already exists")
)

// Total returns quantity × unit price.
func (it InvoiceItem) Total() decimal.Decimal {
	return it.Quantity.Mul(it.UnitPrice)
}

func (it InvoiceItem) Validate() error {
	if strings.TrimSpace(it.Description) == "" {
		return ErrNoItems
	}
	if !it.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if it.UnitPrice.IsNegative() {
		return ErrInvalidUnitPrice
	}
	return nil
}

// Total is always derived from the current items.
func (inv Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range inv.Items {
		total = total.Add(it.Total())
	}
	return total
}

func (inv Invoice) Validate() error {
	if inv.CompanyID <= 0 {
		return ErrMissingCompany
	}
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		return ErrEmptyInvoiceNumber
	}
	if inv.IssueDate.IsZero() {
		return ErrInvalidIssueDate
	}
	if inv.DueDate.IsZero() {
		return ErrInvalidDueDate
	}
	if len(inv.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range inv.Items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c Company) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.Address) == "" {
		return ErrEmptyAddress
	}
	if strings.TrimSpace(c.TaxNumber) == "" {
		return ErrEmptyTaxNumber
	}
	return nil
}

func (o OwnerCompany) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// IsEmpty reports whether no owner profile has been saved yet.
func (o OwnerCompany) IsEmpty() bool {
	return o == OwnerCompany{}
}
