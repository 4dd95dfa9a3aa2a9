package core

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
)

var (
	ErrInvalidStartDate = errors.New("invalid start date")
	ErrInvalidEndDate   = errors.New("invalid end date")
)

// InvoiceFilter narrows the invoice listing. Zero fields are not applied.
type InvoiceFilter struct {
	CompanyName string
	StartDate   Date
	EndDate     Date // inclusive
}

// NewInvoiceFilter builds a filter from raw query values. A malformed date is
// reported and its bound is left unset; the other bounds still apply.
func NewInvoiceFilter(companyName, startDate, endDate string) (InvoiceFilter, []error) {
	f := InvoiceFilter{CompanyName: strings.TrimSpace(companyName)}
	var errs []error
	if s := strings.TrimSpace(startDate); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			errs = append(errs, ErrInvalidStartDate)
		} else {
			f.StartDate = d
		}
	}
	if s := strings.TrimSpace(endDate); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			errs = append(errs, ErrInvalidEndDate)
		} else {
			f.EndDate = d
		}
	}
	return f, errs
}

// IsEmpty reports whether no criteria are set.
func (f InvoiceFilter) IsEmpty() bool {
	return f.CompanyName == "" && f.StartDate.IsZero() && f.EndDate.IsZero()
}

// EndExclusive returns the day after EndDate, used as a strict upper bound.
func (f InvoiceFilter) EndExclusive() Date {
	return f.EndDate.AddDays(1)
}

// MatchesCompany performs a case-insensitive substring match on the company
// name using Unicode case folding.
func (f InvoiceFilter) MatchesCompany(name string) bool {
	if f.CompanyName == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(name), fold.String(f.CompanyName))
}

// Matches applies every criterion to an invoice.
func (f InvoiceFilter) Matches(inv Invoice) bool {
	if !f.MatchesCompany(inv.CompanyName) {
		return false
	}
	if !f.StartDate.IsZero() && inv.IssueDate.Before(f.StartDate.Time) {
		return false
	}
	if !f.EndDate.IsZero() && !inv.IssueDate.Before(f.EndExclusive().Time) {
		return false
	}
	return true
}
