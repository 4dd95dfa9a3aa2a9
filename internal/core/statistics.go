package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MonthStat aggregates the invoices issued in one calendar month.
type MonthStat struct {
	Month  string // YYYY-MM
	Count  int
	Amount decimal.Decimal
}

type Statistics struct {
	TotalInvoices int
	// TotalAmount only sums invoices issued in Currency.
	TotalAmount decimal.Decimal
	Currency    string
	Monthly     []MonthStat
}

// BuildStatistics aggregates invoices. Monthly amounts add up every invoice
// regardless of its currency.
func BuildStatistics(invoices []Invoice, currency string) Statistics {
	st := Statistics{
		TotalInvoices: len(invoices),
		TotalAmount:   decimal.Zero,
		Currency:      currency,
	}
	byMonth := make(map[string]*MonthStat)
	for _, inv := range invoices {
		total := inv.Total()
		if inv.Currency == currency {
			st.TotalAmount = st.TotalAmount.Add(total)
		}
		key := inv.IssueDate.YearMonth()
		ms, ok := byMonth[key]
		if !ok {
			ms = &MonthStat{Month: key, Amount: decimal.Zero}
			byMonth[key] = ms
		}
		ms.Count++
		ms.Amount = ms.Amount.Add(total)
	}
	st.Monthly = make([]MonthStat, 0, len(byMonth))
	for _, ms := range byMonth {
		st.Monthly = append(st.Monthly, *ms)
	}
	sort.Slice(st.Monthly, func(i, j int) bool { return st.Monthly[i].Month < st.Monthly[j].Month })
	return st
}
