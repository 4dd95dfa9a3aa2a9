package core

import "testing"

func invoiceWith(y, m, d int, currency string, amount string) Invoice {
	return Invoice{
		IssueDate: NewDate(y, m, d),
		Currency:  currency,
		Items:     []InvoiceItem{{Description: "x", Quantity: dec("1"), UnitPrice: dec(amount)}},
	}
}

func TestBuildStatistics(t *testing.T) {
	invoices := []Invoice{
		invoiceWith(2025, 3, 10, "HUF", "100"),
		invoiceWith(2025, 1, 5, "HUF", "200.50"),
		invoiceWith(2025, 1, 20, "EUR", "10"),
		invoiceWith(2024, 12, 31, "HUF", "0.25"),
	}
	st := BuildStatistics(invoices, "HUF")

	if st.TotalInvoices != 4 {
		t.Fatalf("expected 4 invoices, got %d", st.TotalInvoices)
	}
	if !st.TotalAmount.Equal(dec("300.75")) {
		t.Fatalf("expected HUF total 300.75, got %s", st.TotalAmount)
	}

	want := []struct {
		month  string
		count  int
		amount string
	}{
		{"2024-12", 1, "0.25"},
		{"2025-01", 2, "210.50"},
		{"2025-03", 1, "100"},
	}
	if len(st.Monthly) != len(want) {
		t.Fatalf("expected %d months, got %d", len(want), len(st.Monthly))
	}
	for i, w := range want {
		got := st.Monthly[i]
		if got.Month != w.month || got.Count != w.count || !got.Amount.Equal(dec(w.amount)) {
			t.Fatalf("month %d: expected %+v, got %+v", i, w, got)
		}
	}
}

func TestBuildStatisticsEmpty(t *testing.T) {
	st := BuildStatistics(nil, "HUF")
	if st.TotalInvoices != 0 || !st.TotalAmount.IsZero() || len(st.Monthly) != 0 {
		t.Fatalf("unexpected stats for empty input: %+v", st)
	}
}
