package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"szamlazo/internal/journal"
)

func TestEntryRow(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	row := entryRow(journal.Entry{
		Timestamp:     ts,
		Action:        "created",
		InvoiceID:     42,
		InvoiceNumber: "INV-42",
		CompanyName:   "Árvíztűrő Kft.",
		IssueDate:     "2025-03-01",
		Total:         decimal.RequireFromString("1234.5"),
		Currency:      "HUF",
	})

	want := []any{"2025-03-04 05:06:07", "created", int64(42), "INV-42", "Árvíztűrő Kft.", "2025-03-01", "1234.50", "HUF"}
	if len(row) != len(Header) {
		t.Fatalf("row has %d columns, header has %d", len(row), len(Header))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %d = %#v, want %#v", i, row[i], want[i])
		}
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, " ", "Journal", Credentials{JSON: "{}"}); err == nil {
		t.Error("expected error for missing spreadsheet id")
	}
	if _, err := New(ctx, "abc", "Journal", Credentials{}); err == nil {
		t.Error("expected error for missing credentials")
	}
	if _, err := New(ctx, "abc", "Journal", Credentials{File: "/non/existent/sa.json"}); err == nil {
		t.Error("expected error for missing credentials file")
	}
}

func TestAppendEntryValidates(t *testing.T) {
	c := &Client{}
	if _, err := c.AppendEntry(context.Background(), journal.Entry{Action: "created"}); err == nil {
		t.Error("expected validation error for missing invoice id")
	}
	if _, err := c.AppendEntry(context.Background(), journal.Entry{Action: "created", InvoiceID: 1}); err == nil {
		t.Error("expected error for uninitialized service")
	}
}

func TestAppendEntryStoresValuesVerbatim(t *testing.T) {
	var (
		inputOption string
		sent        gsheet.ValueRange
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inputOption = r.URL.Query().Get("valueInputOption")
		if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"updates":{"updatedRange":"Journal!A2:H2"}}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := gsheet.NewService(ctx,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	c := &Client{svc: svc, spreadsheetID: "abc", sheetName: "Journal"}

	rng, err := c.AppendEntry(ctx, journal.Entry{
		Action:        "created",
		InvoiceID:     1,
		InvoiceNumber: "001",
		CompanyName:   "=HYPERLINK(\"http://example.com\")",
		IssueDate:     "2025-03-01",
		Total:         decimal.NewFromInt(10),
		Currency:      "HUF",
	})
	if err != nil {
		t.Fatalf("AppendEntry() error = %v", err)
	}
	if rng != "Journal!A2:H2" {
		t.Errorf("AppendEntry() range = %q", rng)
	}
	if inputOption != "RAW" {
		t.Errorf("valueInputOption = %q, want RAW", inputOption)
	}
	if len(sent.Values) != 1 || sent.Values[0][3] != "001" || sent.Values[0][4] != "=HYPERLINK(\"http://example.com\")" {
		t.Errorf("unexpected row sent: %+v", sent.Values)
	}
}
