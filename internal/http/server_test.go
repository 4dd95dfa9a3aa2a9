package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"szamlazo/internal/core"
	"szamlazo/internal/log"
	"szamlazo/internal/services"
	"szamlazo/internal/storage"
)

type testApp struct {
	srv       *Server
	companies *services.CompanyService
	invoices  *services.InvoiceService
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	return newTestAppWith(t, nil)
}

func newTestAppWith(t *testing.T, configure func(*Dependencies)) testApp {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "http.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	app := testApp{
		companies: services.NewCompanyService(repo),
		invoices:  services.NewInvoiceService(repo, nil, "HUF", 8),
	}
	deps := Dependencies{
		Invoices:       app.invoices,
		Companies:      app.companies,
		Owner:          services.NewOwnerService(repo),
		Statistics:     services.NewStatisticsService(repo, "HUF"),
		DB:             repo,
		MaxUploadBytes: 1 << 20,
		Logger:         log.New(log.Config{Level: slog.LevelError, Component: log.ComponentHTTP, Output: io.Discard}),
	}
	if configure != nil {
		configure(&deps)
	}
	app.srv = NewServer(":0", deps)
	t.Cleanup(app.srv.importLimiter.Stop)
	return app
}

func (a testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (a testApp) get(path string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (a testApp) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

func (a testApp) postFile(path, filename string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", filename)
	fw.Write(content)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req)
}

func (a testApp) mustCompany(t *testing.T, name, tax string) core.Company {
	t.Helper()
	c, err := a.companies.Create(context.Background(), core.Company{Name: name, Address: "Budapest", TaxNumber: tax})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	return c
}

func flashesOf(rr *httptest.ResponseRecorder) Flashes {
	for _, c := range rr.Result().Cookies() {
		if c.Name == flashCookieName {
			return decodeFlashes(c.Value)
		}
	}
	return nil
}

func hasFlash(flashes Flashes, kind FlashKind, substr string) bool {
	for _, f := range flashes {
		if f.Kind == kind && strings.Contains(f.Message, substr) {
			return true
		}
	}
	return false
}

func invoiceValues(companyID int64, number string) url.Values {
	return url.Values{
		"company_id":       {strconv.FormatInt(companyID, 10)},
		"invoice_number":   {number},
		"issue_date":       {"2025-03-01"},
		"due_date":         {"2025-03-09"},
		"currency":         {"HUF"},
		"item_description": {"Tanácsadás", ""},
		"item_quantity":    {"2", ""},
		"item_unit_price":  {"15000", ""},
	}
}

func TestHealthAndReady(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := app.get(path)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: invalid JSON: %v", path, err)
		}
		if body["status"] != "ok" && body["status"] != "ready" {
			t.Fatalf("%s: unexpected status %v", path, body["status"])
		}
	}
}

func TestIndexRedirectsToInvoices(t *testing.T) {
	app := newTestApp(t)
	rr := app.get("/")
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/invoices" {
		t.Fatalf("expected redirect to /invoices, got %q", loc)
	}
}

func TestPagesRender(t *testing.T) {
	app := newTestApp(t)
	app.mustCompany(t, "Teszt Kft.", "12345678-1-42")

	tests := []struct {
		path string
		want string
	}{
		{"/invoices", "Még nincs rögzített számla."},
		{"/invoices/new", "Teszt Kft."},
		{"/companies", "12345678-1-42"},
		{"/companies/new", "Új cég"},
		{"/companies/import", "name,address,tax_number"},
		{"/owner-company", "Saját cég adatai"},
		{"/statistics", "Még nincs adat."},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := app.get(tt.path)
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Fatalf("body missing %q", tt.want)
			}
			if rr.Header().Get("Content-Security-Policy") == "" {
				t.Fatal("expected security headers on pages")
			}
		})
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"unknown path", http.MethodGet, "/nope", http.StatusNotFound},
		{"missing invoice", http.MethodGet, "/invoices/999/edit", http.StatusNotFound},
		{"missing company", http.MethodGet, "/companies/999/edit", http.StatusNotFound},
		{"missing invoice pdf", http.MethodGet, "/invoices/999/pdf", http.StatusNotFound},
		{"delete missing invoice", http.MethodPost, "/invoices/999/delete", http.StatusNotFound},
		{"non-numeric id", http.MethodGet, "/invoices/abc/edit", http.StatusNotFound},
		{"delete via GET", http.MethodGet, "/invoices/1/delete", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := app.do(httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestInvoiceCreateAndDuplicate(t *testing.T) {
	app := newTestApp(t)
	c := app.mustCompany(t, "Teszt Kft.", "111")

	rr := app.postForm("/invoices/new", invoiceValues(c.ID, "INV-001"))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d body=%s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/invoices" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if !hasFlash(flashesOf(rr), FlashSuccess, "Számla sikeresen hozzáadva!") {
		t.Fatalf("missing success flash: %+v", flashesOf(rr))
	}

	list := app.get("/invoices")
	body := list.Body.String()
	if !strings.Contains(body, "INV-001") || !strings.Contains(body, "Teszt Kft.") {
		t.Fatalf("invoice list does not show the new invoice")
	}
	if !strings.Contains(body, "30 000,00 HUF") {
		t.Fatalf("expected formatted total in list")
	}

	rr = app.postForm("/invoices/new", invoiceValues(c.ID, "INV-001"))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for duplicate number, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "számlaszám már létezik") {
		t.Fatalf("expected duplicate message in form")
	}
	if !strings.Contains(rr.Body.String(), "Tanácsadás") {
		t.Fatalf("form should keep the submitted items")
	}
}

func TestInvoiceValidationRerendersForm(t *testing.T) {
	app := newTestApp(t)
	c := app.mustCompany(t, "Teszt Kft.", "111")

	tests := []struct {
		name   string
		mutate func(url.Values)
		want   string
	}{
		{"no items", func(v url.Values) {
			v.Del("item_description")
			v.Del("item_quantity")
			v.Del("item_unit_price")
		}, "Legalább egy tételt"},
		{"bad issue date", func(v url.Values) { v.Set("issue_date", "2025-02-30") }, "Érvénytelen kiállítási dátum"},
		{"no number", func(v url.Values) { v.Set("invoice_number", "  ") }, "A számlaszám megadása kötelező."},
		{"no company", func(v url.Values) { v.Set("company_id", "") }, "Válassz céget"},
		{"unparsable quantity", func(v url.Values) { v["item_quantity"] = []string{"sok", ""} }, "1. tétel: A mennyiségnek"},
		{"zero quantity", func(v url.Values) { v["item_quantity"] = []string{"0", ""} }, "A mennyiségnek pozitív"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := invoiceValues(c.ID, "INV-X")
			tt.mutate(v)
			rr := app.postForm("/invoices/new", v)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Fatalf("expected %q in body", tt.want)
			}
		})
	}
}

func TestInvoiceEditPDFAndDelete(t *testing.T) {
	app := newTestApp(t)
	c := app.mustCompany(t, "Teszt Kft.", "111")
	inv, err := app.invoices.Create(context.Background(), services.InvoiceForm{
		CompanyID:     c.ID,
		InvoiceNumber: "2025/7",
		IssueDate:     "2025-03-01",
		DueDate:       "2025-03-09",
		Items:         []services.ItemForm{{Description: "Munka", Quantity: "1", UnitPrice: "100"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	base := "/invoices/" + strconv.FormatInt(inv.ID, 10)

	rr := app.get(base + "/edit")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "2025/7") {
		t.Fatalf("edit form status=%d", rr.Code)
	}

	v := invoiceValues(c.ID, "2025/8")
	rr = app.postForm(base+"/edit", v)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 after edit, got %d body=%s", rr.Code, rr.Body.String())
	}
	got, _ := app.invoices.Get(context.Background(), inv.ID)
	if got.InvoiceNumber != "2025/8" || len(got.Items) != 1 {
		t.Fatalf("edit not persisted: %+v", got)
	}

	rr = app.get(base + "/pdf")
	if rr.Code != http.StatusOK {
		t.Fatalf("pdf status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "inline") {
		t.Fatalf("expected inline disposition, got %q", cd)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("body is not a PDF document")
	}

	rr = app.postForm(base+"/delete", nil)
	if rr.Code != http.StatusSeeOther || !hasFlash(flashesOf(rr), FlashSuccess, "törölve") {
		t.Fatalf("delete status=%d flashes=%+v", rr.Code, flashesOf(rr))
	}
	if rr := app.get(base + "/edit"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected deleted invoice to be gone, got %d", rr.Code)
	}
}

func TestInvoiceFilter(t *testing.T) {
	app := newTestApp(t)
	a := app.mustCompany(t, "Alfa Kft.", "1")
	b := app.mustCompany(t, "Béta Bt.", "2")
	for _, f := range []services.InvoiceForm{
		{CompanyID: a.ID, InvoiceNumber: "A-1", IssueDate: "2025-01-10", DueDate: "2025-01-18"},
		{CompanyID: b.ID, InvoiceNumber: "B-1", IssueDate: "2025-02-10", DueDate: "2025-02-18"},
	} {
		f.Items = []services.ItemForm{{Description: "x", Quantity: "1", UnitPrice: "1"}}
		if _, err := app.invoices.Create(context.Background(), f); err != nil {
			t.Fatal(err)
		}
	}

	rr := app.get("/invoices?search_company_name=b%C3%A9ta")
	body := rr.Body.String()
	if !strings.Contains(body, "B-1") || strings.Contains(body, "A-1") {
		t.Fatalf("name filter did not narrow the list")
	}

	rr = app.get("/invoices?start_date=2025-01-01&end_date=2025-01-31")
	body = rr.Body.String()
	if !strings.Contains(body, "A-1") || strings.Contains(body, "B-1") {
		t.Fatalf("date filter did not narrow the list")
	}

	rr = app.get("/invoices?start_date=2025-13-01")
	if rr.Code != http.StatusOK {
		t.Fatalf("invalid filter should still render, got %d", rr.Code)
	}
	body = rr.Body.String()
	if !strings.Contains(body, "Érvénytelen kezdő dátum") {
		t.Fatalf("expected invalid date message")
	}
	if !strings.Contains(body, "A-1") || !strings.Contains(body, "B-1") {
		t.Fatalf("invalid bound should be ignored")
	}
}

func TestCompanyExportImportRoundTrip(t *testing.T) {
	src := newTestApp(t)
	src.mustCompany(t, "Alfa Kft.", "111")
	src.mustCompany(t, "Béta, \"Bt.\"", "222")

	rr := src.get("/companies/export")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, "companies.csv") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	exported := rr.Body.Bytes()

	dst := newTestApp(t)
	rr = dst.postFile("/companies/import", "companies.csv", exported)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/companies" {
		t.Fatalf("import status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
	if !hasFlash(flashesOf(rr), FlashSuccess, "2 cég sikeresen importálva!") {
		t.Fatalf("unexpected flashes %+v", flashesOf(rr))
	}
	list, _ := dst.companies.List(context.Background())
	if len(list) != 2 || list[1].Name != "Béta, \"Bt.\"" {
		t.Fatalf("imported companies differ: %+v", list)
	}

	rr = dst.postFile("/companies/import", "companies.csv", exported)
	flashes := flashesOf(rr)
	if !hasFlash(flashes, FlashWarning, "már létezik") || !hasFlash(flashes, FlashSuccess, "0 cég sikeresen importálva!") {
		t.Fatalf("expected skip warnings on re-import, got %+v", flashes)
	}
}

func TestCompanyImportManySkippedRowsKeepsCount(t *testing.T) {
	app := newTestApp(t)
	var b strings.Builder
	b.WriteString("name,address,tax_number,bank_account,contact_person,email,phone\n")
	for i := 0; i < 40; i++ {
		tax := "1000" + strconv.Itoa(i)
		app.mustCompany(t, "Meglévő "+strconv.Itoa(i)+" Kft.", tax)
		b.WriteString("Meglévő " + strconv.Itoa(i) + " Kft.,Budapest," + tax + ",,,,\n")
	}
	b.WriteString("Új Kft.,Debrecen,999,,,,\n")

	rr := app.postFile("/companies/import", "companies.csv", []byte(b.String()))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d", rr.Code)
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == flashCookieName && len(c.Value) > maxFlashCookieBytes {
			t.Fatalf("flash cookie too large: %d bytes", len(c.Value))
		}
	}
	flashes := flashesOf(rr)
	if !hasFlash(flashes, FlashSuccess, "1 cég sikeresen importálva!") {
		t.Fatalf("import count lost, got %+v", flashes)
	}
	if !hasFlash(flashes, FlashWarning, "már létezik") || !hasFlash(flashes, FlashInfo, "további") {
		t.Fatalf("expected some warnings and a summary, got %+v", flashes)
	}
}

func TestCompanyImportRejections(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name     string
		filename string
		content  string
		want     string
	}{
		{"wrong extension", "companies.txt", "name\n", "Csak CSV fájlokat"},
		{"bad header", "companies.csv", "foo,bar\n", "Hibás CSV formátum"},
		{"bad encoding", "companies.csv", "name,address\n\xff\xfe\n", "UTF-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := app.postFile("/companies/import", tt.filename, []byte(tt.content))
			if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/companies/import" {
				t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
			}
			if !hasFlash(flashesOf(rr), FlashDanger, tt.want) {
				t.Fatalf("expected %q flash, got %+v", tt.want, flashesOf(rr))
			}
		})
	}

	rr := app.postForm("/companies/import", url.Values{"x": {"1"}})
	if !hasFlash(flashesOf(rr), FlashDanger, "Nincs kiválasztva fájl") {
		t.Fatalf("expected missing file flash, got %+v", flashesOf(rr))
	}
}

func TestCompanyImportRateLimited(t *testing.T) {
	app := newTestAppWith(t, func(d *Dependencies) { d.ImportRateLimit = 1 })
	csv := []byte("name,address,tax_number,bank_account,contact_person,email,phone\nA,B,1,,,,\n")

	if rr := app.postFile("/companies/import", "a.csv", csv); !hasFlash(flashesOf(rr), FlashSuccess, "1 cég") {
		t.Fatalf("first import should pass, got %+v", flashesOf(rr))
	}
	rr := app.postFile("/companies/import", "a.csv", csv)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected limited redirect, got %d", rr.Code)
	}
	if !hasFlash(flashesOf(rr), FlashDanger, "Túl sok importálási") {
		t.Fatalf("expected rate limit flash, got %+v", flashesOf(rr))
	}
	if rr := app.get("/companies/import"); rr.Code != http.StatusOK {
		t.Fatalf("the import page itself is not limited, got %d", rr.Code)
	}
}

func TestCompanyFormDuplicateTaxNumber(t *testing.T) {
	app := newTestApp(t)
	app.mustCompany(t, "Alfa Kft.", "111")

	rr := app.postForm("/companies/new", url.Values{
		"name": {"Másik Kft."}, "address": {"Szeged"}, "tax_number": {"111"},
	})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "adószám már létezik") {
		t.Fatalf("expected duplicate tax number error, got %d", rr.Code)
	}

	rr = app.postForm("/companies/new", url.Values{"name": {"Másik Kft."}, "tax_number": {"222"}})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "A cím megadása kötelező.") {
		t.Fatalf("expected missing address error, got %d", rr.Code)
	}
}

func TestOwnerCompanySave(t *testing.T) {
	app := newTestApp(t)

	rr := app.postForm("/owner-company", url.Values{"name": {""}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty name, got %d", rr.Code)
	}

	rr = app.postForm("/owner-company", url.Values{"name": {"Saját Bt."}, "tax_number": {"999"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if !strings.Contains(app.get("/owner-company").Body.String(), "Saját Bt.") {
		t.Fatal("owner name not shown after save")
	}
}

func TestStatisticsPage(t *testing.T) {
	app := newTestApp(t)
	c := app.mustCompany(t, "Alfa Kft.", "1")
	if _, err := app.invoices.Create(context.Background(), services.InvoiceForm{
		CompanyID: c.ID, InvoiceNumber: "S-1", IssueDate: "2025-03-05", DueDate: "2025-03-13",
		Items: []services.ItemForm{{Description: "x", Quantity: "3", UnitPrice: "1000"}},
	}); err != nil {
		t.Fatal(err)
	}

	rr := app.get("/statistics")
	body := rr.Body.String()
	if rr.Code != http.StatusOK || !strings.Contains(body, "2025-03") || !strings.Contains(body, "3 000,00 HUF") {
		t.Fatalf("statistics page missing data (status=%d)", rr.Code)
	}
	if !strings.Contains(body, "width: 100%") {
		t.Fatalf("expected the largest month to fill the bar")
	}
}

func TestFlashSurvivesRedirect(t *testing.T) {
	app := newTestApp(t)
	rr := app.postForm("/owner-company", url.Values{"name": {"Saját Bt."}})

	req := httptest.NewRequest(http.MethodGet, "/owner-company", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	next := app.do(req)
	if !strings.Contains(next.Body.String(), "Saját cég adatai sikeresen mentve!") {
		t.Fatal("flash not rendered after redirect")
	}
	cleared := false
	for _, c := range next.Result().Cookies() {
		if c.Name == flashCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("flash cookie should be cleared once shown")
	}
}

func TestBarWidth(t *testing.T) {
	tests := []struct {
		amount, top string
		want        int
	}{
		{"50", "100", 50},
		{"100", "100", 100},
		{"0", "100", 0},
		{"1", "1000", 2},
		{"10", "0", 0},
	}
	for _, tt := range tests {
		got := barWidth(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.top))
		if got != tt.want {
			t.Errorf("barWidth(%s, %s) = %d, want %d", tt.amount, tt.top, got, tt.want)
		}
	}
}
