package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"szamlazo/internal/core"
	"szamlazo/internal/services"
)

// page carries what the layout needs on every screen.
type page struct {
	Title   string
	Nav     string
	Flashes Flashes
}

// newPage starts a page with the flashes left by the previous redirect.
func newPage(w http.ResponseWriter, r *http.Request, title, nav string) page {
	return page{Title: title, Nav: nav, Flashes: popFlashes(w, r)}
}

// redirect stores flashes for the target page and answers 303 See Other.
func redirect(w http.ResponseWriter, r *http.Request, target string, flashes Flashes) {
	setFlashCookie(w, flashes)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// backOr returns the same-origin Referer path, or fallback.
func backOr(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	if i := strings.Index(ref, "://"); i >= 0 {
		rest := ref[i+3:]
		host, path, found := strings.Cut(rest, "/")
		if !found || host != r.Host {
			return fallback
		}
		return "/" + path
	}
	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
		return ref
	}
	return fallback
}

// pathID reads the numeric {id} route variable.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// invoiceFormFromRequest zips the repeated item_* fields into rows.
func invoiceFormFromRequest(r *http.Request) services.InvoiceForm {
	companyID, _ := strconv.ParseInt(strings.TrimSpace(r.PostForm.Get("company_id")), 10, 64)
	f := services.InvoiceForm{
		CompanyID:     companyID,
		InvoiceNumber: sanitizeInput(r.PostForm.Get("invoice_number")),
		IssueDate:     sanitizeInput(r.PostForm.Get("issue_date")),
		DueDate:       sanitizeInput(r.PostForm.Get("due_date")),
		Currency:      sanitizeInput(r.PostForm.Get("currency")),
		Note:          sanitizeInput(r.PostForm.Get("note")),
	}

	descs := r.PostForm["item_description"]
	qtys := r.PostForm["item_quantity"]
	prices := r.PostForm["item_unit_price"]
	n := max(len(descs), len(qtys), len(prices))
	at := func(values []string, i int) string {
		if i < len(values) {
			return sanitizeInput(values[i])
		}
		return ""
	}
	for i := 0; i < n; i++ {
		row := services.ItemForm{
			Description: at(descs, i),
			Quantity:    at(qtys, i),
			UnitPrice:   at(prices, i),
		}
		if row == (services.ItemForm{}) {
			continue
		}
		f.Items = append(f.Items, row)
	}
	return f
}

func companyFromRequest(r *http.Request) core.Company {
	return core.Company{
		Name:          sanitizeInput(r.PostForm.Get("name")),
		Address:       sanitizeInput(r.PostForm.Get("address")),
		TaxNumber:     sanitizeInput(r.PostForm.Get("tax_number")),
		BankAccount:   sanitizeInput(r.PostForm.Get("bank_account")),
		ContactPerson: sanitizeInput(r.PostForm.Get("contact_person")),
		Email:         sanitizeInput(r.PostForm.Get("email")),
		Phone:         sanitizeInput(r.PostForm.Get("phone")),
	}
}

func ownerFromRequest(r *http.Request) core.OwnerCompany {
	return core.OwnerCompany{
		Name:        sanitizeInput(r.PostForm.Get("name")),
		Address:     sanitizeInput(r.PostForm.Get("address")),
		TaxNumber:   sanitizeInput(r.PostForm.Get("tax_number")),
		BankAccount: sanitizeInput(r.PostForm.Get("bank_account")),
		Email:       sanitizeInput(r.PostForm.Get("email")),
		Phone:       sanitizeInput(r.PostForm.Get("phone")),
	}
}

var validationMessages = []struct {
	err error
	msg string
}{
	{core.ErrEmptyName, "A név megadása kötelező."},
	{core.ErrEmptyAddress, "A cím megadása kötelező."},
	{core.ErrEmptyTaxNumber, "Az adószám megadása kötelező."},
	{core.ErrMissingCompany, "Válassz céget a számlához!"},
	{core.ErrCompanyNotFound, "A kiválasztott cég nem létezik."},
	{core.ErrEmptyInvoiceNumber, "A számlaszám megadása kötelező."},
	{core.ErrInvalidIssueDate, "Érvénytelen kiállítási dátum! Használj ÉÉÉÉ-HH-NN formátumot."},
	{core.ErrInvalidDueDate, "Érvénytelen fizetési határidő! Használj ÉÉÉÉ-HH-NN formátumot."},
	{core.ErrNoItems, "Legalább egy tételt meg kell adni leírással."},
	{core.ErrInvalidQuantity, "A mennyiségnek pozitív számnak kell lennie."},
	{core.ErrInvalidUnitPrice, "Az egységár nem lehet negatív vagy hibás szám."},
	{core.ErrInvalidStartDate, "Érvénytelen kezdő dátum formátum! Használj ÉÉÉÉ-HH-NN formátumot."},
	{core.ErrInvalidEndDate, "Érvénytelen befejező dátum formátum! Használj ÉÉÉÉ-HH-NN formátumot."},
}

// userMessage turns a service error into the Hungarian text shown to the user.
func userMessage(err error) string {
	var itemErr *services.ItemError
	if errors.As(err, &itemErr) {
		return fmt.Sprintf("%d. tétel: %s", itemErr.Row, userMessage(itemErr.Err))
	}
	for _, m := range validationMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return err.Error()
}
