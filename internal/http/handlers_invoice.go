package http

import (
	"errors"
	"fmt"
	"net/http"

	"szamlazo/internal/core"
	"szamlazo/internal/log"
	"szamlazo/internal/services"
)

type invoiceListPage struct {
	page
	Invoices          []core.Invoice
	SearchCompanyName string
	StartDate         string
	EndDate           string
	Filtered          bool
}

func (s *Server) handleInvoiceList(w http.ResponseWriter, r *http.Request) {
	data := invoiceListPage{page: newPage(w, r, "Számlák", "invoices")}

	q := r.URL.Query()
	filter, errs := core.NewInvoiceFilter(q.Get("search_company_name"), q.Get("start_date"), q.Get("end_date"))
	for _, err := range errs {
		data.Flashes.Danger("%s", userMessage(err))
	}
	data.SearchCompanyName = filter.CompanyName
	data.StartDate = filter.StartDate.String()
	data.EndDate = filter.EndDate.String()
	data.Filtered = !filter.IsEmpty()

	invoices, err := s.invoices.List(r.Context(), filter)
	if err != nil {
		log.LogError(r.Context(), "List invoices failed", err, log.ComponentInvoice, log.OpList, log.ErrorTypeDatabase, nil)
		data.Flashes.Danger("Hiba történt a számlák betöltése közben: %v", err)
	}
	data.Invoices = invoices

	s.render(w, r, http.StatusOK, "invoices.html", data)
}

type invoiceFormPage struct {
	page
	Form      services.InvoiceForm
	Companies []core.Company
	Action    string
	IsEdit    bool
}

func (s *Server) handleInvoiceNew(w http.ResponseWriter, r *http.Request) {
	data := invoiceFormPage{
		page:   newPage(w, r, "Új számla", "invoices"),
		Action: "/invoices/new",
	}

	if r.Method == http.MethodGet {
		data.Form = s.invoices.NewForm()
		s.renderInvoiceForm(w, r, http.StatusOK, data)
		return
	}

	if err := r.ParseForm(); err != nil {
		BadRequestError("Hibás kérés").Write(w)
		return
	}
	data.Form = invoiceFormFromRequest(r)

	if _, err := s.invoices.Create(r.Context(), data.Form); err != nil {
		s.invoiceFormFailed(w, r, data, err, "a számla hozzáadása")
		return
	}

	var flashes Flashes
	flashes.Success("Számla sikeresen hozzáadva!")
	redirect(w, r, "/invoices", flashes)
}

func (s *Server) handleInvoiceEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "A számla nem található.")
		return
	}
	data := invoiceFormPage{
		page:   newPage(w, r, "Számla szerkesztése", "invoices"),
		Action: fmt.Sprintf("/invoices/%d/edit", id),
		IsEdit: true,
	}

	if r.Method == http.MethodGet {
		inv, err := s.invoices.Get(r.Context(), id)
		if err != nil {
			s.renderLoadError(w, r, err, log.ComponentInvoice, "A számla nem található.")
			return
		}
		data.Form = services.FormFromInvoice(inv)
		s.renderInvoiceForm(w, r, http.StatusOK, data)
		return
	}

	if err := r.ParseForm(); err != nil {
		BadRequestError("Hibás kérés").Write(w)
		return
	}
	data.Form = invoiceFormFromRequest(r)
	data.Form.ID = id

	if _, err := s.invoices.Update(r.Context(), id, data.Form); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.renderError(w, r, http.StatusNotFound, "A számla nem található.")
			return
		}
		s.invoiceFormFailed(w, r, data, err, "a számla szerkesztése")
		return
	}

	var flashes Flashes
	flashes.Success("Számla sikeresen frissítve!")
	redirect(w, r, "/invoices", flashes)
}

// invoiceFormFailed shows the form again with the submitted values.
func (s *Server) invoiceFormFailed(w http.ResponseWriter, r *http.Request, data invoiceFormPage, err error, doing string) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, core.ErrDuplicateInvoiceNumber):
		data.Flashes.Danger("Hiba: A \"%s\" számlaszám már létezik.", data.Form.InvoiceNumber)
	case services.IsValidationError(err):
		data.Flashes.Danger("%s", userMessage(err))
	default:
		status = http.StatusInternalServerError
		log.LogError(r.Context(), "Invoice save failed", err, log.ComponentInvoice, log.OpUpdate, log.ErrorTypeDatabase, nil)
		data.Flashes.Danger("Hiba történt %s közben: %v", doing, err)
	}
	s.renderInvoiceForm(w, r, status, data)
}

func (s *Server) renderInvoiceForm(w http.ResponseWriter, r *http.Request, status int, data invoiceFormPage) {
	companies, err := s.companies.List(r.Context())
	if err != nil {
		log.LogError(r.Context(), "List companies failed", err, log.ComponentCompany, log.OpList, log.ErrorTypeDatabase, nil)
		data.Flashes.Danger("Hiba történt a cégek betöltése közben: %v", err)
	}
	data.Companies = companies
	if len(companies) == 0 && err == nil {
		data.Flashes.Warning("Még nincs rögzített cég. Előbb adj hozzá egy céget!")
	}
	if len(data.Form.Items) == 0 {
		data.Form.Items = []services.ItemForm{{Quantity: "1"}}
	}
	s.render(w, r, status, "invoice_form.html", data)
}

func (s *Server) handleInvoiceDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "A számla nem található.")
		return
	}

	var flashes Flashes
	if err := s.invoices.Delete(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.renderError(w, r, http.StatusNotFound, "A számla nem található.")
			return
		}
		log.LogError(r.Context(), "Invoice delete failed", err, log.ComponentInvoice, log.OpDelete, log.ErrorTypeDatabase, nil)
		flashes.Danger("Hiba történt a számla törlése közben: %v", err)
	} else {
		flashes.Success("Számla sikeresen törölve!")
	}
	redirect(w, r, "/invoices", flashes)
}

func (s *Server) handleInvoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "A számla nem található.")
		return
	}

	doc, filename, err := s.invoices.RenderPDF(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.renderError(w, r, http.StatusNotFound, "A számla nem található.")
			return
		}
		log.LogError(r.Context(), "PDF rendering failed", err, log.ComponentPDF, log.OpRender, log.ErrorTypeInternal,
			log.NewFields().WithInvoice(id, ""))
		var flashes Flashes
		flashes.Danger("Hiba történt a PDF generálása közben: %v", err)
		redirect(w, r, backOr(r, "/invoices"), flashes)
		return
	}

	NewResponse().
		Attachment("application/pdf", filename, true).
		Body(doc).
		Write(w)
}
