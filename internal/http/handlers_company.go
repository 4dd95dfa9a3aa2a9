package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"szamlazo/internal/companycsv"
	"szamlazo/internal/core"
	"szamlazo/internal/log"
	"szamlazo/internal/services"
)

type companyListPage struct {
	page
	Companies []core.Company
}

func (s *Server) handleCompanyList(w http.ResponseWriter, r *http.Request) {
	data := companyListPage{page: newPage(w, r, "Cégek", "companies")}
	companies, err := s.companies.List(r.Context())
	if err != nil {
		log.LogError(r.Context(), "List companies failed", err, log.ComponentCompany, log.OpList, log.ErrorTypeDatabase, nil)
		data.Flashes.Danger("Hiba történt a cégek betöltése közben: %v", err)
	}
	data.Companies = companies
	s.render(w, r, http.StatusOK, "companies.html", data)
}

type companyFormPage struct {
	page
	Company core.Company
	Action  string
	IsEdit  bool
}

func (s *Server) handleCompanyNew(w http.ResponseWriter, r *http.Request) {
	data := companyFormPage{
		page:   newPage(w, r, "Új cég", "companies"),
		Action: "/companies/new",
	}
	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "company_form.html", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		BadRequestError("Hibás kérés").Write(w)
		return
	}
	data.Company = companyFromRequest(r)

	if _, err := s.companies.Create(r.Context(), data.Company); err != nil {
		s.companyFormFailed(w, r, data, err, "a cég hozzáadása")
		return
	}

	var flashes Flashes
	flashes.Success("Cég sikeresen hozzáadva!")
	redirect(w, r, "/companies", flashes)
}

func (s *Server) handleCompanyEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "A cég nem található.")
		return
	}
	data := companyFormPage{
		page:   newPage(w, r, "Cég szerkesztése", "companies"),
		Action: fmt.Sprintf("/companies/%d/edit", id),
		IsEdit: true,
	}

	if r.Method == http.MethodGet {
		c, err := s.companies.Get(r.Context(), id)
		if err != nil {
			s.renderLoadError(w, r, err, log.ComponentCompany, "A cég nem található.")
			return
		}
		data.Company = c
		s.render(w, r, http.StatusOK, "company_form.html", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		BadRequestError("Hibás kérés").Write(w)
		return
	}
	data.Company = companyFromRequest(r)
	data.Company.ID = id

	if _, err := s.companies.Update(r.Context(), data.Company); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.renderError(w, r, http.StatusNotFound, "A cég nem található.")
			return
		}
		s.companyFormFailed(w, r, data, err, "a cég szerkesztése")
		return
	}

	var flashes Flashes
	flashes.Success("Cég adatai sikeresen frissítve!")
	redirect(w, r, "/companies", flashes)
}

func (s *Server) companyFormFailed(w http.ResponseWriter, r *http.Request, data companyFormPage, err error, doing string) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, core.ErrDuplicateTaxNumber):
		data.Flashes.Danger("Hiba: A \"%s\" adószám már létezik.", data.Company.TaxNumber)
	case services.IsValidationError(err):
		data.Flashes.Danger("%s", userMessage(err))
	default:
		status = http.StatusInternalServerError
		log.LogError(r.Context(), "Company save failed", err, log.ComponentCompany, log.OpUpdate, log.ErrorTypeDatabase, nil)
		data.Flashes.Danger("Hiba történt %s közben: %v", doing, err)
	}
	s.render(w, r, status, "company_form.html", data)
}

func (s *Server) handleCompanyDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "A cég nem található.")
		return
	}

	var flashes Flashes
	if err := s.companies.Delete(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.renderError(w, r, http.StatusNotFound, "A cég nem található.")
			return
		}
		log.LogError(r.Context(), "Company delete failed", err, log.ComponentCompany, log.OpDelete, log.ErrorTypeDatabase, nil)
		flashes.Danger("Hiba történt a cég törlése közben: %v", err)
	} else {
		flashes.Success("Cég sikeresen törölve!")
	}
	redirect(w, r, "/companies", flashes)
}

func (s *Server) handleCompanyExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.companies.ExportCSV(r.Context(), &buf); err != nil {
		log.LogError(r.Context(), "Company export failed", err, log.ComponentCompany, log.OpExport, log.ErrorTypeDatabase, nil)
		var flashes Flashes
		flashes.Danger("Hiba történt az exportálás közben: %v", err)
		redirect(w, r, "/companies", flashes)
		return
	}
	NewResponse().
		Attachment("text/csv; charset=utf-8", "companies.csv", false).
		Body(buf.Bytes()).
		Write(w)
}

type importPage struct {
	page
	Header    string
	MaxUpload int64
}

func (s *Server) handleCompanyImport(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "import.html", importPage{
			page:      newPage(w, r, "Cégek importálása", "companies"),
			Header:    strings.Join(companycsv.Header, ","),
			MaxUpload: s.maxUploadBytes >> 20,
		})
		return
	}

	var flashes Flashes
	back := func() { redirect(w, r, "/companies/import", flashes) }

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			flashes.Danger("A feltöltött fájl túl nagy (legfeljebb %d MB).", s.maxUploadBytes>>20)
		case errors.Is(err, http.ErrNotMultipart):
			flashes.Danger("Nincs kiválasztva fájl!")
		default:
			flashes.Danger("Hibás feltöltés: %v", err)
		}
		back()
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		flashes.Danger("Nincs kiválasztva fájl!")
		back()
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		flashes.Danger("Csak CSV fájlokat lehet importálni!")
		back()
		return
	}

	result, err := s.companies.ImportCSV(r.Context(), file)
	if err != nil {
		var importErr *services.ImportError
		switch {
		case errors.Is(err, companycsv.ErrInvalidHeader):
			flashes.Danger("Hibás CSV formátum. A fejléceknek a következőknek kell lenniük: %s", strings.Join(companycsv.Header, ", "))
		case errors.Is(err, companycsv.ErrInvalidEncoding):
			flashes.Danger("A fájl nem érvényes UTF-8 kódolású CSV.")
		case errors.As(err, &importErr):
			flashes.Danger("Hiba történt a(z) \"%s\" cég importálásakor: %v. Visszaállítás.", importErr.Name, importErr.Err)
		default:
			flashes.Danger("Hiba történt az importálás közben: %v", err)
		}
		log.LogError(r.Context(), "Company import failed", err, log.ComponentImport, log.OpImport, log.ErrorTypeValidation,
			log.LogFields{"filename": header.Filename})
		back()
		return
	}

	for _, skip := range result.Skipped {
		switch {
		case errors.Is(skip.Reason, services.ErrTaxNumberExists):
			flashes.Warning("Figyelem: A(z) \"%s\" cég (adószám: %s) már létezik, kihagyva.", skip.Name, skip.TaxNumber)
		case errors.Is(skip.Reason, services.ErrMalformedRow):
			flashes.Warning("Hibás sor a CSV fájlban (%d. sor): %s. Kihagyva.", skip.Line, strings.Join(skip.Fields, ","))
		default:
			flashes.Warning("Hiányos sor a CSV fájlban (%d. sor): \"%s\" (adószám: %s). Kihagyva.", skip.Line, skip.Name, skip.TaxNumber)
		}
	}
	flashes.Success("%d cég sikeresen importálva!", result.Imported)
	redirect(w, r, "/companies", flashes)
}

func (s *Server) handleImportLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("Import rate limit exceeded", log.FieldClientIP, clientIP(r), log.FieldOperation, log.OpImport)
	var flashes Flashes
	flashes.Danger("Túl sok importálási kísérlet. Próbáld újra egy perc múlva!")
	redirect(w, r, "/companies/import", flashes)
}
