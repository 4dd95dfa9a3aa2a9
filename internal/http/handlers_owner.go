package http

import (
	"errors"
	"net/http"

	"szamlazo/internal/core"
	"szamlazo/internal/log"
)

type ownerPage struct {
	page
	Owner core.OwnerCompany
}

func (s *Server) handleOwnerCompany(w http.ResponseWriter, r *http.Request) {
	data := ownerPage{page: newPage(w, r, "Saját cég adatai", "owner")}

	if r.Method == http.MethodGet {
		owner, err := s.owner.Get(r.Context())
		if err != nil {
			log.LogError(r.Context(), "Load owner company failed", err, log.ComponentOwner, log.OpRead, log.ErrorTypeDatabase, nil)
			data.Flashes.Danger("Hiba történt a saját cég adatainak betöltése közben: %v", err)
		}
		data.Owner = owner
		s.render(w, r, http.StatusOK, "owner_company.html", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		BadRequestError("Hibás kérés").Write(w)
		return
	}
	data.Owner = ownerFromRequest(r)

	if err := s.owner.Save(r.Context(), data.Owner); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, core.ErrEmptyName) {
			data.Flashes.Danger("%s", userMessage(err))
		} else {
			status = http.StatusInternalServerError
			log.LogError(r.Context(), "Save owner company failed", err, log.ComponentOwner, log.OpUpdate, log.ErrorTypeDatabase, nil)
			data.Flashes.Danger("Hiba történt a saját cég adatainak mentése közben: %v", err)
		}
		s.render(w, r, status, "owner_company.html", data)
		return
	}

	var flashes Flashes
	flashes.Success("Saját cég adatai sikeresen mentve!")
	redirect(w, r, "/owner-company", flashes)
}
