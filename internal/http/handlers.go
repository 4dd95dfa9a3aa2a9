package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"szamlazo/internal/core"
	"szamlazo/internal/log"
	"szamlazo/internal/middleware/trace"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	m := s.Metrics()
	NewResponse().BodyJSON(map[string]any{
		"status":        "ok",
		"timestamp":     time.Now().Format(time.RFC3339),
		"uptime":        time.Since(s.startedAt).Round(time.Second).String(),
		"requests":      m.TotalRequests,
		"server_errors": m.ServerErrors,
	}).Write(w)
}

// handleReady checks templates and the database.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.db == nil:
		checks["database"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	default:
		if err := s.db.Ping(ctx); err != nil {
			checks["database"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	NewResponse().Status(httpStatus).BodyJSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/invoices", http.StatusFound)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "A keresett oldal nem található.")
}

// render executes a page template into a buffer so a failing template never
// leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.LogError(r.Context(), "Template execution failed", err,
			log.ComponentTemplate, log.OpRender, log.ErrorTypeInternal,
			log.LogFields{"template": name})
		InternalServerError("Hiba történt az oldal megjelenítése közben.").Write(w)
		return
	}
	NewResponse().
		Status(status).
		Header("Content-Type", "text/html; charset=utf-8").
		Body(buf.Bytes()).
		Write(w)
}

type errorPage struct {
	page
	Status    int
	Message   string
	RequestID string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if s.templates == nil {
		ErrorResponse(status, message).Write(w)
		return
	}
	s.render(w, r, status, "error.html", errorPage{
		page:      page{Title: http.StatusText(status)},
		Status:    status,
		Message:   message,
		RequestID: trace.GetRequestID(r.Context()),
	})
}

// renderLoadError answers a failed lookup: 404 for missing records, 500 otherwise.
func (s *Server) renderLoadError(w http.ResponseWriter, r *http.Request, err error, component, notFoundMsg string) {
	if errors.Is(err, core.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, notFoundMsg)
		return
	}
	log.LogError(r.Context(), "Lookup failed", err, component, log.OpRead, log.ErrorTypeDatabase, nil)
	s.renderError(w, r, http.StatusInternalServerError, "Hiba történt az adatok betöltése közben.")
}
