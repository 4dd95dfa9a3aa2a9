package http

import (
	"context"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"szamlazo/internal/core"
	"szamlazo/internal/log"
	"szamlazo/internal/middleware/ratelimit"
	"szamlazo/internal/middleware/security"
	"szamlazo/internal/middleware/trace"
	"szamlazo/internal/services"
	appweb "szamlazo/web"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies wires the services the handlers call.
type Dependencies struct {
	Invoices       *services.InvoiceService
	Companies      *services.CompanyService
	Owner          *services.OwnerService
	Statistics     *services.StatisticsService
	DB             Pinger
	MaxUploadBytes int64
	// ImportRateLimit caps CSV imports per client and minute; zero uses the default.
	ImportRateLimit int
	Logger          *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template

	invoices   *services.InvoiceService
	companies  *services.CompanyService
	owner      *services.OwnerService
	statistics *services.StatisticsService
	db         Pinger

	maxUploadBytes  int64
	logger          *log.Logger
	traceMiddleware *trace.Middleware
	importLimiter   *ratelimit.Limiter
	startedAt       time.Time
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	s := &Server{
		invoices:        deps.Invoices,
		companies:       deps.Companies,
		owner:           deps.Owner,
		statistics:      deps.Statistics,
		db:              deps.DB,
		maxUploadBytes:  maxUpload,
		logger:          logger.WithComponent(log.ComponentHTTP),
		traceMiddleware: trace.NewMiddleware(clientIP),
		importLimiter:   ratelimit.NewLimiter(ratelimit.Config{Requests: deps.ImportRateLimit, Period: time.Minute}),
		startedAt:       time.Now(),
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates",
			log.FieldError, err,
			log.FieldComponent, log.ComponentTemplate)
	} else {
		s.templates = t
	}

	r := mux.NewRouter()
	r.Use(log.Middleware(s.logger))
	r.Use(s.traceMiddleware.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError("GET, POST").Write(w)
	})

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static)).Methods(http.MethodGet, http.MethodHead)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	page := func(path string, h http.Handler, methods ...string) {
		r.Handle(path, security.NoStore(h)).Methods(methods...)
	}
	limitImports := s.importLimiter.Middleware(clientIP, s.handleImportLimited, http.MethodPost)
	page("/", http.HandlerFunc(s.handleIndex), http.MethodGet)

	page("/invoices", http.HandlerFunc(s.handleInvoiceList), http.MethodGet)
	page("/invoices/new", http.HandlerFunc(s.handleInvoiceNew), http.MethodGet, http.MethodPost)
	page("/invoices/{id:[0-9]+}/edit", http.HandlerFunc(s.handleInvoiceEdit), http.MethodGet, http.MethodPost)
	page("/invoices/{id:[0-9]+}/delete", http.HandlerFunc(s.handleInvoiceDelete), http.MethodPost)
	page("/invoices/{id:[0-9]+}/pdf", http.HandlerFunc(s.handleInvoicePDF), http.MethodGet)

	page("/companies", http.HandlerFunc(s.handleCompanyList), http.MethodGet)
	page("/companies/new", http.HandlerFunc(s.handleCompanyNew), http.MethodGet, http.MethodPost)
	page("/companies/import", limitImports(http.HandlerFunc(s.handleCompanyImport)), http.MethodGet, http.MethodPost)
	page("/companies/export", http.HandlerFunc(s.handleCompanyExport), http.MethodGet)
	page("/companies/{id:[0-9]+}/edit", http.HandlerFunc(s.handleCompanyEdit), http.MethodGet, http.MethodPost)
	page("/companies/{id:[0-9]+}/delete", http.HandlerFunc(s.handleCompanyDelete), http.MethodPost)

	page("/owner-company", http.HandlerFunc(s.handleOwnerCompany), http.MethodGet, http.MethodPost)
	page("/statistics", http.HandlerFunc(s.handleStatistics), http.MethodGet)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.RegisterOnShutdown(s.importLimiter.Stop)
	return s
}

// Metrics exposes the request counters of the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.traceMiddleware.GetMetrics()
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatAmount": core.FormatAmount,
		"formatMoney":  core.FormatMoney,
		"barWidth":     barWidth,
		"add":          func(a, b int) int { return a + b },
	}
}

// clientIP prefers proxy headers; the server normally listens on loopback.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
