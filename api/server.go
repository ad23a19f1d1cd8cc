// Package api exposes the reconciliation engine over HTTP.
// It can be started from the CLI or mounted into another server via Handler.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/aqlanhadi/rentrecon/extractor"
	"github.com/aqlanhadi/rentrecon/integrations/xlsx"
	"github.com/aqlanhadi/rentrecon/reconcile"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Config holds the API server configuration
type Config struct {
	Port string
	// MaxUploadMemory is the multipart memory limit in bytes.
	MaxUploadMemory int64
	// Options is the base every request's options are applied onto.
	Options reconcile.Options
}

// DefaultConfig returns the default API configuration
func DefaultConfig() Config {
	return Config{
		Port:            ":8080",
		MaxUploadMemory: 32 << 20,
		Options:         reconcile.DefaultOptions(),
	}
}

// Server represents the HTTP API server
type Server struct {
	config Config
	router chi.Router
}

// New creates a new API server with the given configuration
func New(cfg Config) *Server {
	if cfg.MaxUploadMemory <= 0 {
		cfg.MaxUploadMemory = 32 << 20
	}
	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(requestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Post("/reconcile", s.handleReconcile)
	s.router.Route("/extract", func(r chi.Router) {
		r.Post("/ledger", s.handleExtractLedger)
		r.Post("/report", s.handleExtractReport)
	})
}

// Handler returns the http.Handler for the server
// This allows the server to be used with custom http.Server configurations
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server (blocking)
func (s *Server) Start() error {
	log.WithField("port", s.config.Port).Info("starting server")
	return http.ListenAndServe(s.config.Port, s.router)
}

const requestIDHeader = "X-Request-ID"

// requestID tags every request with an id, reusing one the caller sent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func logger(r *http.Request) *log.Entry {
	return log.WithFields(log.Fields{
		"request_id": r.Header.Get(requestIDHeader),
		"remote":     r.RemoteAddr,
		"path":       r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	entry := logger(r)
	entry.Info("received reconcile request")

	if err := r.ParseMultipartForm(s.config.MaxUploadMemory); err != nil {
		entry.Warnf("error parsing multipart form: %v", err)
		writeError(w, http.StatusBadRequest, "could not parse multipart form: "+err.Error())
		return
	}

	req, err := parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := req.Apply(s.config.Options)
	if err != nil {
		var invalid *reconcile.InvalidRequestError
		if errors.As(err, &invalid) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":  "invalid request",
				"fields": invalid.Fields,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reportFile, reportHeader, err := r.FormFile("report")
	if err != nil {
		writeError(w, http.StatusBadRequest, "report file is required: "+err.Error())
		return
	}
	defer reportFile.Close()

	rows, err := extractor.ReportRows(reportFile, reportHeader.Filename)
	if err != nil {
		entry.Warnf("error reading report: %v", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	in := reconcile.Input{ReportSource: reportHeader.Filename, ReportRows: rows}
	ledgerFile, ledgerHeader, err := r.FormFile("ledger")
	switch {
	case err == nil:
		defer ledgerFile.Close()
		in.Ledger = ledgerFile
		in.LedgerSource = ledgerHeader.Filename
	case errors.Is(err, http.ErrMissingFile):
		entry.Info("no ledger uploaded, reconciling report alone")
	default:
		writeError(w, http.StatusBadRequest, "could not read ledger file: "+err.Error())
		return
	}

	result, err := reconcile.Run(in, opts)
	if err != nil {
		entry.Errorf("reconcile failed: %v", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	entry.WithFields(log.Fields{
		"records":   len(result.Records),
		"unmatched": result.Diagnostics.UnmatchedReport,
	}).Info("reconciled")

	if req.Format == "xlsx" {
		w.Header().Set("Content-Type", xlsx.ContentType)
		w.Header().Set("Content-Disposition", "attachment; filename=reconciliation.xlsx")
		if err := xlsx.Write(w, result); err != nil {
			entry.Errorf("failed to write workbook: %v", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, reconcile.Output(result, req.RecordsOnly, req.SummaryOnly))
}

func (s *Server) handleExtractLedger(w http.ResponseWriter, r *http.Request) {
	entry := logger(r)

	file, header, ok := s.upload(w, r, "file")
	if !ok {
		return
	}
	defer file.Close()

	req, err := parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := req.Apply(s.config.Options)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := extractor.ProcessLedger(file, header.Filename, opts.Ledger, opts.Filter)
	if err != nil {
		entry.Errorf("ledger parse failed: %v", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExtractReport(w http.ResponseWriter, r *http.Request) {
	entry := logger(r)

	file, header, ok := s.upload(w, r, "file")
	if !ok {
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		entry.Errorf("error reading file bytes: %v", err)
		writeError(w, http.StatusInternalServerError, "could not read file: "+err.Error())
		return
	}

	if flag(r, "text_only") {
		rows, err := extractor.ReportRows(bytes.NewReader(fileBytes), header.Filename)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not extract text from file: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"filename": header.Filename,
			"text":     strings.Join(rows, "\n"),
		})
		return
	}

	result, err := extractor.ProcessReport(bytes.NewReader(fileBytes), header.Filename, s.config.Options.Report)
	if err != nil {
		entry.Errorf("report extraction failed: %v", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, bool) {
	if err := r.ParseMultipartForm(s.config.MaxUploadMemory); err != nil {
		logger(r).Warnf("error parsing multipart form: %v", err)
		writeError(w, http.StatusBadRequest, "could not parse multipart form: "+err.Error())
		return nil, nil, false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not get uploaded file: "+err.Error())
		return nil, nil, false
	}
	return file, header, true
}

// parseRequest reads the run options from form values, falling back to the
// query string.
func parseRequest(r *http.Request) (reconcile.Request, error) {
	req := reconcile.Request{
		Start:               value(r, "start"),
		End:                 value(r, "end"),
		PreferLedgerRevenue: flag(r, "prefer_ledger_revenue"),
		Health:              flag(r, "health"),
		RecordsOnly:         flag(r, "records_only"),
		SummaryOnly:         flag(r, "summary_only"),
		Format:              value(r, "format"),
	}
	if days := value(r, "days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil {
			return req, errors.New("days must be a whole number")
		}
		req.Days = n
	}
	return req, nil
}

func value(r *http.Request, key string) string {
	return coalesce(r.FormValue(key), r.URL.Query().Get(key))
}

func flag(r *http.Request, key string) bool {
	return value(r, key) == "true"
}

// coalesce returns the first non-empty string
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
