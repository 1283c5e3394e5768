package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/xapikatchu/xapikatchu/internal/ingester"
	"github.com/xapikatchu/xapikatchu/internal/storage"
	"github.com/xapikatchu/xapikatchu/pkg/types"
)

// Server exposes the ingestion and reporting endpoints.
type Server struct {
	storage  storage.Storage
	ingester *ingester.Ingester
	log      *zap.Logger
}

// NewServer creates an HTTP server over the given storage and ingester.
func NewServer(store storage.Storage, ing *ingester.Ingester, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{storage: store, ingester: ing, log: log}
}

// Handler returns the fully wired handler: routes plus request-id and
// logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return RequestID(Locale(RequestLogger(s.log)(mux)))
}

// Register attaches the routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/statements", s.handleStatements)       // POST ingest, GET report
	mux.HandleFunc("/columns", s.handleColumns)             // GET
	mux.HandleFunc("/content-types", s.handleContentTypes)  // GET
	mux.HandleFunc("/healthz", s.handleHealthz)             // GET
}

// POST /statements — ingest one xAPI statement; GET /statements — full report
func (s *Server) handleStatements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleIngest(w, r)
	case http.MethodGet:
		s.handleReport(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	payload := []byte(r.FormValue("xapi"))
	if len(payload) == 0 {
		// JSON clients send {"xapi": <statement or string>}
		var body struct {
			XAPI json.RawMessage `json:"xapi"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			payload = body.XAPI
		}
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "xapi field required")
		return
	}

	err := s.ingester.IngestLocale(r.Context(), payload, LocaleFromContext(r.Context()))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, types.ErrMalformedStatement):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		// Telemetry failure stays opaque to the learner; details are in the
		// operator log
		writeError(w, http.StatusInternalServerError, "ingestion failed")
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	rows, err := s.storage.CompleteTable(r.Context(), limit)
	if err != nil {
		s.log.Error("report query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "report query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"statements": rows})
}

// GET /columns — ordered user-facing column names
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": s.storage.ColumnTitles()})
}

// GET /content-types — external catalog listing, empty when absent
func (s *Server) handleContentTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cts, err := s.storage.ContentTypes(r.Context())
	if err != nil {
		s.log.Error("content type query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "content type query failed")
		return
	}
	if cts == nil {
		cts = []storage.ContentType{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"content_types": cts})
}

// GET /healthz
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
