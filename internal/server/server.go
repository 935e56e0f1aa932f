// Package server exposes the inspector registry over HTTP. All state lives
// in the registry; handlers only translate between HTTP and the core.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mkoline/schemascope/internal/errs"
	"github.com/mkoline/schemascope/internal/inspect"
	"github.com/mkoline/schemascope/internal/render"
	"github.com/mkoline/schemascope/internal/schema"
	"github.com/mkoline/schemascope/internal/snapshot"
)

// Server wires the inspector registry and the optional snapshot store into
// an HTTP handler.
type Server struct {
	registry *inspect.Registry
	snaps    snapshot.Store // nil when snapshots are disabled
	log      zerolog.Logger
}

// New returns a Server. snaps may be nil.
func New(registry *inspect.Registry, snaps snapshot.Store, log zerolog.Logger) *Server {
	return &Server{registry: registry, snaps: snaps, log: log}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Post("/connect", s.handleConnect)
		r.Get("/schema", s.handleSchema)
		r.Post("/schema/snapshot", s.handleSnapshot)
		r.Get("/tables/{table}", s.handleTable)
		r.Delete("/", s.handleClear)
	})

	return r
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var cfg schema.Config
	if err := json.Unmarshal(body, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Password is excluded from Config's JSON output, so it is picked out
	// of the request body separately.
	var creds struct {
		Password string `json:"password"`
	}
	_ = json.Unmarshal(body, &creds)
	cfg.Password = creds.Password

	insp := s.registry.Get(chi.URLParam(r, "projectID"))
	res := insp.Connect(r.Context(), cfg)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	insp := s.registry.Get(chi.URLParam(r, "projectID"))

	force := r.URL.Query().Get("refresh") == "true"
	info, err := insp.GetSchema(r.Context(), force)
	if err != nil {
		writeErr(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, info)
		return
	}
	writeText(w, render.Schema(info, insp.TTL(), time.Now()))
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	insp := s.registry.Get(chi.URLParam(r, "projectID"))

	showSample := r.URL.Query().Get("sample") == "true"
	out, err := insp.TableDetails(r.Context(), chi.URLParam(r, "table"), showSample)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeText(w, out)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snaps == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	projectID := chi.URLParam(r, "projectID")
	insp := s.registry.Get(projectID)

	info, err := insp.GetSchema(r.Context(), false)
	if err != nil {
		writeErr(w, err)
		return
	}

	snap := &snapshot.Snapshot{
		Project:  projectID,
		TakenAt:  time.Now().UTC(),
		Rendered: render.Schema(info, insp.TTL(), time.Now()),
		Schema:   info,
	}

	key, err := s.snaps.Save(r.Context(), snap)
	if err != nil {
		s.log.Error().Err(err).Str("project", projectID).Msg("snapshot save failed")
		writeError(w, http.StatusBadGateway, "failed to store snapshot")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.registry.Clear(chi.URLParam(r, "projectID"))
	w.WriteHeader(http.StatusNoContent)
}

// requestLogger logs one line per request with method, path, status, and
// duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// errorLimit caps error messages surfaced to clients. Wrapped fetch errors
// can carry a long driver-internal cause chain; clients get at most this
// much of it.
const errorLimit = 100

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": truncate(msg, errorLimit)})
}

// writeErr maps the error taxonomy onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errs.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errs.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errs.IsConnection(err):
		writeError(w, http.StatusConflict, err.Error())
	case errs.IsFetch(err), errs.IsTimeout(err):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
