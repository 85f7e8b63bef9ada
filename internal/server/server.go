// Package server exposes the scan engine over an HTTP API.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/DatLens/internal/config"
	"github.com/koustreak/DatLens/internal/errs"
	"github.com/koustreak/DatLens/internal/introspect"
	"github.com/koustreak/DatLens/internal/logger"
	"github.com/koustreak/DatLens/internal/reportstore"
	"github.com/koustreak/DatLens/internal/source"
	"github.com/koustreak/DatLens/internal/target"
)

// ConnectFunc opens a metadata source for a configured target. It exists
// so tests can substitute a fake source.
type ConnectFunc func(ctx context.Context, t *config.Target) (source.Source, introspect.Engine, error)

// Server routes HTTP requests to the scan engine and the report store.
type Server struct {
	cfg     *config.Config
	store   reportstore.Store
	log     *logger.Logger
	connect ConnectFunc
	router  chi.Router
}

// New builds a Server over the given configuration and report store.
func New(cfg *config.Config, store reportstore.Store, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New(nil)
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		log:     log,
		connect: target.Connect,
	}
	s.router = s.routes()
	return s
}

// SetConnectFunc overrides how targets are connected. Used by tests.
func (s *Server) SetConnectFunc(fn ConnectFunc) {
	s.connect = fn
}

// Handler returns the HTTP handler tree.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the HTTP server until the listener fails.
func (s *Server) ListenAndServe() error {
	s.log.Infof("http server listening on %s", s.cfg.Server.Addr)
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/targets", s.handleTargets)
		r.Post("/scan/{target}", s.handleScan)
		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{key}", s.handleGetReport)
		r.Post("/query/{target}", s.handleQuery)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("duration", time.Since(start).String()).
			Logger().
			Info("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	type item struct {
		Name     string `json:"name"`
		Engine   string `json:"engine"`
		Database string `json:"database"`
	}
	out := make([]item, 0, len(s.cfg.Targets))
	for _, t := range s.cfg.Targets {
		out = append(out, item{Name: t.Name, Engine: t.Engine, Database: t.Database})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	t, err := s.cfg.Target(chi.URLParam(r, "target"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	src, engine, err := s.connect(ctx, t)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer src.Close()

	scanner, err := introspect.NewScanner(engine, src, s.log)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := scanner.Scan(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.store != nil {
		data, err := report.MarshalIndent()
		if err != nil {
			s.writeError(w, err)
			return
		}
		key := reportstore.Key(string(engine), src.DatabaseName())
		if err := s.store.Put(ctx, key, data); err != nil {
			s.log.Warnf("could not persist report %s: %v", key, err)
		}
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "no report store configured"))
		return
	}
	infos, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "no report store configured"))
		return
	}
	data, err := s.store.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	t, err := s.cfg.Target(chi.URLParam(r, "target"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req struct {
		SQL  string `json:"sql"`
		Args []any  `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "decode request body", err))
		return
	}
	if err := checkReadOnly(req.SQL); err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	src, _, err := s.connect(ctx, t)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer src.Close()

	rows, err := src.Query(ctx, req.SQL, req.Args...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	records, err := source.ScanRows(rows)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":  records,
		"count": len(records),
	})
}

// checkReadOnly rejects statements that could mutate the target.
func checkReadOnly(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return errs.New(errs.ErrKindInvalidInput, "sql is required")
	}
	first := strings.ToUpper(strings.Fields(trimmed)[0])
	switch first {
	case "SELECT", "SHOW", "EXPLAIN", "DESCRIBE", "DESC", "WITH":
		return nil
	}
	return errs.Newf(errs.ErrKindInvalidInput, "statement %s is not allowed, queries must be read-only", first)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsInvalidInput(err):
		status = http.StatusBadRequest
	case errs.IsPermissionDenied(err):
		status = http.StatusForbidden
	case errs.IsTimeout(err):
		status = http.StatusGatewayTimeout
	case errs.IsConnectionFailed(err):
		status = http.StatusBadGateway
	case errs.IsQueryFailed(err):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Errorf("request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
