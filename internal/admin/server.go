// Package admin serves the fetch pipeline over HTTP for local tooling:
// fetch, query preview, health and Prometheus metrics.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tlmscope/internal/fetch"
	"tlmscope/internal/logging"
	"tlmscope/internal/observability"
	"tlmscope/internal/query"
	"tlmscope/internal/telemetry"
)

// Fetcher is satisfied by *fetch.Orchestrator.
type Fetcher interface {
	Get(ctx context.Context, req telemetry.Request) telemetry.Response
}

type Server struct {
	Fetcher Fetcher
	Builder *query.Builder
	Metrics *observability.Collector
	Log     *slog.Logger
}

func NewServer(f Fetcher, b *query.Builder, metrics *observability.Collector, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{Fetcher: f, Builder: b, Metrics: metrics, Log: log}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /fetch", s.handleFetch)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}
	return mux
}

// Start serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger().Info("admin server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (telemetry.Request, bool) {
	var req telemetry.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return req, false
	}
	return req, true
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	id := uuid.NewString()
	log := s.logger().With("request_id", id)
	log.Info("fetch requested", "project", req.Project, "orbit", req.IsOrbit)
	ctx := logging.NewContext(r.Context(), log)
	if r.URL.Query().Get("refresh") == "true" {
		ctx = fetch.WithRefresh(ctx)
	}
	w.Header().Set("X-Request-Id", id)
	s.writeJSON(w, http.StatusOK, s.Fetcher.Get(ctx, req))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	b := s.Builder
	if b == nil {
		b = query.NewBuilder(query.BigQuery{})
	}
	q, err := b.Build(req.OrbitDatasetPath, req)
	if err != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"query": q})
}

func (s *Server) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON reports a value that cannot be encoded as a 500.
func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger().Error("encode response failed", "error", err)
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.logger().Warn("write response failed", "error", err)
	}
}
