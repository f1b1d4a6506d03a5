package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ResultStore looks up recorded analysis results. Get returns
// domain.ErrNotFound for unknown IDs.
type ResultStore interface {
	Get(ctx context.Context, id string) (domain.AnalysisResult, error)
	List(ctx context.Context, limit int) ([]domain.AnalysisResult, error)
}

// Server exposes health, readiness, metrics, and analysis history endpoints.
type Server struct {
	httpServer *http.Server
	store      ResultStore
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics routes.
// When store is non-nil it also serves /analyses and /analyses/{id}.
func NewServer(addr string, ready sharedobs.ReadinessChecker, store ResultStore, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:  store,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if store != nil {
		mux.HandleFunc("GET /analyses", s.handleList)
		mux.HandleFunc("GET /analyses/{id}", s.handleGet)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// analysisResponse adds the derived percentages to a stored result.
type analysisResponse struct {
	domain.AnalysisResult
	Percentages domain.Percentages `json:"percentages"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := s.store.Get(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": err.Error(), "id": id})
		return
	}
	if err != nil {
		s.logger.Error("load analysis failed", "analysis_id", id, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, analysisResponse{AnalysisResult: result, Percentages: result.Percentages()})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be 1-500"})
			return
		}
		limit = n
	}
	results, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list analyses failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	out := make([]analysisResponse, len(results))
	for i, res := range results {
		out[i] = analysisResponse{AnalysisResult: res, Percentages: res.Percentages()}
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}
