package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
	"github.com/couchcryptid/vaccine-data-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DatasetSource returns the latest processed dataset.
type DatasetSource interface {
	Load() *pipeline.Dataset
}

// Server exposes health, metrics, and read-only JSON endpoints over the
// latest dataset.
type Server struct {
	httpServer *http.Server
	data       DatasetSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /v1 data routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, data DatasetSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		data:   data,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/nation", s.handleNation)
	mux.HandleFunc("GET /v1/states", s.handleStates)
	mux.HandleFunc("GET /v1/states/{state}", s.handleState)
	mux.HandleFunc("GET /v1/districts", s.handleDistricts)
	mux.HandleFunc("GET /v1/coverage", s.handleCoverage)

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

type statusResponse struct {
	Ready    bool                `json:"ready"`
	District pipeline.FeedStatus `json:"district"`
	State    pipeline.FeedStatus `json:"state"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	ds := s.data.Load()
	writeJSON(w, http.StatusOK, statusResponse{
		Ready:    ds.Ready(),
		District: ds.DistrictStatus,
		State:    ds.StateStatus,
	})
}

func (s *Server) handleNation(w http.ResponseWriter, _ *http.Request) {
	feed, ok := s.stateFeed(w)
	if !ok {
		return
	}
	if feed.Nation == nil {
		writeError(w, http.StatusNotFound, "nation series not available")
		return
	}
	writeJSON(w, http.StatusOK, feed.Nation)
}

func (s *Server) handleStates(w http.ResponseWriter, _ *http.Request) {
	feed, ok := s.stateFeed(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, feed.States)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	feed, ok := s.stateFeed(w)
	if !ok {
		return
	}
	want := domain.NormalizeName(r.PathValue("state"))
	for i := range feed.States {
		if domain.NormalizeName(feed.States[i].Region) == want {
			writeJSON(w, http.StatusOK, &feed.States[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown state "+r.PathValue("state"))
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	feed := s.data.Load().District
	if feed == nil {
		writeError(w, http.StatusServiceUnavailable, "district feed not loaded")
		return
	}
	state := r.URL.Query().Get("state")
	if state == "" {
		writeJSON(w, http.StatusOK, feed.Districts)
		return
	}
	want := domain.NormalizeName(state)
	out := []domain.DistrictSeries{}
	for _, d := range feed.Districts {
		if domain.NormalizeName(d.Key.State) == want {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	coverage := s.data.Load().Coverage
	state := r.URL.Query().Get("state")
	if state == "" {
		if coverage == nil {
			coverage = []domain.Coverage{}
		}
		writeJSON(w, http.StatusOK, coverage)
		return
	}
	want := domain.NormalizeName(state)
	out := []domain.Coverage{}
	for _, c := range coverage {
		// District entries carry their state; state entries are their own.
		name := c.State
		if name == "" {
			name = c.Entity
		}
		if domain.NormalizeName(name) == want {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) stateFeed(w http.ResponseWriter) (*domain.StateFeed, bool) {
	feed := s.data.Load().State
	if feed == nil {
		writeError(w, http.StatusServiceUnavailable, "state feed not loaded")
		return nil, false
	}
	return feed, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
