package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/citizen-feed-service/internal/domain"
	"github.com/couchcryptid/citizen-feed-service/internal/geojson"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// SnapshotProvider returns the last published incident snapshot, or nil
// before the first successful tick.
type SnapshotProvider interface {
	Snapshot() *domain.Snapshot
}

// Server exposes health, readiness, metrics, and GeoJSON HTTP endpoints.
type Server struct {
	httpServer *http.Server
	snapshots  SnapshotProvider
	center     domain.Geo
	radiusKm   float64
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /incidents.geojson, and /health routes.
func NewServer(addr string, ready ReadinessChecker, snapshots SnapshotProvider, center domain.Geo, radiusKm float64, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		snapshots: snapshots,
		center:    center,
		radiusKm:  radiusKm,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /incidents.geojson", s.handleGeoJSON)
	mux.HandleFunc("GET /health", s.handleHealth)

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

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleGeoJSON serves the last published snapshot. Before the first
// successful fetch it serves an empty collection, not an error.
func (s *Server) handleGeoJSON(w http.ResponseWriter, _ *http.Request) {
	fc := geojson.FromSnapshot(s.snapshots.Snapshot())
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusOK, fc)
}

// handleHealth serves the status payload in the shape the standalone GeoJSON
// server exposed, for dashboard compatibility.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	features := 0
	if snap := s.snapshots.Snapshot(); snap != nil {
		features = len(snap.Incidents)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"features":  features,
		"center":    [2]float64{s.center.Lat, s.center.Lon},
		"radius_km": s.radiusKm,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
