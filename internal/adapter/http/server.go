package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/snowpack-climatology/internal/domain"
	"github.com/couchcryptid/snowpack-climatology/internal/export"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TableSource supplies the most recently computed table.
type TableSource interface {
	Latest() (domain.WaterYearTable, bool)
}

// Server exposes health, readiness, metrics, and the latest water-year table.
type Server struct {
	httpServer *http.Server
	tables     TableSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1/climatology routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, tables TableSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		tables: tables,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/climatology", s.handleTableJSON)
	mux.HandleFunc("GET /api/v1/climatology.csv", s.handleTableCSV)

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

func (s *Server) handleTableJSON(w http.ResponseWriter, _ *http.Request) {
	table, ok := s.tables.Latest()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no climatology table computed yet"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, table)
}

func (s *Server) handleTableCSV(w http.ResponseWriter, _ *http.Request) {
	table, ok := s.tables.Latest()
	if !ok {
		http.Error(w, "no climatology table computed yet", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, table); err != nil {
		s.logger.Error("render csv failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("wy%d.csv", table.WaterYear)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
