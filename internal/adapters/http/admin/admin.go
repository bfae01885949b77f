// Package admin serves the engine's operational surface: liveness and
// Prometheus metrics. It exposes no engine operations.
package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/skillswap/pkg/metrics"
)

// ReadinessFunc reports whether the engine can take work.
type ReadinessFunc func(ctx context.Context) error

// Server wires the admin routes.
type Server struct {
	health  *HealthHandler
	metrics http.Handler
}

// NewServer creates the admin server. A nil ready func always reports ok.
func NewServer(ready ReadinessFunc) *Server {
	return &Server{
		health:  NewHealthHandler(ready),
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// Register attaches the admin routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.metrics.ServeHTTP, "metrics"))
}

// Handler returns a mux carrying only the admin routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
