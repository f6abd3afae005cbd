package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// readinessTimeout bounds a single readiness check.
const readinessTimeout = 5 * time.Second

// Check is a named readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Server provides HTTP endpoints for observability.
type Server struct {
	server *http.Server
	addr   string
	checks []Check
}

// NewServer creates a new observability HTTP server exposing metrics from
// gatherer and the given readiness checks.
func NewServer(addr string, gatherer prometheus.Gatherer, checks ...Check) *Server {
	s := &Server{addr: addr, checks: checks}

	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", s.readyz)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the server's handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Ready runs every readiness check and returns per-check results.
func Ready(ctx context.Context, checks []Check) (map[string]string, bool) {
	results := make(map[string]string, len(checks))
	ok := true
	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := c.Probe(cctx)
		cancel()
		if err != nil {
			results[c.Name] = "fail: " + err.Error()
			ok = false
			continue
		}
		results[c.Name] = "ok"
	}
	return results, ok
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	results, ok := Ready(r.Context(), s.checks)
	status := http.StatusOK
	body := map[string]any{"status": "ready", "checks": results}
	if !ok {
		status = http.StatusServiceUnavailable
		body["status"] = "not ready"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("Starting observability HTTP server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Observability HTTP server error")
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down observability HTTP server")
	return s.server.Shutdown(ctx)
}
