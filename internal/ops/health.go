// Package ops serves the operational HTTP endpoints for the scheduling
// service: a liveness probe and a readiness probe over the service's critical
// dependencies. The application API lives in a separate service; nothing here
// is exposed to end users.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// probeTimeout is the maximum time allowed for all readiness probes to
// complete. A probe exceeding the deadline marks the service unready.
const probeTimeout = 2 * time.Second

// HealthProbe is one subsystem readiness check. Each probe covers a critical
// dependency (database, push channel) and must respect the context deadline.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// ProbeFunc adapts a named function to the HealthProbe interface.
type ProbeFunc struct {
	ProbeName string
	Fn        func(ctx context.Context) error
}

func (p ProbeFunc) Name() string                    { return p.ProbeName }
func (p ProbeFunc) Check(ctx context.Context) error { return p.Fn(ctx) }

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// Server is the operational HTTP listener.
type Server struct {
	probes []HealthProbe
	logger *slog.Logger
}

// NewServer creates the ops server over the given readiness probes.
func NewServer(probes []HealthProbe, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{probes: probes, logger: logger}
}

// Router builds the chi router for the ops listener.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.HandleLiveness)
	r.Get("/readyz", s.HandleReadiness)

	return r
}

// HandleLiveness reports that the process is up. It never touches
// dependencies; a wedged database must not make the orchestrator restart a
// process that is otherwise draining cleanly.
func (s *Server) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

// HandleReadiness executes every registered probe concurrently under a short
// deadline. Returns 200 when all probes pass, 503 when any fails or times
// out, with per-component detail either way.
func (s *Server) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	if len(s.probes) == 0 {
		writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	type probeResult struct {
		name string
		err  error
	}

	var (
		mu      sync.Mutex
		results = make(map[string]probeResult, len(s.probes))
		wg      sync.WaitGroup
	)

	for _, probe := range s.probes {
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()

			var err error
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						err = fmt.Errorf("probe panicked: %v", rec)
					}
				}()
				err = p.Check(ctx)
			}()

			mu.Lock()
			results[p.Name()] = probeResult{name: p.Name(), err: err}
			mu.Unlock()
		}(probe)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Deadline hit; probes still missing from results are reported as
		// timed out below.
	}

	mu.Lock()
	collected := make(map[string]probeResult, len(results))
	for k, v := range results {
		collected[k] = v
	}
	mu.Unlock()

	components := make(map[string]componentStatus, len(s.probes))
	allHealthy := true

	for _, probe := range s.probes {
		name := probe.Name()
		result, ok := collected[name]
		switch {
		case !ok:
			allHealthy = false
			components[name] = componentStatus{Status: "unhealthy", Message: "health check timed out"}
		case result.err != nil:
			allHealthy = false
			components[name] = componentStatus{Status: "unhealthy", Message: result.err.Error()}
		default:
			components[name] = componentStatus{Status: "healthy"}
		}
	}

	resp := healthResponse{Components: components}
	if allHealthy {
		resp.Status = "healthy"
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Status = "unhealthy"
	writeJSON(w, http.StatusServiceUnavailable, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
