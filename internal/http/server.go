package http

import (
	"context"
	"net/http"
	"sync"

	"hearth/internal/middleware/trace"
	"hearth/internal/services"
)

// Server exposes the budget API over JSON.
type Server struct {
	http.Server
	budget        *services.BudgetService
	rollover      *services.RolloverDriver
	rolloverToken string
	trace         *trace.Middleware
	shutdownOnce  sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// rolloverToken guards the internal rollover trigger; when empty, the
// endpoint is disabled.
func NewServer(addr string, budget *services.BudgetService, rollover *services.RolloverDriver, rolloverToken string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		budget:        budget,
		rollover:      rollover,
		rolloverToken: rolloverToken,
		trace:         trace.NewMiddleware(extractClientIP),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/budget/items", s.handleItems)
	mux.HandleFunc("/api/budget/draft", s.handleDraft)
	mux.HandleFunc("/api/budget/summary", s.handleSummary)
	mux.HandleFunc("/internal/rollover", s.handleRollover)

	s.Server = http.Server{
		Addr:    addr,
		Handler: s.trace.Middleware(mux),
	}

	return s
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady doubles as a lightweight status endpoint: readiness plus the
// request counters the trace middleware accumulates.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	metrics := s.trace.GetMetrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "ready",
		"total_requests":      metrics.TotalRequests,
		"avg_response_micros": metrics.AverageResponseTime,
	})
}
