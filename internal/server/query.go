package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/docq-ai/docq-go/internal/agent"
	"github.com/docq-ai/docq-go/internal/logging"
)

// handleQuery handles POST /api/query. It runs a full agent query
// (retrieve, prompt, generate, record) and returns the outcome as JSON.
// The agent itself never fails a request; only malformed input produces
// a non-200 response.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.queryRequestsTotal.WithLabelValues("unknown", "invalid").Inc()
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.metrics.queryRequestsTotal.WithLabelValues("unknown", "invalid").Inc()
		writeError(ctx, w, http.StatusBadRequest, "query is required")
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		s.metrics.queryRequestsTotal.WithLabelValues("unknown", "invalid").Inc()
		writeError(ctx, w, http.StatusBadRequest, "user_id must be a valid UUID")
		return
	}

	mode := agent.ParseMode(req.Mode)

	s.metrics.queryActive.Inc()
	start := time.Now()
	outcome := s.deps.Agent.Run(ctx, req.UserID, req.Query, mode, req.DocumentIDs)
	elapsed := time.Since(start)
	s.metrics.queryActive.Dec()

	s.metrics.queryRequestsTotal.WithLabelValues(string(outcome.Mode), "ok").Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(string(outcome.Mode)).Observe(elapsed.Seconds())

	log.Info("query completed",
		slog.String("mode", string(outcome.Mode)),
		slog.Int("sources", len(outcome.Sources)),
		slog.Float64("latency_ms", outcome.LatencyMS),
	)

	writeJSON(ctx, w, http.StatusOK, outcome)
}
