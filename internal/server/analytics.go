package server

import (
	"log/slog"
	"net/http"

	"github.com/docq-ai/docq-go/internal/logging"
)

// recentQueryCount is the number of recent query texts included in the
// analytics overview.
const recentQueryCount = 10

// handleAnalyticsOverview handles GET /api/analytics/overview?user_id=<uuid>.
// Returns aggregate query statistics for the user plus their most recent
// query texts. When analytics is disabled the endpoint returns 404.
func (s *Server) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.deps.Analytics == nil {
		writeError(ctx, w, http.StatusNotFound, "analytics is disabled")
		return
	}

	userID, ok := s.userIDFromQuery(w, r)
	if !ok {
		return
	}

	overview, err := s.deps.Analytics.UserOverview(ctx, userID.String())
	if err != nil {
		logging.FromContext(ctx).Error("analytics overview failed", slog.Any("error", err))
		writeError(ctx, w, http.StatusInternalServerError, "failed to read analytics")
		return
	}

	recent, err := s.deps.Analytics.RecentQueries(ctx, userID.String(), recentQueryCount)
	if err != nil {
		logging.FromContext(ctx).Error("recent queries failed", slog.Any("error", err))
		writeError(ctx, w, http.StatusInternalServerError, "failed to read analytics")
		return
	}

	writeJSON(ctx, w, http.StatusOK, analyticsOverviewResponse{
		Overview:      overview,
		RecentQueries: recent,
	})
}
