package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/docq-ai/docq-go/internal/index"
	"github.com/docq-ai/docq-go/internal/logging"
)

// handleIndexStats handles GET /api/index/stats?user_id=<uuid>.
// A user with no index yet is a 404.
func (s *Server) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := s.userIDFromQuery(w, r)
	if !ok {
		return
	}

	count, dim, err := s.deps.Index.Stats(ctx, userID)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "no index for user")
			return
		}
		logging.FromContext(ctx).Error("index stats failed", slog.Any("error", err))
		writeError(ctx, w, http.StatusInternalServerError, "failed to read index stats")
		return
	}

	writeJSON(ctx, w, http.StatusOK, indexStatsResponse{Count: count, Dimension: dim})
}

// handleIndexWipe handles DELETE /api/index?user_id=<uuid>. It removes the
// user's index and metadata files. Wiping a user with no index is a no-op
// success.
func (s *Server) handleIndexWipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := s.userIDFromQuery(w, r)
	if !ok {
		return
	}

	if err := s.deps.Index.Wipe(ctx, userID); err != nil {
		logging.FromContext(ctx).Error("index wipe failed", slog.Any("error", err))
		writeError(ctx, w, http.StatusInternalServerError, "failed to wipe index")
		return
	}

	logging.FromContext(ctx).Info("index wiped", slog.String("user_id", userID.String()))
	writeJSON(ctx, w, http.StatusOK, map[string]bool{"wiped": true})
}
