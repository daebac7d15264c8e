package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/accountpulse/accountpulse/internal/handler/dto"
	"github.com/accountpulse/accountpulse/internal/metrics"
	"github.com/accountpulse/accountpulse/internal/model"
	"github.com/accountpulse/accountpulse/internal/repository"
)

// ChangeLister reads accounts whose sentiment changed.
type ChangeLister interface {
	ListAccountChanges(ctx context.Context, limit int) ([]*model.AccountChange, error)
}

var errSentimentStoreUnavailable = errors.New("sentiment store unavailable")

var dashboardChangesPolicy = ErrorPolicy{
	Endpoint:   "dashboard_changes",
	Fallback:   "Failed to fetch changes",
	Disclosure: DiscloseNone,
}

// DashboardHandler serves dashboard data.
type DashboardHandler struct {
	changes  ChangeLister
	failures failures
}

// NewDashboardHandler creates a DashboardHandler. changes may be nil when no
// database is configured.
func NewDashboardHandler(changes ChangeLister, logger *slog.Logger, recorder metrics.Recorder) *DashboardHandler {
	return &DashboardHandler{
		changes:  changes,
		failures: newFailures(logger, recorder),
	}
}

// Changes handles GET /api/dashboard/changes.
func (h *DashboardHandler) Changes(w http.ResponseWriter, r *http.Request) {
	if h.changes == nil {
		h.failures.upstream(w, r, dashboardChangesPolicy, errSentimentStoreUnavailable)
		return
	}

	limit := repository.DefaultChangesLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= repository.MaxChangesLimit {
			limit = parsed
		}
	}

	changes, err := h.changes.ListAccountChanges(r.Context(), limit)
	if err != nil {
		h.failures.upstream(w, r, dashboardChangesPolicy, err)
		return
	}
	if changes == nil {
		changes = []*model.AccountChange{}
	}

	writeJSON(w, http.StatusOK, dto.ChangesResponse{Changes: changes})
}
