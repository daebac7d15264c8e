package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/accountpulse/accountpulse/internal/config"
	"github.com/accountpulse/accountpulse/internal/handler/dto"
	"github.com/accountpulse/accountpulse/internal/metrics"
	"github.com/accountpulse/accountpulse/internal/model"
)

// ProjectLister lists Asana projects.
type ProjectLister interface {
	List(ctx context.Context) ([]model.Project, error)
}

var asanaProjectsPolicy = ErrorPolicy{
	Endpoint:   "asana_projects",
	Fallback:   "Failed to fetch projects",
	Disclosure: DiscloseNone,
}

// AsanaHandler serves Asana data.
type AsanaHandler struct {
	check    config.PresenceCheck
	projects ProjectLister
	failures failures
}

// NewAsanaHandler creates an AsanaHandler gated on check.
func NewAsanaHandler(check config.PresenceCheck, projects ProjectLister, logger *slog.Logger, recorder metrics.Recorder) *AsanaHandler {
	return &AsanaHandler{
		check:    check,
		projects: projects,
		failures: newFailures(logger, recorder),
	}
}

// Projects handles GET /api/asana/projects.
func (h *AsanaHandler) Projects(w http.ResponseWriter, r *http.Request) {
	if !h.check.Present {
		h.failures.configMissing(w, r, asanaProjectsPolicy, h.check)
		return
	}

	projects, err := h.projects.List(r.Context())
	if err != nil {
		h.failures.upstream(w, r, asanaProjectsPolicy, err)
		return
	}
	if projects == nil {
		projects = []model.Project{}
	}

	writeJSON(w, http.StatusOK, dto.ProjectsResponse{Projects: projects})
}
