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

// ChannelLister lists Slack channels.
type ChannelLister interface {
	List(ctx context.Context) ([]model.Channel, error)
}

var slackChannelsPolicy = ErrorPolicy{
	Endpoint:   "slack_channels",
	Fallback:   "Failed to fetch channels",
	Disclosure: DiscloseCause,
}

// SlackHandler serves Slack data.
type SlackHandler struct {
	check    config.PresenceCheck
	channels ChannelLister
	failures failures
}

// NewSlackHandler creates a SlackHandler gated on check.
func NewSlackHandler(check config.PresenceCheck, channels ChannelLister, logger *slog.Logger, recorder metrics.Recorder) *SlackHandler {
	return &SlackHandler{
		check:    check,
		channels: channels,
		failures: newFailures(logger, recorder),
	}
}

// Channels handles GET /api/slack/channels.
func (h *SlackHandler) Channels(w http.ResponseWriter, r *http.Request) {
	if !h.check.Present {
		h.failures.configMissing(w, r, slackChannelsPolicy, h.check)
		return
	}

	channels, err := h.channels.List(r.Context())
	if err != nil {
		h.failures.upstream(w, r, slackChannelsPolicy, err)
		return
	}
	if channels == nil {
		channels = []model.Channel{}
	}

	writeJSON(w, http.StatusOK, dto.ChannelsResponse{Channels: channels})
}
