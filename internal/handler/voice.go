package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/accountpulse/accountpulse/internal/handler/dto"
	"github.com/accountpulse/accountpulse/internal/metrics"
	"github.com/accountpulse/accountpulse/internal/model"
)

// VoiceTokenIssuer issues temporary transcription credentials.
type VoiceTokenIssuer interface {
	IssueTemporaryCredential(ctx context.Context) (*model.TemporaryCredential, error)
	ListenURL() string
}

var voiceTokenPolicy = ErrorPolicy{
	Endpoint:   "voice_token",
	Fallback:   "Failed to generate voice token. Check that DEEPGRAM_API_KEY is set.",
	Disclosure: DiscloseNone,
}

// VoiceHandler serves voice session credentials.
type VoiceHandler struct {
	issuer   VoiceTokenIssuer
	failures failures
}

// NewVoiceHandler creates a VoiceHandler.
func NewVoiceHandler(issuer VoiceTokenIssuer, logger *slog.Logger, recorder metrics.Recorder) *VoiceHandler {
	return &VoiceHandler{
		issuer:   issuer,
		failures: newFailures(logger, recorder),
	}
}

// Token handles GET /api/voice/token.
func (h *VoiceHandler) Token(w http.ResponseWriter, r *http.Request) {
	cred, err := h.issuer.IssueTemporaryCredential(r.Context())
	if err != nil {
		h.failures.upstream(w, r, voiceTokenPolicy, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToVoiceTokenResponse(cred, h.issuer.ListenURL()))
}
