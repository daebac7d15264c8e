package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/accountpulse/accountpulse/internal/handler/dto"
	"github.com/accountpulse/accountpulse/internal/metrics"
	"github.com/accountpulse/accountpulse/internal/model"
)

// GmailConnection is the Gmail OAuth surface the handlers need.
type GmailConnection interface {
	AuthURL() (authURL, state string, err error)
	Status(ctx context.Context) (*model.GmailToken, error)
	Disconnect(ctx context.Context) error
}

var (
	gmailAuthPolicy = ErrorPolicy{
		Endpoint:   "gmail_auth",
		Fallback:   "Failed to generate auth URL",
		Disclosure: DiscloseCause,
	}
	// Status never fails; lookup errors are reported as disconnected.
	gmailStatusPolicy = ErrorPolicy{
		Endpoint:   "gmail_status",
		Disclosure: DiscloseNone,
	}
	gmailDisconnectPolicy = ErrorPolicy{
		Endpoint:   "gmail_disconnect",
		Fallback:   "Failed to disconnect Gmail",
		Disclosure: DiscloseNone,
	}
)

// GmailStateCookie carries the OAuth state from /api/gmail/auth to the callback.
const GmailStateCookie = "gmail_oauth_state"

const gmailStateTTL = 10 * time.Minute

// GmailHandler serves the Gmail connection endpoints.
type GmailHandler struct {
	gmail        GmailConnection
	secureCookie bool
	logger       *slog.Logger
	failures     failures
}

// NewGmailHandler creates a GmailHandler. secureCookie marks the state
// cookie Secure and should be set whenever the app is served over HTTPS.
func NewGmailHandler(gmail GmailConnection, secureCookie bool, logger *slog.Logger, recorder metrics.Recorder) *GmailHandler {
	f := newFailures(logger, recorder)
	return &GmailHandler{
		gmail:        gmail,
		secureCookie: secureCookie,
		logger:       f.logger,
		failures:     f,
	}
}

// Auth handles GET /api/gmail/auth.
func (h *GmailHandler) Auth(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := h.gmail.AuthURL()
	if err != nil {
		h.failures.upstream(w, r, gmailAuthPolicy, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     GmailStateCookie,
		Value:    state,
		Path:     "/api/gmail",
		MaxAge:   int(gmailStateTTL / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, dto.AuthURLResponse{AuthURL: authURL})
}

// Status handles GET /api/gmail/status.
func (h *GmailHandler) Status(w http.ResponseWriter, r *http.Request) {
	token, err := h.gmail.Status(r.Context())
	if err != nil {
		h.failures.swallowed(r, gmailStatusPolicy, err)
		token = nil
	}

	writeJSON(w, http.StatusOK, dto.ToGmailStatusResponse(token))
}

// Disconnect handles POST /api/gmail/disconnect.
func (h *GmailHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.gmail.Disconnect(r.Context()); err != nil {
		h.failures.upstream(w, r, gmailDisconnectPolicy, err)
		return
	}

	h.logger.Info("gmail_disconnected")
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}
