package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/accountpulse/accountpulse/internal/web"
)

// Mount points the front-end bundles attach to.
const (
	appMount   template.HTML = `<div id="root" data-page="dashboard"></div>`
	voiceMount template.HTML = `<div id="root" data-page="voice"></div>`
)

// PageHandler renders the HTML page shells.
type PageHandler struct {
	logger *slog.Logger
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{logger: logger}
}

// App handles GET /.
func (h *PageHandler) App(w http.ResponseWriter, r *http.Request) {
	h.render(w, web.AppShell, appMount)
}

// Voice handles GET /voice.
func (h *PageHandler) Voice(w http.ResponseWriter, r *http.Request) {
	h.render(w, web.VoiceShell, voiceMount)
}

func (h *PageHandler) render(w http.ResponseWriter, layout web.Layout, children template.HTML) {
	// Render buffers, so nothing has been written when it fails.
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := layout.Render(w, children); err != nil {
		h.logger.Error("page render failed", "title", layout.Metadata.Title, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
