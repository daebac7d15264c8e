package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountpulse/accountpulse/internal/config"
	"github.com/accountpulse/accountpulse/internal/metrics"
	"github.com/accountpulse/accountpulse/internal/model"
)

type fakeProjects struct {
	calls    int
	projects []model.Project
	err      error
}

func (f *fakeProjects) List(context.Context) ([]model.Project, error) {
	f.calls++
	return f.projects, f.err
}

type fakeChannels struct {
	calls    int
	channels []model.Channel
	err      error
}

func (f *fakeChannels) List(context.Context) ([]model.Channel, error) {
	f.calls++
	return f.channels, f.err
}

type fakeGmail struct {
	authURL    string
	state      string
	authErr    error
	token      *model.GmailToken
	statusErr  error
	disconnErr error
	disconns   int
}

func (f *fakeGmail) AuthURL() (string, string, error) { return f.authURL, f.state, f.authErr }

func (f *fakeGmail) Status(context.Context) (*model.GmailToken, error) {
	return f.token, f.statusErr
}

func (f *fakeGmail) Disconnect(context.Context) error {
	f.disconns++
	return f.disconnErr
}

type fakeIssuer struct {
	cred      *model.TemporaryCredential
	err       error
	listenURL string
}

func (f *fakeIssuer) IssueTemporaryCredential(context.Context) (*model.TemporaryCredential, error) {
	return f.cred, f.err
}

func (f *fakeIssuer) ListenURL() string { return f.listenURL }

type fakeChanges struct {
	limit   int
	changes []*model.AccountChange
	err     error
}

func (f *fakeChanges) ListAccountChanges(_ context.Context, limit int) ([]*model.AccountChange, error) {
	f.limit = limit
	return f.changes, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func serve(t *testing.T, h http.HandlerFunc, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(method, target, nil))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestAsanaHandler_ConfigMissing(t *testing.T) {
	rec := metrics.NewInMemory()
	lister := &fakeProjects{}
	check := config.PresenceCheck{Key: "ASANA_ACCESS_TOKEN", Present: false}
	h := NewAsanaHandler(check, lister, discardLogger(), rec)

	w, body := serve(t, h.Projects, http.MethodGet, "/api/asana/projects")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"error": "ASANA_ACCESS_TOKEN not configured"}, body)
	assert.Zero(t, lister.calls, "lister must not be invoked")
	assert.Equal(t, uint64(1), rec.Snapshot().HandlerFailures["asana_projects/config_missing"])
}

func TestAsanaHandler_Projects(t *testing.T) {
	lister := &fakeProjects{projects: []model.Project{{GID: "1", Name: "Launch", PermalinkURL: "https://app.asana.com/0/1"}}}
	h := NewAsanaHandler(config.PresenceCheck{Key: "ASANA_ACCESS_TOKEN", Present: true}, lister, discardLogger(), nil)

	w, body := serve(t, h.Projects, http.MethodGet, "/api/asana/projects")

	assert.Equal(t, http.StatusOK, w.Code)
	projects := body["projects"].([]any)
	require.Len(t, projects, 1)
	first := projects[0].(map[string]any)
	assert.Equal(t, "1", first["gid"])
	assert.Equal(t, "https://app.asana.com/0/1", first["permalinkUrl"])
}

func TestAsanaHandler_EmptyList(t *testing.T) {
	h := NewAsanaHandler(config.PresenceCheck{Present: true}, &fakeProjects{}, discardLogger(), nil)

	rec := httptest.NewRecorder()
	h.Projects(rec, httptest.NewRequest(http.MethodGet, "/api/asana/projects", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"projects":[]}`, rec.Body.String())
}

func TestAsanaHandler_FailureIsGeneric(t *testing.T) {
	rec := metrics.NewInMemory()
	lister := &fakeProjects{err: errors.New("asana API returned HTTP 401: Not Authorized")}
	h := NewAsanaHandler(config.PresenceCheck{Present: true}, lister, discardLogger(), rec)

	w, body := serve(t, h.Projects, http.MethodGet, "/api/asana/projects")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to fetch projects", body["error"])
	assert.Equal(t, uint64(1), rec.Snapshot().HandlerFailures["asana_projects/upstream_failure"])
}

func TestSlackHandler_ConfigMissing(t *testing.T) {
	lister := &fakeChannels{}
	h := NewSlackHandler(config.PresenceCheck{Key: "SLACK_BOT_TOKEN"}, lister, discardLogger(), nil)

	w, body := serve(t, h.Channels, http.MethodGet, "/api/slack/channels")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SLACK_BOT_TOKEN not configured", body["error"])
	assert.Zero(t, lister.calls)
}

func TestSlackHandler_Channels(t *testing.T) {
	lister := &fakeChannels{channels: []model.Channel{{ID: "C1", Name: "general", IsMember: true, NumMembers: 3}}}
	h := NewSlackHandler(config.PresenceCheck{Present: true}, lister, discardLogger(), nil)

	w, body := serve(t, h.Channels, http.MethodGet, "/api/slack/channels")

	assert.Equal(t, http.StatusOK, w.Code)
	channels := body["channels"].([]any)
	require.Len(t, channels, 1)
	ch := channels[0].(map[string]any)
	assert.Equal(t, "C1", ch["id"])
	assert.Equal(t, true, ch["isMember"])
	assert.Equal(t, float64(3), ch["numMembers"])
}

func TestSlackHandler_DisclosesCause(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"message disclosed", errors.New("boom"), "boom"},
		{"empty message falls back", errors.New(""), "Failed to fetch channels"},
		{"whitespace message falls back", errors.New("  "), "Failed to fetch channels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSlackHandler(config.PresenceCheck{Present: true}, &fakeChannels{err: tt.err}, discardLogger(), nil)

			w, body := serve(t, h.Channels, http.MethodGet, "/api/slack/channels")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, map[string]any{"error": tt.want}, body)
		})
	}
}

func TestGmailHandler_Auth(t *testing.T) {
	h := NewGmailHandler(&fakeGmail{
		authURL: "https://accounts.google.com/o/oauth2/auth?state=3f1c9a&x=1",
		state:   "3f1c9a",
	}, false, discardLogger(), nil)

	w, body := serve(t, h.Auth, http.MethodGet, "/api/gmail/auth")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?state=3f1c9a&x=1", body["authUrl"])
}

func TestGmailHandler_AuthSetsStateCookie(t *testing.T) {
	tests := []struct {
		name   string
		secure bool
	}{
		{"development", false},
		{"https", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authURL := "https://accounts.google.com/o/oauth2/auth?client_id=c&state=b7e2d4c0"
			h := NewGmailHandler(&fakeGmail{authURL: authURL, state: "b7e2d4c0"}, tt.secure, discardLogger(), nil)

			w, body := serve(t, h.Auth, http.MethodGet, "/api/gmail/auth")
			require.Equal(t, http.StatusOK, w.Code)

			u, err := url.Parse(body["authUrl"].(string))
			require.NoError(t, err)

			cookies := w.Result().Cookies()
			require.Len(t, cookies, 1)
			c := cookies[0]
			assert.Equal(t, GmailStateCookie, c.Name)
			assert.Equal(t, u.Query().Get("state"), c.Value, "cookie must match the state sent to Google")
			assert.True(t, c.HttpOnly)
			assert.Equal(t, tt.secure, c.Secure)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
			assert.Equal(t, "/api/gmail", c.Path)
			assert.Equal(t, 600, c.MaxAge)
		})
	}
}

func TestGmailHandler_AuthFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"cause disclosed", errors.New("gmail oauth client not configured"), "gmail oauth client not configured"},
		{"empty falls back", errors.New(""), "Failed to generate auth URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewGmailHandler(&fakeGmail{authErr: tt.err}, false, discardLogger(), nil)

			w, body := serve(t, h.Auth, http.MethodGet, "/api/gmail/auth")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, tt.want, body["error"])
			assert.Empty(t, w.Result().Cookies(), "no state cookie without a URL")
		})
	}
}

func TestGmailHandler_Status(t *testing.T) {
	tests := []struct {
		name  string
		gmail *fakeGmail
		want  string
	}{
		{"connected", &fakeGmail{token: &model.GmailToken{Email: "owner@example.com"}}, `{"connected":true,"email":"owner@example.com"}`},
		{"not connected", &fakeGmail{}, `{"connected":false,"email":null}`},
		{"lookup error", &fakeGmail{statusErr: errors.New("db down")}, `{"connected":false,"email":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewGmailHandler(tt.gmail, false, discardLogger(), nil)

			rec := httptest.NewRecorder()
			h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/gmail/status", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestGmailHandler_StatusErrorIsCounted(t *testing.T) {
	rec := metrics.NewInMemory()
	h := NewGmailHandler(&fakeGmail{statusErr: errors.New("db down")}, false, discardLogger(), rec)

	w := httptest.NewRecorder()
	h.Status(w, httptest.NewRequest(http.MethodGet, "/api/gmail/status", nil))

	assert.Equal(t, uint64(1), rec.Snapshot().HandlerFailures["gmail_status/upstream_failure"])
}

func TestGmailHandler_Disconnect(t *testing.T) {
	gmail := &fakeGmail{}
	h := NewGmailHandler(gmail, false, discardLogger(), nil)

	rec := httptest.NewRecorder()
	h.Disconnect(rec, httptest.NewRequest(http.MethodPost, "/api/gmail/disconnect", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, 1, gmail.disconns)
}

func TestGmailHandler_DisconnectFailure(t *testing.T) {
	h := NewGmailHandler(&fakeGmail{disconnErr: errors.New("pool closed")}, false, discardLogger(), nil)

	w, body := serve(t, h.Disconnect, http.MethodPost, "/api/gmail/disconnect")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"error": "Failed to disconnect Gmail"}, body)
}

func TestVoiceHandler_Token(t *testing.T) {
	expires := time.Date(2026, 4, 1, 9, 30, 15, 250_000_000, time.UTC)
	issuer := &fakeIssuer{
		cred:      &model.TemporaryCredential{APIKey: "temp-key", ExpiresAt: expires},
		listenURL: "wss://api.deepgram.com/v1/listen?model=nova-2",
	}
	h := NewVoiceHandler(issuer, discardLogger(), nil)

	w, body := serve(t, h.Token, http.MethodGet, "/api/voice/token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "temp-key", body["apiKey"])
	assert.Equal(t, "2026-04-01T09:30:15.250Z", body["expiresAt"])
	assert.Equal(t, "wss://api.deepgram.com/v1/listen?model=nova-2", body["wsUrl"])
	assert.NotContains(t, body["wsUrl"], "temp-key")
}

func TestVoiceHandler_WSURLIndependentOfKey(t *testing.T) {
	urls := make([]any, 0, 2)
	for _, key := range []string{"key-one", "key-two"} {
		issuer := &fakeIssuer{
			cred:      &model.TemporaryCredential{APIKey: key, ExpiresAt: time.Now()},
			listenURL: "wss://api.deepgram.com/v1/listen",
		}
		_, body := serve(t, NewVoiceHandler(issuer, discardLogger(), nil).Token, http.MethodGet, "/api/voice/token")
		urls = append(urls, body["wsUrl"])
	}

	assert.Equal(t, urls[0], urls[1])
}

func TestVoiceHandler_FailureHint(t *testing.T) {
	h := NewVoiceHandler(&fakeIssuer{err: errors.New("deepgram api key not configured")}, discardLogger(), nil)

	w, body := serve(t, h.Token, http.MethodGet, "/api/voice/token")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"error": "Failed to generate voice token. Check that DEEPGRAM_API_KEY is set."}, body)
}

func TestDashboardHandler_Changes(t *testing.T) {
	changed := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	lister := &fakeChanges{changes: []*model.AccountChange{{
		AccountID:         "acc-1",
		AccountName:       "Globex",
		PreviousSentiment: model.SentimentPositive,
		CurrentSentiment:  model.SentimentNegative,
		PreviousScore:     0.6,
		CurrentScore:      -0.4,
		ChangedAt:         changed,
	}}}
	h := NewDashboardHandler(lister, discardLogger(), nil)

	w, body := serve(t, h.Changes, http.MethodGet, "/api/dashboard/changes")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, lister.limit)
	changes := body["changes"].([]any)
	require.Len(t, changes, 1)
	first := changes[0].(map[string]any)
	assert.Equal(t, "acc-1", first["accountId"])
	assert.Equal(t, "negative", first["currentSentiment"])
}

func TestDashboardHandler_Limit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"?limit=10", 10},
		{"?limit=200", 200},
		{"?limit=201", 50},
		{"?limit=0", 50},
		{"?limit=abc", 50},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			lister := &fakeChanges{}
			h := NewDashboardHandler(lister, discardLogger(), nil)

			rec := httptest.NewRecorder()
			h.Changes(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/changes"+tt.query, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"changes":[]}`, rec.Body.String())
			assert.Equal(t, tt.want, lister.limit)
		})
	}
}

func TestDashboardHandler_Failure(t *testing.T) {
	tests := []struct {
		name    string
		changes ChangeLister
	}{
		{"query error", &fakeChanges{err: errors.New("relation does not exist")}},
		{"no store", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewDashboardHandler(tt.changes, discardLogger(), nil)

			w, body := serve(t, h.Changes, http.MethodGet, "/api/dashboard/changes")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, map[string]any{"error": "Failed to fetch changes"}, body)
		})
	}
}

func TestErrorPolicy_Message(t *testing.T) {
	none := ErrorPolicy{Fallback: "fixed", Disclosure: DiscloseNone}
	cause := ErrorPolicy{Fallback: "fixed", Disclosure: DiscloseCause}

	assert.Equal(t, "fixed", none.Message(errors.New("boom")))
	assert.Equal(t, "boom", cause.Message(errors.New("boom")))
	assert.Equal(t, "fixed", cause.Message(errors.New("")))
	assert.Equal(t, "fixed", cause.Message(nil))
}
