// Package dto holds the JSON bodies of the /api endpoints.
package dto

import (
	"time"

	"github.com/accountpulse/accountpulse/internal/model"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ErrorMessage is the failure envelope of every JSON endpoint.
type ErrorMessage struct {
	Error string `json:"error"`
}

// ProjectsResponse is returned by GET /api/asana/projects.
type ProjectsResponse struct {
	Projects []model.Project `json:"projects"`
}

// ChannelsResponse is returned by GET /api/slack/channels.
type ChannelsResponse struct {
	Channels []model.Channel `json:"channels"`
}

// AuthURLResponse is returned by GET /api/gmail/auth.
type AuthURLResponse struct {
	AuthURL string `json:"authUrl"`
}

// GmailStatusResponse is returned by GET /api/gmail/status.
// Email is null when no account is connected.
type GmailStatusResponse struct {
	Connected bool    `json:"connected"`
	Email     *string `json:"email"`
}

// SuccessResponse acknowledges a state change.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// VoiceTokenResponse is returned by GET /api/voice/token.
type VoiceTokenResponse struct {
	APIKey    string `json:"apiKey"`
	WSURL     string `json:"wsUrl"`
	ExpiresAt string `json:"expiresAt"`
}

// ChangesResponse is returned by GET /api/dashboard/changes.
type ChangesResponse struct {
	Changes []*model.AccountChange `json:"changes"`
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ToGmailStatusResponse maps a stored token (or its absence) to the status body.
func ToGmailStatusResponse(token *model.GmailToken) GmailStatusResponse {
	if token == nil {
		return GmailStatusResponse{Connected: false}
	}
	email := token.Email
	return GmailStatusResponse{Connected: true, Email: &email}
}

// ToVoiceTokenResponse combines an issued credential with the listen URL.
func ToVoiceTokenResponse(cred *model.TemporaryCredential, wsURL string) VoiceTokenResponse {
	return VoiceTokenResponse{
		APIKey:    cred.APIKey,
		WSURL:     wsURL,
		ExpiresAt: FormatTimestamp(cred.ExpiresAt),
	}
}
