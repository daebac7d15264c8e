// Package model defines domain entities for the application.
package model

import "time"

// Project is an Asana project as returned to clients.
type Project struct {
	GID          string `json:"gid"`
	Name         string `json:"name"`
	Color        string `json:"color,omitempty"`
	Archived     bool   `json:"archived"`
	PermalinkURL string `json:"permalinkUrl,omitempty"`
}

// Channel is a Slack conversation as returned to clients.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"isPrivate"`
	IsMember   bool   `json:"isMember"`
	NumMembers int    `json:"numMembers"`
	Topic      string `json:"topic,omitempty"`
}

// TemporaryCredential is a short-lived key for the transcription service.
// It is never persisted.
type TemporaryCredential struct {
	APIKey    string
	ExpiresAt time.Time
}

// Expired reports whether the credential is no longer usable at now.
func (c *TemporaryCredential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
