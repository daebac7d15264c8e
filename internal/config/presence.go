package config

import "strings"

// Requirement names a credential that gates an endpoint. The value is the
// environment variable it is loaded from.
type Requirement string

const (
	RequireAsanaAccessToken Requirement = "ASANA_ACCESS_TOKEN"
	RequireSlackBotToken    Requirement = "SLACK_BOT_TOKEN"
)

// Requirements lists every gated credential.
var Requirements = []Requirement{
	RequireAsanaAccessToken,
	RequireSlackBotToken,
}

// PresenceCheck is the typed result of checking one requirement.
type PresenceCheck struct {
	Key     string
	Present bool
}

// Message is the error returned to callers when the requirement is absent.
func (p PresenceCheck) Message() string {
	return p.Key + " not configured"
}

// Check reports whether the given requirement is configured.
// Whitespace-only values count as absent.
func (c *Config) Check(req Requirement) PresenceCheck {
	var value string
	switch req {
	case RequireAsanaAccessToken:
		value = c.Asana.AccessToken
	case RequireSlackBotToken:
		value = c.Slack.BotToken
	}

	return PresenceCheck{
		Key:     string(req),
		Present: strings.TrimSpace(value) != "",
	}
}

// MissingIntegrations returns the keys of all absent requirements, never nil.
func (c *Config) MissingIntegrations() []string {
	missing := make([]string, 0, len(Requirements))
	for _, req := range Requirements {
		if check := c.Check(req); !check.Present {
			missing = append(missing, check.Key)
		}
	}
	return missing
}
