package model

import "time"

// GmailToken is the stored OAuth token for the connected Gmail account.
// AccessToken and RefreshToken hold plaintext in memory; the repository
// only ever sees their sealed form.
type GmailToken struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenType    string     `json:"tokenType"`
	Expiry       *time.Time `json:"expiry,omitempty"`
	Scopes       []string   `json:"scopes"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ExpiresSoon reports whether the access token expires within d of now.
// Tokens without an expiry never expire.
func (t *GmailToken) ExpiresSoon(now time.Time, d time.Duration) bool {
	if t.Expiry == nil {
		return false
	}
	return t.Expiry.Sub(now) < d
}
