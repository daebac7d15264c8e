package model

import "time"

// Sentiment is the coarse sentiment label stored for an account.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// AccountChange is one row of the changed-accounts read model: an account whose
// sentiment label moved between two analysis runs.
type AccountChange struct {
	AccountID         string    `json:"accountId"`
	AccountName       string    `json:"accountName"`
	PreviousSentiment Sentiment `json:"previousSentiment"`
	CurrentSentiment  Sentiment `json:"currentSentiment"`
	PreviousScore     float64   `json:"previousScore"`
	CurrentScore      float64   `json:"currentScore"`
	ChangedAt         time.Time `json:"changedAt"`
}
