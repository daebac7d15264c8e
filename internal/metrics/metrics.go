// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels for upstream calls.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Cache result labels.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory for tests.
type Recorder interface {
	// Upstream integration calls (asana, slack, gmail, deepgram, sentiment)
	IncUpstreamCall(service, outcome string)
	ObserveUpstreamDuration(service string, duration time.Duration)

	// Handler failures by endpoint and error kind
	IncHandlerFailure(endpoint, kind string)

	// Listing cache lookups
	IncListCache(service, result string)

	// Requests rejected by a rate limiter
	IncRateLimited(scope string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
