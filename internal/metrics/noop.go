package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUpstreamCall is a no-op.
func (n *NoopRecorder) IncUpstreamCall(service, outcome string) {}

// ObserveUpstreamDuration is a no-op.
func (n *NoopRecorder) ObserveUpstreamDuration(service string, duration time.Duration) {}

// IncHandlerFailure is a no-op.
func (n *NoopRecorder) IncHandlerFailure(endpoint, kind string) {}

// IncListCache is a no-op.
func (n *NoopRecorder) IncListCache(service, result string) {}

// IncRateLimited is a no-op.
func (n *NoopRecorder) IncRateLimited(scope string) {}
