package metrics

import (
	"sync"
	"time"
)

// Snapshot captures current in-memory counters keyed by "label" or "label/label".
type Snapshot struct {
	UpstreamCalls     map[string]uint64
	UpstreamDurations map[string]time.Duration
	HandlerFailures   map[string]uint64
	ListCache         map[string]uint64
	RateLimited       map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                sync.Mutex
	upstreamCalls     map[string]uint64
	upstreamDurations map[string]time.Duration
	handlerFailures   map[string]uint64
	listCache         map[string]uint64
	rateLimited       map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		upstreamCalls:     make(map[string]uint64),
		upstreamDurations: make(map[string]time.Duration),
		handlerFailures:   make(map[string]uint64),
		listCache:         make(map[string]uint64),
		rateLimited:       make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		UpstreamCalls:     copyMap(m.upstreamCalls),
		UpstreamDurations: copyMap(m.upstreamDurations),
		HandlerFailures:   copyMap(m.handlerFailures),
		ListCache:         copyMap(m.listCache),
		RateLimited:       copyMap(m.rateLimited),
	}
}

// IncUpstreamCall increments the upstream call counter.
func (m *InMemoryRecorder) IncUpstreamCall(service, outcome string) {
	m.mu.Lock()
	m.upstreamCalls[service+"/"+outcome]++
	m.mu.Unlock()
}

// ObserveUpstreamDuration accumulates upstream call time.
func (m *InMemoryRecorder) ObserveUpstreamDuration(service string, duration time.Duration) {
	m.mu.Lock()
	m.upstreamDurations[service] += duration
	m.mu.Unlock()
}

// IncHandlerFailure increments the handler failure counter.
func (m *InMemoryRecorder) IncHandlerFailure(endpoint, kind string) {
	m.mu.Lock()
	m.handlerFailures[endpoint+"/"+kind]++
	m.mu.Unlock()
}

// IncListCache increments the listing cache counter.
func (m *InMemoryRecorder) IncListCache(service, result string) {
	m.mu.Lock()
	m.listCache[service+"/"+result]++
	m.mu.Unlock()
}

// IncRateLimited increments the rate-limited counter.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	m.mu.Lock()
	m.rateLimited[scope]++
	m.mu.Unlock()
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
