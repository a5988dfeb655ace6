package metrics

import (
	"sync"
	"time"
)

// InMemory is a Recorder backed by in-process counters.
// Safe for concurrent use; intended for tests and the debug endpoint.
type InMemory struct {
	mu sync.Mutex

	trackRequests    map[string]int64
	sinkDeliveries   map[string]int64
	analyticsQueries map[string]int64
	ownerCacheHits   int64
	ownerCacheMisses int64

	sinkDurationTotal time.Duration
	sinkDurationCount int64
	aggDurationTotal  time.Duration
	aggDurationCount  int64
}

// NewInMemory returns an in-memory recorder.
func NewInMemory() *InMemory {
	return &InMemory{
		trackRequests:    make(map[string]int64),
		sinkDeliveries:   make(map[string]int64),
		analyticsQueries: make(map[string]int64),
	}
}

func (m *InMemory) IncTrackRequest(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackRequests[outcome]++
}

func (m *InMemory) IncSinkDelivery(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinkDeliveries[status]++
}

func (m *InMemory) ObserveSinkDeliveryDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinkDurationTotal += d
	m.sinkDurationCount++
}

func (m *InMemory) IncAnalyticsQuery(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyticsQueries[status]++
}

func (m *InMemory) ObserveAggregationDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggDurationTotal += d
	m.aggDurationCount++
}

func (m *InMemory) IncOwnerCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerCacheHits++
}

func (m *InMemory) IncOwnerCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerCacheMisses++
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	TrackRequests    map[string]int64 `json:"trackRequests"`
	SinkDeliveries   map[string]int64 `json:"sinkDeliveries"`
	AnalyticsQueries map[string]int64 `json:"analyticsQueries"`
	OwnerCacheHits   int64            `json:"ownerCacheHits"`
	OwnerCacheMisses int64            `json:"ownerCacheMisses"`

	SinkDeliveryCount int64 `json:"sinkDeliveryCount"`
	AggregationCount  int64 `json:"aggregationCount"`
}

// Snapshot returns a copy of the current counter values.
func (m *InMemory) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		TrackRequests:     make(map[string]int64, len(m.trackRequests)),
		SinkDeliveries:    make(map[string]int64, len(m.sinkDeliveries)),
		AnalyticsQueries:  make(map[string]int64, len(m.analyticsQueries)),
		OwnerCacheHits:    m.ownerCacheHits,
		OwnerCacheMisses:  m.ownerCacheMisses,
		SinkDeliveryCount: m.sinkDurationCount,
		AggregationCount:  m.aggDurationCount,
	}
	for k, v := range m.trackRequests {
		s.TrackRequests[k] = v
	}
	for k, v := range m.sinkDeliveries {
		s.SinkDeliveries[k] = v
	}
	for k, v := range m.analyticsQueries {
		s.AnalyticsQueries[k] = v
	}
	return s
}
