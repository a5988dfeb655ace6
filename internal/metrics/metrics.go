// Package metrics defines the instrumentation surface for the service.
// The Recorder interface keeps callers decoupled from the backing
// implementation; a no-op recorder is used when metrics are disabled.
package metrics

import "time"

// Track request outcomes.
const (
	OutcomeAccepted    = "accepted"
	OutcomeBadRequest  = "bad_request"
	OutcomeNotFound    = "not_found"
	OutcomeInternal    = "internal_error"
	OutcomeRateLimited = "rate_limited"
)

// Sink delivery statuses.
const (
	SinkStatusDelivered   = "delivered"
	SinkStatusFailed      = "failed"
	SinkStatusQuarantined = "quarantined"
	SinkStatusDisabled    = "disabled"
	SinkStatusShedding    = "shedding"
)

// Recorder records service-level metrics.
type Recorder interface {
	IncTrackRequest(outcome string)
	IncSinkDelivery(status string)
	ObserveSinkDeliveryDuration(d time.Duration)
	IncAnalyticsQuery(status string)
	ObserveAggregationDuration(d time.Duration)
	IncOwnerCacheHit()
	IncOwnerCacheMiss()
}
