package metrics

import "time"

// Noop is a Recorder that discards everything.
type Noop struct{}

// NewNoop returns a no-op recorder.
func NewNoop() *Noop {
	return &Noop{}
}

func (*Noop) IncTrackRequest(string)                    {}
func (*Noop) IncSinkDelivery(string)                    {}
func (*Noop) ObserveSinkDeliveryDuration(time.Duration) {}
func (*Noop) IncAnalyticsQuery(string)                  {}
func (*Noop) ObserveAggregationDuration(time.Duration)  {}
func (*Noop) IncOwnerCacheHit()                         {}
func (*Noop) IncOwnerCacheMiss()                        {}
