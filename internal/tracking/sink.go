package tracking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/linkbio/linkbio/internal/eventstore"
	"github.com/linkbio/linkbio/internal/metrics"
	"github.com/linkbio/linkbio/internal/model"
)

// Appender delivers a single enriched click event to the event store.
type Appender interface {
	Append(ctx context.Context, event model.ClickEvent) error
}

const (
	// sinkBreakerFailureThreshold is the consecutive-failure count
	// that opens the circuit.
	sinkBreakerFailureThreshold = 5
	// sinkBreakerOpenDuration is how long the circuit stays open
	// before allowing a probe request.
	sinkBreakerOpenDuration = 30 * time.Second
)

// Sink performs best-effort, bounded delivery of click events.
// Delivery outcomes are logged and counted but never returned to the
// caller: a sink failure must not fail the tracking request.
type Sink struct {
	store   Appender
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[struct{}]
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewSink creates a delivery sink. A nil store disables delivery;
// events are then logged and dropped.
func NewSink(store Appender, timeout time.Duration, rec metrics.Recorder, logger *slog.Logger) *Sink {
	if rec == nil {
		rec = metrics.NewNoop()
	}
	log := logger.With("component", "sink")

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name: "event-sink",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= sinkBreakerFailureThreshold
		},
		Timeout: sinkBreakerOpenDuration,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("sink circuit state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Sink{
		store:   store,
		timeout: timeout,
		breaker: breaker,
		metrics: rec,
		logger:  log,
	}
}

// Deliver sends an event to the store within the configured timeout.
// Synchronous and infallible from the caller's point of view; every
// outcome is observable in logs and metrics only.
func (s *Sink) Deliver(ctx context.Context, event model.ClickEvent) {
	if s.store == nil {
		s.metrics.IncSinkDelivery(metrics.SinkStatusDisabled)
		s.logger.Info("sink not configured, event logged only",
			"event_id", event.EventID,
			"profile_username", event.ProfileUsername,
			"link_id", event.LinkID,
		)
		return
	}

	start := time.Now()
	_, err := s.breaker.Execute(func() (struct{}, error) {
		deliverCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return struct{}{}, s.store.Append(deliverCtx, event)
	})
	s.metrics.ObserveSinkDeliveryDuration(time.Since(start))

	switch {
	case err == nil:
		s.metrics.IncSinkDelivery(metrics.SinkStatusDelivered)
		s.logger.Debug("event delivered",
			"event_id", event.EventID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		s.metrics.IncSinkDelivery(metrics.SinkStatusShedding)
		s.logger.Warn("event dropped, sink circuit open",
			"event_id", event.EventID,
		)
	case errors.Is(err, eventstore.ErrRowsQuarantined):
		// The store accepted the request but held the row back,
		// usually a schema mismatch. Worth a distinct counter.
		s.metrics.IncSinkDelivery(metrics.SinkStatusQuarantined)
		s.logger.Warn("event quarantined by store",
			"event_id", event.EventID,
			"error", err,
		)
	default:
		s.metrics.IncSinkDelivery(metrics.SinkStatusFailed)
		s.logger.Error("event delivery failed",
			"event_id", event.EventID,
			"error", err,
		)
	}
}
