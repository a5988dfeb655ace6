package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/linkbio/linkbio/internal/handler/dto"
	"github.com/linkbio/linkbio/internal/metrics"
	"github.com/linkbio/linkbio/internal/tracking"
)

// OwnerResolver maps profile usernames to owner ids.
type OwnerResolver interface {
	Resolve(ctx context.Context, username string) (string, error)
}

// TrackHandler handles the public click tracking endpoint.
type TrackHandler struct {
	resolver OwnerResolver
	sink     *tracking.Sink
	metrics  metrics.Recorder
	logger   *slog.Logger
	maxBody  int64
	now      func() time.Time
}

// NewTrackHandler creates the tracking endpoint handler.
func NewTrackHandler(resolver OwnerResolver, sink *tracking.Sink, maxBody int64, rec metrics.Recorder, logger *slog.Logger) *TrackHandler {
	if rec == nil {
		rec = metrics.NewNoop()
	}
	return &TrackHandler{
		resolver: resolver,
		sink:     sink,
		metrics:  rec,
		logger:   logger.With("component", "handler.track"),
		maxBody:  maxBody,
		now:      time.Now,
	}
}

// Track handles POST /api/track-click.
//
// The contract is asymmetric on purpose: structural problems with the
// request (bad JSON, unknown profile) are the caller's to see, while
// downstream delivery problems are never surfaced. A click is accepted
// once the profile resolves; whatever happens to the event afterwards
// is an operational concern.
func (h *TrackHandler) Track(w http.ResponseWriter, r *http.Request) {
	var payload tracking.ClickPayload

	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		h.metrics.IncTrackRequest(metrics.OutcomeBadRequest)
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body", Code: "BAD_REQUEST"})
		return
	}

	if err := tracking.ValidateClickPayload(payload); err != nil {
		h.metrics.IncTrackRequest(metrics.OutcomeBadRequest)
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body", Code: "BAD_REQUEST"})
		return
	}

	ownerID, err := h.resolver.Resolve(r.Context(), payload.ProfileUsername)
	if err != nil {
		if errors.Is(err, tracking.ErrOwnerNotFound) {
			h.metrics.IncTrackRequest(metrics.OutcomeNotFound)
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Profile not found", Code: "NOT_FOUND"})
			return
		}

		h.metrics.IncTrackRequest(metrics.OutcomeInternal)
		h.logger.Error("owner resolution failed",
			"profile_username", payload.ProfileUsername,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to track click", Code: "INTERNAL_ERROR"})
		return
	}

	event := tracking.BuildClickEvent(
		payload,
		ownerID,
		tracking.GeoFromRequest(r),
		r.UserAgent(),
		tracking.ClientIP(r),
		h.now(),
	)

	h.sink.Deliver(r.Context(), event)

	h.metrics.IncTrackRequest(metrics.OutcomeAccepted)
	writeJSON(w, http.StatusOK, dto.TrackResponse{Success: true})
}
