package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linkbio/linkbio/internal/handler/dto"
	"github.com/linkbio/linkbio/internal/metrics"
	"github.com/linkbio/linkbio/internal/model"
	"github.com/linkbio/linkbio/internal/tracking"
)

type stubResolver struct {
	owners map[string]string
	err    error
}

func (s *stubResolver) Resolve(ctx context.Context, username string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if id, ok := s.owners[username]; ok {
		return id, nil
	}
	return "", tracking.ErrOwnerNotFound
}

type captureAppender struct {
	events []model.ClickEvent
	err    error
}

func (c *captureAppender) Append(ctx context.Context, event model.ClickEvent) error {
	c.events = append(c.events, event)
	return c.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTrackHandler(resolver OwnerResolver, appender tracking.Appender, rec metrics.Recorder) *TrackHandler {
	sink := tracking.NewSink(appender, time.Second, rec, discardLogger())
	return NewTrackHandler(resolver, sink, 65536, rec, discardLogger())
}

func postTrack(t *testing.T, h *TrackHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/track-click", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Track(rec, req)
	return rec
}

func TestTrack_Accepted(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{owners: map[string]string{"alice": "user-1"}}
	appender := &captureAppender{}
	h := newTrackHandler(resolver, appender, metrics.NewNoop())

	rec := postTrack(t, h, `{"profileUsername":"alice","linkId":"link-1","linkTitle":"My Site","linkUrl":"https://example.com"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.TrackResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}

	if len(appender.events) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(appender.events))
	}
	event := appender.events[0]
	if event.ProfileUserID != "user-1" {
		t.Errorf("expected resolved owner id, got %s", event.ProfileUserID)
	}
	if event.EventID == "" || event.Timestamp == "" || event.VisitorID == "" {
		t.Errorf("expected enriched event, got %+v", event)
	}
	if event.UserAgent != "unknown" {
		t.Errorf("expected unknown user agent fallback, got %s", event.UserAgent)
	}
}

func TestTrack_SinkFailureStillAccepted(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{owners: map[string]string{"alice": "user-1"}}
	appender := &captureAppender{err: errors.New("event store down")}
	rec := metrics.NewInMemory()
	h := newTrackHandler(resolver, appender, rec)

	resp := postTrack(t, h, `{"profileUsername":"alice"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("sink failure must not surface: expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"success":true`) {
		t.Errorf("expected success body, got %s", resp.Body.String())
	}

	snap := rec.Snapshot()
	if snap.SinkDeliveries[metrics.SinkStatusFailed] != 1 {
		t.Errorf("expected failure recorded in metrics, got %+v", snap.SinkDeliveries)
	}
	if snap.TrackRequests[metrics.OutcomeAccepted] != 1 {
		t.Errorf("expected accepted outcome, got %+v", snap.TrackRequests)
	}
}

func TestTrack_UnknownProfile(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{owners: map[string]string{}}
	appender := &captureAppender{}
	h := newTrackHandler(resolver, appender, metrics.NewNoop())

	rec := postTrack(t, h, `{"profileUsername":"ghost"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Profile not found" {
		t.Errorf("unexpected error message: %s", resp.Error)
	}

	if len(appender.events) != 0 {
		t.Errorf("no event must reach the sink for unknown profiles, got %d", len(appender.events))
	}
}

func TestTrack_MalformedBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"empty body", ``},
		{"missing username", `{"linkId":"link-1"}`},
		{"empty username", `{"profileUsername":""}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			appender := &captureAppender{}
			h := newTrackHandler(&stubResolver{owners: map[string]string{"alice": "user-1"}}, appender, metrics.NewNoop())

			rec := postTrack(t, h, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "Invalid request body") {
				t.Errorf("unexpected body: %s", rec.Body.String())
			}
			if len(appender.events) != 0 {
				t.Errorf("no event must reach the sink for invalid payloads")
			}
		})
	}
}

func TestTrack_ResolverFailure(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{err: errors.New("database down")}
	appender := &captureAppender{}
	h := newTrackHandler(resolver, appender, metrics.NewNoop())

	rec := postTrack(t, h, `{"profileUsername":"alice"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Failed to track click") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if len(appender.events) != 0 {
		t.Errorf("no event must reach the sink on resolver failure")
	}
}

func TestTrack_GeoEnrichment(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{owners: map[string]string{"alice": "user-1"}}
	appender := &captureAppender{}
	h := newTrackHandler(resolver, appender, metrics.NewNoop())

	req := httptest.NewRequest(http.MethodPost, "/api/track-click",
		strings.NewReader(`{"profileUsername":"alice"}`))
	req.Header.Set("X-Vercel-IP-Country", "JP")
	req.Header.Set("X-Vercel-IP-City", "Tokyo")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec := httptest.NewRecorder()

	h.Track(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(appender.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(appender.events))
	}
	event := appender.events[0]
	if event.Location.Country != "JP" || event.Location.City != "Tokyo" {
		t.Errorf("expected geo enrichment, got %+v", event.Location)
	}
	if event.UserAgent != "Mozilla/5.0" {
		t.Errorf("expected header user agent, got %s", event.UserAgent)
	}
}
