package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linkbio/linkbio/internal/cache"
	"github.com/linkbio/linkbio/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubLimiter struct {
	result *cache.RateLimitResult
	err    error
	calls  int
}

func (s *stubLimiter) CheckTrackRateLimit(ctx context.Context, ip string, rps, burst int) (*cache.RateLimitResult, error) {
	s.calls++
	return s.result, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitTrack_Allowed(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{result: &cache.RateLimitResult{Allowed: true, Remaining: 5}}
	rec := metrics.NewInMemory()
	mw := RateLimitTrack(RateLimitConfig{
		Logger:  discardLogger(),
		Limiter: limiter,
		Metrics: rec,
		Enabled: true,
		RPS:     50,
		Burst:   20,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/track-click", nil)
	w := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for allowed request, got %d", w.Code)
	}
	if limiter.calls != 1 {
		t.Errorf("expected 1 limiter call, got %d", limiter.calls)
	}
	if got := rec.Snapshot().TrackRequests[metrics.OutcomeRateLimited]; got != 0 {
		t.Errorf("allowed request must not count as rate limited, got %d", got)
	}
}

func TestRateLimitTrack_ExceededRecordsOutcome(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{result: &cache.RateLimitResult{
		Allowed:    false,
		RetryAfter: 2 * time.Second,
	}}
	rec := metrics.NewInMemory()
	mw := RateLimitTrack(RateLimitConfig{
		Logger:  discardLogger(),
		Limiter: limiter,
		Metrics: rec,
		Enabled: true,
		RPS:     1,
		Burst:   1,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/track-click", nil)
	w := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("expected Retry-After 2, got %q", got)
	}
	if got := rec.Snapshot().TrackRequests[metrics.OutcomeRateLimited]; got != 1 {
		t.Errorf("expected 1 rate-limited outcome, got %d", got)
	}
}

func TestRateLimitTrack_FailsOpenOnLimiterError(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{err: errors.New("redis down")}
	mw := RateLimitTrack(RateLimitConfig{
		Logger:  discardLogger(),
		Limiter: limiter,
		Enabled: true,
		RPS:     50,
		Burst:   20,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/track-click", nil)
	w := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when limiter fails, got %d", w.Code)
	}
}

func TestRateLimitTrack_DisabledPassesThrough(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{result: &cache.RateLimitResult{Allowed: false}}
	mw := RateLimitTrack(RateLimitConfig{
		Logger:  discardLogger(),
		Limiter: limiter,
		Enabled: false,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/track-click", nil)
	w := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when disabled, got %d", w.Code)
	}
	if limiter.calls != 0 {
		t.Errorf("expected limiter untouched when disabled, got %d calls", limiter.calls)
	}
}
