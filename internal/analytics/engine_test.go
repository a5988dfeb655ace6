package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/linkbio/linkbio/internal/eventstore"
	"github.com/linkbio/linkbio/internal/metrics"
	"github.com/linkbio/linkbio/internal/model"
)

type stubRowSource struct {
	events []model.ClickEvent
	err    error
}

func (s *stubRowSource) QueryEvents(ctx context.Context, q eventstore.EventQuery) ([]model.ClickEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []model.ClickEvent
	for _, ev := range s.events {
		if ev.ProfileUserID != q.OwnerID {
			continue
		}
		if q.LinkID != "" && ev.LinkID != q.LinkID {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(store RowSource) *Engine {
	return NewEngine(store, 30, metrics.NewNoop(), discardLogger())
}

func event(linkID, ts, visitor, country string) model.ClickEvent {
	return model.ClickEvent{
		EventID:       ts + visitor,
		Timestamp:     ts,
		ProfileUserID: "user-1",
		LinkID:        linkID,
		LinkTitle:     "My Site",
		LinkURL:       "https://example.com",
		VisitorID:     visitor,
		Location:      model.Location{Country: country},
	}
}

func TestEngine_LinkSummaryEmpty(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(&stubRowSource{})

	summary, err := engine.LinkSummary(context.Background(), "user-1", "link-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if summary.TotalClicks != 0 || summary.UniqueUsers != 0 || summary.CountriesReached != 0 {
		t.Errorf("expected zeroed summary, got %+v", summary)
	}
	if summary.DailyData == nil || len(summary.DailyData) != 0 {
		t.Errorf("expected empty non-nil daily data, got %v", summary.DailyData)
	}
	if summary.CountryData == nil || len(summary.CountryData) != 0 {
		t.Errorf("expected empty non-nil country data, got %v", summary.CountryData)
	}
}

func TestEngine_SingleClick(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(&stubRowSource{events: []model.ClickEvent{
		event("link-1", "2024-01-15T10:30:00.000Z", "visitor-1", "US"),
	}})

	summary, err := engine.LinkSummary(context.Background(), "user-1", "link-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if summary.TotalClicks != 1 {
		t.Errorf("expected 1 total click, got %d", summary.TotalClicks)
	}
	if summary.UniqueUsers != 1 {
		t.Errorf("expected 1 unique user, got %d", summary.UniqueUsers)
	}
	if summary.CountriesReached != 1 {
		t.Errorf("expected 1 country, got %d", summary.CountriesReached)
	}

	if len(summary.DailyData) != 1 {
		t.Fatalf("expected 1 daily row, got %d", len(summary.DailyData))
	}
	day := summary.DailyData[0]
	if day.Date != "2024-01-15" || day.Clicks != 1 || day.UniqueUsers != 1 || day.Countries != 1 {
		t.Errorf("unexpected daily row: %+v", day)
	}

	if len(summary.CountryData) != 1 {
		t.Fatalf("expected 1 country row, got %d", len(summary.CountryData))
	}
	country := summary.CountryData[0]
	if country.Country != "US" || country.Clicks != 1 || country.Percentage != 100 {
		t.Errorf("unexpected country row: %+v", country)
	}
}

func TestEngine_VisitorCountedOncePerDay(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(&stubRowSource{events: []model.ClickEvent{
		event("link-1", "2024-01-15T10:00:00.000Z", "visitor-1", "US"),
		event("link-1", "2024-01-15T11:00:00.000Z", "visitor-1", "US"),
		event("link-1", "2024-01-15T12:00:00.000Z", "visitor-2", "DE"),
	}})

	summary, err := engine.LinkSummary(context.Background(), "user-1", "link-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if summary.TotalClicks != 3 {
		t.Errorf("expected 3 total clicks, got %d", summary.TotalClicks)
	}
	if summary.UniqueUsers != 2 {
		t.Errorf("expected 2 unique users, got %d", summary.UniqueUsers)
	}
	if summary.UniqueUsers > summary.TotalClicks {
		t.Error("unique users must never exceed total clicks")
	}
}

func TestEngine_DailyDataChronologicalActivityOnly(t *testing.T) {
	t.Parallel()

	// Days arrive out of order, with a gap on the 16th
	engine := newTestEngine(&stubRowSource{events: []model.ClickEvent{
		event("link-1", "2024-01-17T10:00:00.000Z", "v1", "US"),
		event("link-1", "2024-01-15T10:00:00.000Z", "v2", "US"),
		event("link-1", "2024-01-17T11:00:00.000Z", "v3", "DE"),
	}})

	summary, err := engine.LinkSummary(context.Background(), "user-1", "link-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(summary.DailyData) != 2 {
		t.Fatalf("expected 2 activity days (no gap fill), got %d", len(summary.DailyData))
	}
	if summary.DailyData[0].Date != "2024-01-15" || summary.DailyData[1].Date != "2024-01-17" {
		t.Errorf("expected chronological order, got %+v", summary.DailyData)
	}
	if summary.DailyData[1].Clicks != 2 || summary.DailyData[1].Countries != 2 {
		t.Errorf("unexpected aggregates for 2024-01-17: %+v", summary.DailyData[1])
	}
}

func TestEngine_CountryBreakdown(t *testing.T) {
	t.Parallel()

	events := []model.ClickEvent{
		event("link-1", "2024-01-15T10:00:00.000Z", "v1", "US"),
		event("link-1", "2024-01-15T11:00:00.000Z", "v2", "US"),
		event("link-1", "2024-01-15T12:00:00.000Z", "v3", "US"),
		event("link-1", "2024-01-15T13:00:00.000Z", "v4", "DE"),
		// missing geo counts toward totals but not countries
		event("link-1", "2024-01-15T14:00:00.000Z", "v5", ""),
	}
	engine := newTestEngine(&stubRowSource{events: events})

	summary, err := engine.LinkSummary(context.Background(), "user-1", "link-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if summary.TotalClicks != 5 {
		t.Errorf("expected 5 total clicks, got %d", summary.TotalClicks)
	}
	if summary.CountriesReached != 2 {
		t.Errorf("expected 2 countries reached, got %d", summary.CountriesReached)
	}
	if len(summary.CountryData) != 2 {
		t.Fatalf("expected 2 country rows, got %d", len(summary.CountryData))
	}

	if summary.CountryData[0].Country != "US" || summary.CountryData[0].Clicks != 3 {
		t.Errorf("expected US first with 3 clicks, got %+v", summary.CountryData[0])
	}
	if summary.CountryData[0].Percentage != 60 {
		t.Errorf("expected 60%% for US, got %v", summary.CountryData[0].Percentage)
	}
	if summary.CountryData[1].Percentage != 20 {
		t.Errorf("expected 20%% for DE, got %v", summary.CountryData[1].Percentage)
	}

	var sum float64
	for _, row := range summary.CountryData {
		if row.Clicks > summary.TotalClicks {
			t.Errorf("country clicks exceed total: %+v", row)
		}
		sum += row.Percentage
	}
	if sum > 100.05 {
		t.Errorf("percentages sum above 100: %v", sum)
	}
}

func TestEngine_CountryBreakdownCapped(t *testing.T) {
	t.Parallel()

	var events []model.ClickEvent
	codes := []string{
		"AD", "AE", "AF", "AG", "AI", "AL", "AM", "AO", "AR", "AT",
		"AU", "AW", "AZ", "BA", "BB", "BD", "BE", "BF", "BG", "BH",
		"BI", "BJ", "BM",
	}
	for _, code := range codes {
		events = append(events, event("link-1", "2024-01-15T10:00:00.000Z", "v"+code, code))
	}
	engine := newTestEngine(&stubRowSource{events: events})

	summary, err := engine.LinkSummary(context.Background(), "user-1", "link-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if summary.CountriesReached != int64(len(codes)) {
		t.Errorf("expected %d countries reached, got %d", len(codes), summary.CountriesReached)
	}
	if len(summary.CountryData) != maxCountryRows {
		t.Errorf("expected breakdown capped at %d rows, got %d", maxCountryRows, len(summary.CountryData))
	}
}

func TestEngine_AggregationIdempotent(t *testing.T) {
	t.Parallel()

	base := []model.ClickEvent{
		event("link-1", "2024-01-15T10:00:00.000Z", "v1", "US"),
		event("link-1", "2024-01-16T11:00:00.000Z", "v2", "DE"),
		event("link-1", "2024-01-16T12:00:00.000Z", "v1", "US"),
		event("link-1", "2024-01-17T09:00:00.000Z", "v3", "FR"),
		event("link-1", "2024-01-17T10:00:00.000Z", "v4", ""),
	}

	first, err := newTestEngine(&stubRowSource{events: base}).LinkSummary(context.Background(), "user-1", "link-1")
	if err != nil {
		t.Fatalf("first aggregation: %v", err)
	}
	want, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := make([]model.ClickEvent, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got, err := newTestEngine(&stubRowSource{events: shuffled}).LinkSummary(context.Background(), "user-1", "link-1")
		if err != nil {
			t.Fatalf("aggregation %d: %v", i, err)
		}
		encoded, err := json.Marshal(got)
		if err != nil {
			t.Fatalf("marshal %d: %v", i, err)
		}
		if string(encoded) != string(want) {
			t.Fatalf("aggregation not order-independent:\nwant %s\ngot  %s", want, encoded)
		}
	}
}

func TestEngine_SummaryGroupsPerLink(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(&stubRowSource{events: []model.ClickEvent{
		event("link-a", "2024-01-15T10:00:00.000Z", "v1", "US"),
		event("link-b", "2024-01-15T11:00:00.000Z", "v1", "US"),
		event("link-b", "2024-01-15T12:00:00.000Z", "v2", "DE"),
	}})

	summaries, err := engine.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("expected 2 link summaries, got %d", len(summaries))
	}
	// Ordered by total clicks descending
	if summaries[0].LinkID != "link-b" || summaries[0].TotalClicks != 2 {
		t.Errorf("expected link-b first with 2 clicks, got %+v", summaries[0])
	}
	if summaries[1].LinkID != "link-a" || summaries[1].TotalClicks != 1 {
		t.Errorf("expected link-a second with 1 click, got %+v", summaries[1])
	}
}

func TestEngine_NilStoreDegradesToEmpty(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(nil)

	summaries, err := engine.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected no error in degraded mode, got %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected no summaries, got %d", len(summaries))
	}

	summary, err := engine.LinkSummary(context.Background(), "user-1", "link-1")
	if err != nil {
		t.Fatalf("expected no error in degraded mode, got %v", err)
	}
	if summary.TotalClicks != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}

func TestEngine_StoreErrorPropagates(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(&stubRowSource{err: errors.New("query failed")})

	if _, err := engine.Summary(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestEngine_LinkMetadataFromLatestEvent(t *testing.T) {
	t.Parallel()

	older := event("link-1", "2024-01-15T10:00:00.000Z", "v1", "US")
	older.LinkTitle = "Old Title"
	newer := event("link-1", "2024-01-16T10:00:00.000Z", "v2", "US")
	newer.LinkTitle = "New Title"

	engine := newTestEngine(&stubRowSource{events: []model.ClickEvent{older, newer}})

	summary, err := engine.LinkSummary(context.Background(), "user-1", "link-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.LinkTitle != "New Title" {
		t.Errorf("expected metadata from latest event, got %s", summary.LinkTitle)
	}
}
