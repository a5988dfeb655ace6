// Package analytics turns raw click events into the aggregate views
// served by the dashboard: per-link totals, daily activity series, and
// country breakdowns, filtered through the caller's subscription tier.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/linkbio/linkbio/internal/eventstore"
	"github.com/linkbio/linkbio/internal/metrics"
	"github.com/linkbio/linkbio/internal/model"
)

// maxCountryRows caps the country breakdown at the top entries.
const maxCountryRows = 20

// RowSource reads raw click events from the event store.
type RowSource interface {
	QueryEvents(ctx context.Context, q eventstore.EventQuery) ([]model.ClickEvent, error)
}

// Engine computes analytics aggregates from raw click events.
// Aggregation is deterministic: the same events in any order produce
// byte-identical results.
type Engine struct {
	store        RowSource
	lookbackDays int
	metrics      metrics.Recorder
	logger       *slog.Logger
	now          func() time.Time
}

// NewEngine creates an aggregation engine. A nil store puts the engine
// in degraded mode: every query succeeds with empty results.
func NewEngine(store RowSource, lookbackDays int, rec metrics.Recorder, logger *slog.Logger) *Engine {
	if rec == nil {
		rec = metrics.NewNoop()
	}
	return &Engine{
		store:        store,
		lookbackDays: lookbackDays,
		metrics:      rec,
		logger:       logger.With("component", "analytics"),
		now:          time.Now,
	}
}

// LinkSummary aggregates the events of a single link for an owner.
func (e *Engine) LinkSummary(ctx context.Context, ownerID, linkID string) (*model.LinkAnalyticsSummary, error) {
	events, err := e.queryWindow(ctx, ownerID, linkID)
	if err != nil {
		return nil, err
	}

	summary := aggregateLink(linkID, events)
	return &summary, nil
}

// Summary aggregates all of an owner's events, grouped per link.
// Links appear only when they have recorded activity, ordered by total
// clicks descending with link id as tiebreak.
func (e *Engine) Summary(ctx context.Context, ownerID string) ([]model.LinkAnalyticsSummary, error) {
	events, err := e.queryWindow(ctx, ownerID, "")
	if err != nil {
		return nil, err
	}

	byLink := make(map[string][]model.ClickEvent)
	for _, ev := range events {
		byLink[ev.LinkID] = append(byLink[ev.LinkID], ev)
	}

	summaries := make([]model.LinkAnalyticsSummary, 0, len(byLink))
	for linkID, linkEvents := range byLink {
		summaries = append(summaries, aggregateLink(linkID, linkEvents))
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].TotalClicks != summaries[j].TotalClicks {
			return summaries[i].TotalClicks > summaries[j].TotalClicks
		}
		return summaries[i].LinkID < summaries[j].LinkID
	})

	return summaries, nil
}

// queryWindow reads the owner's events for the configured lookback
// window. A nil store yields no events rather than an error.
func (e *Engine) queryWindow(ctx context.Context, ownerID, linkID string) ([]model.ClickEvent, error) {
	if e.store == nil {
		e.logger.Debug("event store not configured, returning empty analytics", "owner_id", ownerID)
		return nil, nil
	}

	start := time.Now()
	to := e.now().UTC()
	from := to.AddDate(0, 0, -e.lookbackDays)

	events, err := e.store.QueryEvents(ctx, eventstore.EventQuery{
		OwnerID: ownerID,
		LinkID:  linkID,
		From:    from,
		To:      to,
	})
	e.metrics.ObserveAggregationDuration(time.Since(start))
	if err != nil {
		e.metrics.IncAnalyticsQuery("error")
		return nil, fmt.Errorf("query events: %w", err)
	}

	e.metrics.IncAnalyticsQuery("ok")
	return events, nil
}

// aggregateLink computes the full per-link summary from its events.
func aggregateLink(linkID string, events []model.ClickEvent) model.LinkAnalyticsSummary {
	summary := model.LinkAnalyticsSummary{
		LinkID:      linkID,
		DailyData:   []model.DailyAggregate{},
		CountryData: []model.CountryAggregate{},
	}

	if len(events) == 0 {
		return summary
	}

	// Link metadata comes from the most recent event's snapshot.
	latest := events[0]
	for _, ev := range events[1:] {
		if ev.Timestamp > latest.Timestamp {
			latest = ev
		}
	}
	summary.LinkTitle = latest.LinkTitle
	summary.LinkURL = latest.LinkURL

	visitors := make(map[string]struct{})
	countries := make(map[string]struct{})
	countryClicks := make(map[string]int)

	type dayStats struct {
		clicks    int
		visitors  map[string]struct{}
		countries map[string]struct{}
	}
	byDay := make(map[string]*dayStats)

	for _, ev := range events {
		summary.TotalClicks++
		if ev.VisitorID != "" {
			visitors[ev.VisitorID] = struct{}{}
		}

		country := ev.Location.Country
		if country != "" {
			countries[country] = struct{}{}
			countryClicks[country]++
		}

		day := eventDay(ev)
		stats, ok := byDay[day]
		if !ok {
			stats = &dayStats{
				visitors:  make(map[string]struct{}),
				countries: make(map[string]struct{}),
			}
			byDay[day] = stats
		}
		stats.clicks++
		if ev.VisitorID != "" {
			stats.visitors[ev.VisitorID] = struct{}{}
		}
		if country != "" {
			stats.countries[country] = struct{}{}
		}
	}

	summary.UniqueUsers = int64(len(visitors))
	summary.CountriesReached = int64(len(countries))

	// Daily series: activity days only, chronological.
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		stats := byDay[day]
		summary.DailyData = append(summary.DailyData, model.DailyAggregate{
			Date:        day,
			Clicks:      int64(stats.clicks),
			UniqueUsers: int64(len(stats.visitors)),
			Countries:   int64(len(stats.countries)),
		})
	}

	// Country breakdown: clicks descending, country code as tiebreak,
	// capped at the top rows. Percentages are computed against ALL
	// clicks, so rows never sum above 100 even when geo is missing.
	names := make([]string, 0, len(countryClicks))
	for country := range countryClicks {
		names = append(names, country)
	}
	sort.Slice(names, func(i, j int) bool {
		if countryClicks[names[i]] != countryClicks[names[j]] {
			return countryClicks[names[i]] > countryClicks[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > maxCountryRows {
		names = names[:maxCountryRows]
	}
	for _, country := range names {
		clicks := countryClicks[country]
		summary.CountryData = append(summary.CountryData, model.CountryAggregate{
			Country:    country,
			Clicks:     int64(clicks),
			Percentage: roundPercentage(float64(clicks) * 100 / float64(summary.TotalClicks)),
		})
	}

	return summary
}

// eventDay extracts the UTC calendar day of an event as YYYY-MM-DD.
// Falls back to lexical slicing when the timestamp doesn't parse,
// which holds for any ISO-8601 string.
func eventDay(ev model.ClickEvent) string {
	if t := ev.Time(); !t.IsZero() {
		return t.UTC().Format("2006-01-02")
	}
	if len(ev.Timestamp) >= 10 {
		return ev.Timestamp[:10]
	}
	return ev.Timestamp
}

// roundPercentage rounds to one decimal place.
func roundPercentage(p float64) float64 {
	return float64(int(p*10+0.5)) / 10
}
