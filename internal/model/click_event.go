// Package model defines domain entities for the application.
package model

import "time"

// TimestampLayout is the wire format for event timestamps.
// RFC 3339 with millisecond precision, always UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Location holds the geolocation resolved from the caller's network
// address by the hosting edge. Every field may be empty; the object
// itself is always present on an event.
type Location struct {
	Country   string `json:"country"`
	Region    string `json:"region"`
	City      string `json:"city"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// ClickEvent is a single click on a profile link, enriched server-side.
// Events are append-only: link title and URL are snapshots taken at click
// time and are never retroactively relabeled.
type ClickEvent struct {
	EventID   string `json:"eventId"`   // ULID (time-sortable, idempotency key)
	Timestamp string `json:"timestamp"` // Server-assigned, TimestampLayout

	// Page owner, resolved server-side. Never trusted from client input.
	ProfileUsername string `json:"profileUsername"`
	ProfileUserID   string `json:"profileUserId"`

	// Clicked link, denormalized at click time.
	LinkID    string `json:"linkId"`
	LinkTitle string `json:"linkTitle"`
	LinkURL   string `json:"linkUrl"`

	// Request metadata (truncated, never empty user agent).
	UserAgent string `json:"userAgent"`
	Referrer  string `json:"referrer"`

	// Privacy-safe visitor identity: SHA256(IP + UA + daily salt)[0:16].
	VisitorID string `json:"visitorId"`

	Location Location `json:"location"`
}

// Time parses the event timestamp. Returns the zero time on parse failure.
func (e *ClickEvent) Time() time.Time {
	t, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// DailyAggregate is one day of activity for a link, derived on each query.
type DailyAggregate struct {
	Date        string `json:"date"` // ISO date (UTC)
	Clicks      int64  `json:"clicks"`
	UniqueUsers int64  `json:"uniqueUsers"`
	Countries   int64  `json:"countries"`
}

// CountryAggregate is the click share of a single country within the
// queried window. Percentage is computed against total clicks in scope.
type CountryAggregate struct {
	Country    string  `json:"country"`
	Clicks     int64   `json:"clicks"`
	Percentage float64 `json:"percentage"`
}

// LinkAnalyticsSummary is the read-side materialization for one link (or
// an owner-wide rollup). Built fresh per request; zero values and empty
// slices are the canonical "no analytics yet" state, not an error.
type LinkAnalyticsSummary struct {
	LinkID           string             `json:"linkId"`
	LinkTitle        string             `json:"linkTitle"`
	LinkURL          string             `json:"linkUrl"`
	TotalClicks      int64              `json:"totalClicks"`
	UniqueUsers      int64              `json:"uniqueUsers"`
	CountriesReached int64              `json:"countriesReached"`
	DailyData        []DailyAggregate   `json:"dailyData"`
	CountryData      []CountryAggregate `json:"countryData"`
}
