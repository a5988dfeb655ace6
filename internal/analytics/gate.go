package analytics

import "github.com/linkbio/linkbio/internal/model"

// Capabilities gated by subscription tier.
const (
	CapabilityOverview  = "overview"
	CapabilityCountries = "countries"
)

// Allowed reports whether a tier grants a capability.
// Free sees no analytics, pro sees the overview, ultra sees everything.
func Allowed(tier model.AccessTier, capability string) bool {
	switch capability {
	case CapabilityOverview:
		return tier == model.TierPro || tier == model.TierUltra
	case CapabilityCountries:
		return tier == model.TierUltra
	default:
		return false
	}
}

// Upsell messages shown in place of locked panels.
const (
	upsellOverviewMessage  = "Upgrade to unlock analytics"
	upsellCountriesMessage = "Upgrade to Ultra to unlock country analytics"
)

// Placeholder replaces a locked analytics panel.
type Placeholder struct {
	Message      string           `json:"message"`
	RequiredTier model.AccessTier `json:"requiredTier"`
}

// OverviewPanel holds the aggregates visible from the pro tier up.
type OverviewPanel struct {
	TotalClicks int64                  `json:"totalClicks"`
	UniqueUsers int64                  `json:"uniqueUsers"`
	DailyData   []model.DailyAggregate `json:"dailyData"`
}

// CountryPanel holds the geographic aggregates visible to ultra only.
type CountryPanel struct {
	CountriesReached int64                    `json:"countriesReached"`
	CountryData      []model.CountryAggregate `json:"countryData"`
}

// GatedLinkAnalytics is a per-link summary filtered by tier. Exactly
// one of Overview/Upsell is set, and one of Countries/CountriesUpsell.
type GatedLinkAnalytics struct {
	LinkID          string         `json:"linkId"`
	LinkTitle       string         `json:"linkTitle"`
	LinkURL         string         `json:"linkUrl"`
	Overview        *OverviewPanel `json:"overview,omitempty"`
	Upsell          *Placeholder   `json:"upsell,omitempty"`
	Countries       *CountryPanel  `json:"countries,omitempty"`
	CountriesUpsell *Placeholder   `json:"countriesUpsell,omitempty"`
}

// Apply filters a full link summary down to what a tier may see.
// Locked sections carry an upsell placeholder instead of data; no
// locked number leaks through.
func Apply(tier model.AccessTier, summary model.LinkAnalyticsSummary) GatedLinkAnalytics {
	gated := GatedLinkAnalytics{
		LinkID:    summary.LinkID,
		LinkTitle: summary.LinkTitle,
		LinkURL:   summary.LinkURL,
	}

	if Allowed(tier, CapabilityOverview) {
		gated.Overview = &OverviewPanel{
			TotalClicks: summary.TotalClicks,
			UniqueUsers: summary.UniqueUsers,
			DailyData:   summary.DailyData,
		}
	} else {
		gated.Upsell = &Placeholder{
			Message:      upsellOverviewMessage,
			RequiredTier: model.TierPro,
		}
	}

	if Allowed(tier, CapabilityCountries) {
		gated.Countries = &CountryPanel{
			CountriesReached: summary.CountriesReached,
			CountryData:      summary.CountryData,
		}
	} else {
		gated.CountriesUpsell = &Placeholder{
			Message:      upsellCountriesMessage,
			RequiredTier: model.TierUltra,
		}
	}

	return gated
}

// ApplyAll gates a list of link summaries.
func ApplyAll(tier model.AccessTier, summaries []model.LinkAnalyticsSummary) []GatedLinkAnalytics {
	gated := make([]GatedLinkAnalytics, 0, len(summaries))
	for _, s := range summaries {
		gated = append(gated, Apply(tier, s))
	}
	return gated
}
