// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/linkbio/linkbio/internal/analytics"
	"github.com/linkbio/linkbio/internal/model"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// TrackResponse is returned for accepted tracking requests.
type TrackResponse struct {
	Success bool `json:"success"`
}

// AnalyticsResponse is the dashboard analytics envelope.
type AnalyticsResponse struct {
	Tier        model.AccessTier               `json:"tier"`
	GeneratedAt string                         `json:"generatedAt"`
	Links       []analytics.GatedLinkAnalytics `json:"links"`
}

// LinkAnalyticsResponse wraps a single link's gated analytics.
type LinkAnalyticsResponse struct {
	Tier        model.AccessTier             `json:"tier"`
	GeneratedAt string                       `json:"generatedAt"`
	Link        analytics.GatedLinkAnalytics `json:"link"`
}
