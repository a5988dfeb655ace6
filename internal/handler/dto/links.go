package dto

import "github.com/linkbio/linkbio/internal/model"

// ProfileLinkResponse is one link entry in the dashboard listing.
type ProfileLinkResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	SortOrder int    `json:"sortOrder"`
}

// LinksResponse is the dashboard link listing envelope.
type LinksResponse struct {
	Links []ProfileLinkResponse `json:"links"`
}

// ToLinksResponse converts profile store rows to the wire format.
func ToLinksResponse(links []*model.ProfileLink) LinksResponse {
	out := make([]ProfileLinkResponse, 0, len(links))
	for _, link := range links {
		out = append(out, ProfileLinkResponse{
			ID:        link.ID,
			Title:     link.Title,
			URL:       link.URL,
			SortOrder: link.SortOrder,
		})
	}
	return LinksResponse{Links: out}
}
