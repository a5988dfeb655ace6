package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/linkbio/linkbio/internal/auth"
	"github.com/linkbio/linkbio/internal/handler/dto"
	"github.com/linkbio/linkbio/internal/model"
)

// ProfileLinkLister reads a profile's links from the profile store.
type ProfileLinkLister interface {
	ListProfileLinks(ctx context.Context, userID string) ([]*model.ProfileLink, error)
}

// LinksHandler serves the authenticated link listing for the dashboard.
// Link metadata is owned by the external profile store; the dashboard
// joins this listing with per-link analytics client-side.
type LinksHandler struct {
	store  ProfileLinkLister
	logger *slog.Logger
}

// NewLinksHandler creates a new LinksHandler.
func NewLinksHandler(store ProfileLinkLister, logger *slog.Logger) *LinksHandler {
	return &LinksHandler{
		store:  store,
		logger: logger.With("component", "handler.links"),
	}
}

// List handles GET /api/v1/links.
// Returns the caller's links in display order.
func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{
			Error: "Authentication required",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	links, err := h.store.ListProfileLinks(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list profile links",
			"user_id", userID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error: "Failed to fetch links",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLinksResponse(links))
}
