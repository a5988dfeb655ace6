package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linkbio/linkbio/internal/handler/dto"
)

// OwnerCacheInvalidator drops a handle's owner-resolution cache entries.
type OwnerCacheInvalidator interface {
	DeleteOwner(ctx context.Context, username string) error
}

// AdminHandler serves operational endpoints behind the admin scope.
type AdminHandler struct {
	cache  OwnerCacheInvalidator
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cache OwnerCacheInvalidator, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		cache:  cache,
		logger: logger.With("component", "handler.admin"),
	}
}

// InvalidateOwner handles DELETE /api/v1/admin/cache/owners/{username}.
// Profile renames happen in the external profile store; this clears the
// stale handle mapping (and any negative entry) ahead of the TTL.
func (h *AdminHandler) InvalidateOwner(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "Username is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if err := h.cache.DeleteOwner(r.Context(), username); err != nil {
		h.logger.Error("failed to invalidate owner cache",
			"username", username,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error: "Failed to invalidate cache",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	h.logger.Info("owner cache invalidated", "username", username)
	writeJSON(w, http.StatusOK, dto.TrackResponse{Success: true})
}
