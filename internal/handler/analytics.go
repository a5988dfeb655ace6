package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linkbio/linkbio/internal/analytics"
	"github.com/linkbio/linkbio/internal/auth"
	"github.com/linkbio/linkbio/internal/handler/dto"
	"github.com/linkbio/linkbio/internal/metrics"
	"github.com/linkbio/linkbio/internal/model"
)

// AnalyticsHandler serves the authenticated dashboard analytics API.
type AnalyticsHandler struct {
	engine  *analytics.Engine
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(engine *analytics.Engine, rec metrics.Recorder, logger *slog.Logger) *AnalyticsHandler {
	if rec == nil {
		rec = metrics.NewNoop()
	}
	return &AnalyticsHandler{
		engine:  engine,
		metrics: rec,
		logger:  logger.With("component", "handler.analytics"),
		now:     time.Now,
	}
}

// GetSummary handles GET /api/v1/analytics.
// Returns per-link analytics for every link with recorded activity,
// filtered by the caller's subscription tier.
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	summaries, err := h.engine.Summary(r.Context(), authCtx.UserID)
	if err != nil {
		h.logger.Error("failed to aggregate analytics",
			"user_id", authCtx.UserID,
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch analytics")
		return
	}

	response := dto.AnalyticsResponse{
		Tier:        authCtx.Tier,
		GeneratedAt: h.now().UTC().Format(model.TimestampLayout),
		Links:       analytics.ApplyAll(authCtx.Tier, summaries),
	}

	writeJSON(w, http.StatusOK, response)
}

// GetLinkSummary handles GET /api/v1/analytics/{linkID}.
func (h *AnalyticsHandler) GetLinkSummary(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	linkID := chi.URLParam(r, "linkID")
	if linkID == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Link ID is required")
		return
	}

	summary, err := h.engine.LinkSummary(r.Context(), authCtx.UserID, linkID)
	if err != nil {
		h.logger.Error("failed to aggregate link analytics",
			"user_id", authCtx.UserID,
			"link_id", linkID,
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch analytics")
		return
	}

	response := dto.LinkAnalyticsResponse{
		Tier:        authCtx.Tier,
		GeneratedAt: h.now().UTC().Format(model.TimestampLayout),
		Link:        analytics.Apply(authCtx.Tier, *summary),
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *AnalyticsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}
