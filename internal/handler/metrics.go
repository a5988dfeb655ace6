package handler

import (
	"net/http"

	"github.com/linkbio/linkbio/internal/metrics"
)

// MetricsHandler exposes in-process counters for debugging.
type MetricsHandler struct {
	recorder *metrics.InMemory
}

// NewMetricsHandler creates a metrics debug handler.
func NewMetricsHandler(recorder *metrics.InMemory) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

// Snapshot handles GET /debug/metrics.
// Requires admin scope; wired behind the auth middleware.
func (h *MetricsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.recorder.Snapshot())
}
