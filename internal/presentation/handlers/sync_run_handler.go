package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/application/services"
)

// SyncRunHandler serves the sync run history
type SyncRunHandler struct {
	service *services.SyncRunService
	logger  *zap.Logger
}

// NewSyncRunHandler creates a new sync run handler
func NewSyncRunHandler(service *services.SyncRunService, logger *zap.Logger) *SyncRunHandler {
	return &SyncRunHandler{service: service, logger: logger}
}

// RegisterRoutes registers the sync run routes
func (h *SyncRunHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sync-runs", h.ListSyncRuns)
}

// ListSyncRuns handles GET /sync-runs?job=&limit=
func (h *SyncRunHandler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = l
	}

	response, err := h.service.ListRecent(r.Context(), r.URL.Query().Get("job"), limit)
	if err != nil {
		h.logger.Error("Failed to list sync runs", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to list sync runs")
		return
	}

	respondJSON(w, http.StatusOK, response)
}
