package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/application/services"
)

// FacilitatorHandler serves the configured facilitators and their stored
// transfer statistics
type FacilitatorHandler struct {
	service *services.FacilitatorService
	logger  *zap.Logger
}

// NewFacilitatorHandler creates a new facilitator handler
func NewFacilitatorHandler(service *services.FacilitatorService, logger *zap.Logger) *FacilitatorHandler {
	return &FacilitatorHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the facilitator routes
func (h *FacilitatorHandler) RegisterRoutes(r chi.Router) {
	r.Get("/facilitators", h.ListFacilitators)
	r.Get("/facilitators/{id}/stats", h.GetFacilitatorStats)
}

// ListFacilitators handles GET /facilitators
func (h *FacilitatorHandler) ListFacilitators(w http.ResponseWriter, r *http.Request) {
	response, err := h.service.ListFacilitators(r.Context())
	if err != nil {
		h.logger.Error("Failed to list facilitators", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to list facilitators")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// GetFacilitatorStats handles GET /facilitators/{id}/stats
func (h *FacilitatorHandler) GetFacilitatorStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "facilitator id is required")
		return
	}

	response, err := h.service.GetFacilitatorStats(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get facilitator stats", zap.Error(err), zap.String("facilitator", id))
		respondError(w, http.StatusInternalServerError, "Failed to get facilitator stats")
		return
	}

	if response == nil {
		respondError(w, http.StatusNotFound, "facilitator not found")
		return
	}

	respondJSON(w, http.StatusOK, response)
}
