package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/application/services"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

const maxTransferLimit = 1000

// TransferHandler handles HTTP requests for stored transfers
type TransferHandler struct {
	service *services.TransferService
	logger  *zap.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(service *services.TransferService, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the transfer routes
func (h *TransferHandler) RegisterRoutes(r chi.Router) {
	r.Get("/transfers", h.GetTransfers)
	r.Get("/facilitators/{id}/transfers", h.GetFacilitatorTransfers)
}

// GetTransfers handles GET /transfers
func (h *TransferHandler) GetTransfers(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransferFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.serve(w, r, filter)
}

// GetFacilitatorTransfers handles GET /facilitators/{id}/transfers
func (h *TransferHandler) GetFacilitatorTransfers(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransferFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	filter.FacilitatorID = &id
	h.serve(w, r, filter)
}

func (h *TransferHandler) serve(w http.ResponseWriter, r *http.Request, filter entities.TransferEventFilter) {
	response, err := h.service.GetTransfers(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to get transfers", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get transfers")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// parseTransferFilter reads the transfer query parameters. Unknown chains,
// providers, malformed addresses and timestamps are rejected; out of range
// limit and offset fall back to the defaults.
func parseTransferFilter(r *http.Request) (entities.TransferEventFilter, error) {
	q := r.URL.Query()
	filter := entities.DefaultTransferEventFilter()

	if v := q.Get("chain"); v != "" {
		chain := entities.Chain(strings.ToLower(v))
		if !chain.Valid() {
			return filter, fmt.Errorf("unknown chain %q", v)
		}
		filter.Chain = &chain
	}
	if v := q.Get("provider"); v != "" {
		provider := entities.Provider(strings.ToLower(v))
		if provider != entities.ProviderBitquery && provider != entities.ProviderBigQuery {
			return filter, fmt.Errorf("unknown provider %q", v)
		}
		filter.Provider = &provider
	}
	if v := q.Get("facilitator"); v != "" {
		filter.FacilitatorID = &v
	}
	if v := q.Get("sender"); v != "" {
		addr, err := normalizeAddressParam(v)
		if err != nil {
			return filter, fmt.Errorf("invalid sender: %w", err)
		}
		filter.Sender = &addr
	}
	if v := q.Get("recipient"); v != "" {
		addr, err := normalizeAddressParam(v)
		if err != nil {
			return filter, fmt.Errorf("invalid recipient: %w", err)
		}
		filter.Recipient = &addr
	}
	if v := q.Get("from_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid from_time, expected RFC3339")
		}
		t = t.UTC()
		filter.FromTime = &t
	}
	if v := q.Get("to_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid to_time, expected RFC3339")
		}
		t = t.UTC()
		filter.ToTime = &t
	}
	if filter.FromTime != nil && filter.ToTime != nil && !filter.FromTime.Before(*filter.ToTime) {
		return filter, fmt.Errorf("from_time must be before to_time")
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= maxTransferLimit {
			filter.Limit = limit
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	return filter, nil
}

// normalizeAddressParam lowercases hex addresses and checks that anything
// else is a 32-byte base58 account
func normalizeAddressParam(addr string) (string, error) {
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		if !common.IsHexAddress(addr) {
			return "", fmt.Errorf("%q is not a hex address", addr)
		}
		return strings.ToLower(addr), nil
	}

	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return "", fmt.Errorf("%q is not a valid address", addr)
	}
	return addr, nil
}
