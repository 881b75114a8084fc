package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/domain/repositories"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/cache"
)

// TransferService provides business logic for stored transfer queries
type TransferService struct {
	transferRepo repositories.TransferEventRepository
	cache        *cache.RedisCache
	logger       *zap.Logger
}

// NewTransferService creates a new transfer service
func NewTransferService(
	transferRepo repositories.TransferEventRepository,
	cache *cache.RedisCache,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		transferRepo: transferRepo,
		cache:        cache,
		logger:       logger,
	}
}

// TransferResponse is the API response for transfer queries
type TransferResponse struct {
	Transfers []TransferDTO `json:"transfers"`
	Total     int64         `json:"total"`
	Limit     int           `json:"limit"`
	Offset    int           `json:"offset"`
	HasMore   bool          `json:"has_more"`
}

// TransferDTO is the API representation of a transfer
type TransferDTO struct {
	Chain           string `json:"chain"`
	Provider        string `json:"provider"`
	FacilitatorID   string `json:"facilitator_id"`
	TxHash          string `json:"tx_hash"`
	BlockTimestamp  string `json:"block_timestamp"`
	TokenAddress    string `json:"token_address"`
	TransactionFrom string `json:"transaction_from"`
	Sender          string `json:"sender"`
	Recipient       string `json:"recipient"`
	Amount          int64  `json:"amount"`
	AmountFormatted string `json:"amount_formatted"`
	Decimals        int    `json:"decimals"`
}

// ToTransferDTO converts a stored transfer into its API representation
func ToTransferDTO(t entities.TransferEvent) TransferDTO {
	return TransferDTO{
		Chain:           string(t.Chain),
		Provider:        string(t.Provider),
		FacilitatorID:   t.FacilitatorID,
		TxHash:          t.TxHash,
		BlockTimestamp:  t.BlockTimestamp.UTC().Format(time.RFC3339),
		TokenAddress:    t.Address,
		TransactionFrom: t.TransactionFrom,
		Sender:          t.Sender,
		Recipient:       t.Recipient,
		Amount:          t.Amount,
		AmountFormatted: decimal.New(t.Amount, int32(-t.Decimals)).String(),
		Decimals:        t.Decimals,
	}
}

// GetTransfers retrieves transfers based on filter
func (s *TransferService) GetTransfers(ctx context.Context, filter entities.TransferEventFilter) (*TransferResponse, error) {
	// Generate cache key
	cacheKey := s.generateCacheKey(filter)

	// Try cache first
	var cached TransferResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	// Query database
	transfers, err := s.transferRepo.GetByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers: %w", err)
	}

	total, err := s.transferRepo.GetCount(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer count: %w", err)
	}

	dtos := make([]TransferDTO, len(transfers))
	for i, t := range transfers {
		dtos[i] = ToTransferDTO(t)
	}

	response := &TransferResponse{
		Transfers: dtos,
		Total:     total,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
		HasMore:   int64(filter.Offset+len(transfers)) < total,
	}

	// Cache the response
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

// generateCacheKey generates a unique cache key for the filter
func (s *TransferService) generateCacheKey(filter entities.TransferEventFilter) string {
	var parts []string

	if filter.Chain != nil {
		parts = append(parts, "chain:"+string(*filter.Chain))
	}
	if filter.Provider != nil {
		parts = append(parts, "provider:"+string(*filter.Provider))
	}
	if filter.FacilitatorID != nil {
		parts = append(parts, "fac:"+*filter.FacilitatorID)
	}
	if filter.Sender != nil {
		parts = append(parts, "from:"+*filter.Sender)
	}
	if filter.Recipient != nil {
		parts = append(parts, "to:"+*filter.Recipient)
	}
	if filter.FromTime != nil {
		parts = append(parts, fmt.Sprintf("ft:%d", filter.FromTime.Unix()))
	}
	if filter.ToTime != nil {
		parts = append(parts, fmt.Sprintf("tt:%d", filter.ToTime.Unix()))
	}

	parts = append(parts, fmt.Sprintf("l:%d:o:%d", filter.Limit, filter.Offset))

	key := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(key))
	return "transfers:" + hex.EncodeToString(hash[:8])
}
