package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/domain/repositories"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/cache"
)

// FacilitatorCatalog is the configured facilitator table
type FacilitatorCatalog interface {
	All() []entities.Facilitator
	Find(id string) []entities.Facilitator
}

// FacilitatorService provides facilitator listings and per-stream statistics
type FacilitatorService struct {
	catalog      FacilitatorCatalog
	transferRepo repositories.TransferEventRepository
	cache        *cache.RedisCache
	logger       *zap.Logger
}

// NewFacilitatorService creates a new facilitator service
func NewFacilitatorService(
	catalog FacilitatorCatalog,
	transferRepo repositories.TransferEventRepository,
	cache *cache.RedisCache,
	logger *zap.Logger,
) *FacilitatorService {
	return &FacilitatorService{
		catalog:      catalog,
		transferRepo: transferRepo,
		cache:        cache,
		logger:       logger,
	}
}

// StreamStats is the API representation of one (chain, provider) stream
type StreamStats struct {
	Chain            string `json:"chain"`
	Provider         string `json:"provider"`
	TotalTransfers   int64  `json:"total_transfers"`
	TotalAmount      string `json:"total_amount"`
	UniqueRecipients int64  `json:"unique_recipients"`
	FirstTransferAt  string `json:"first_transfer_at"`
	LastTransferAt   string `json:"last_transfer_at"`
}

// FacilitatorDTO is the API representation of a configured facilitator
type FacilitatorDTO struct {
	ID            string        `json:"id"`
	Chain         string        `json:"chain"`
	Address       string        `json:"address"`
	Token         string        `json:"token"`
	Symbol        string        `json:"symbol"`
	Enabled       bool          `json:"enabled"`
	SyncStartDate string        `json:"sync_start_date,omitempty"`
	Streams       []StreamStats `json:"streams"`
}

// FacilitatorListResponse is the API response for the facilitator listing
type FacilitatorListResponse struct {
	Data []FacilitatorDTO `json:"data"`
}

// FacilitatorStatsResponse is the API response for one facilitator id
type FacilitatorStatsResponse struct {
	Data []FacilitatorDTO `json:"data"`
}

// ListFacilitators returns every configured facilitator with its stored
// transfer statistics
func (s *FacilitatorService) ListFacilitators(ctx context.Context) (*FacilitatorListResponse, error) {
	cacheKey := "facilitators:all"

	var cached FacilitatorListResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	dtos, err := s.build(ctx, s.catalog.All())
	if err != nil {
		return nil, err
	}
	response := &FacilitatorListResponse{Data: dtos}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, cacheKey, response, 60*time.Second); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

// GetFacilitatorStats returns statistics for every chain a facilitator id is
// configured on. It returns nil when the id is unknown.
func (s *FacilitatorService) GetFacilitatorStats(ctx context.Context, id string) (*FacilitatorStatsResponse, error) {
	facs := s.catalog.Find(id)
	if len(facs) == 0 {
		return nil, nil
	}

	cacheKey := fmt.Sprintf("facilitator_stats:%s", id)

	var cached FacilitatorStatsResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	dtos, err := s.build(ctx, facs)
	if err != nil {
		return nil, err
	}
	response := &FacilitatorStatsResponse{Data: dtos}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, cacheKey, response, 60*time.Second); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

func (s *FacilitatorService) build(ctx context.Context, facs []entities.Facilitator) ([]FacilitatorDTO, error) {
	statsByID := make(map[string][]repositories.FacilitatorStats)

	dtos := make([]FacilitatorDTO, 0, len(facs))
	for _, f := range facs {
		stats, ok := statsByID[f.ID]
		if !ok {
			var err error
			stats, err = s.transferRepo.GetFacilitatorStats(ctx, f.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to get facilitator stats: %w", err)
			}
			statsByID[f.ID] = stats
		}

		dto := FacilitatorDTO{
			ID:      f.ID,
			Chain:   string(f.Chain),
			Address: f.Address,
			Token:   f.Token.Address,
			Symbol:  f.Token.Symbol,
			Enabled: f.Enabled,
			Streams: make([]StreamStats, 0),
		}
		if f.SyncStartDate != nil {
			dto.SyncStartDate = f.SyncStartDate.Format("2006-01-02")
		}

		for _, st := range stats {
			if st.Chain != f.Chain {
				continue
			}
			dto.Streams = append(dto.Streams, toStreamStats(st, f.Token.Decimals))
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

func toStreamStats(st repositories.FacilitatorStats, decimals int) StreamStats {
	out := StreamStats{
		Chain:            string(st.Chain),
		Provider:         string(st.Provider),
		TotalTransfers:   st.TotalTransfers,
		TotalAmount:      "0",
		UniqueRecipients: st.UniqueRecipients,
	}

	if total, err := decimal.NewFromString(st.TotalAmount); err == nil {
		out.TotalAmount = total.Shift(int32(-decimals)).String()
	}
	if st.FirstTransferAt != nil {
		out.FirstTransferAt = st.FirstTransferAt.UTC().Format(time.RFC3339)
	}
	if st.LastTransferAt != nil {
		out.LastTransferAt = st.LastTransferAt.UTC().Format(time.RFC3339)
	}
	return out
}
