package repositories

import (
	"context"
	"time"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

// FacilitatorStats holds aggregated statistics for one facilitator stream
type FacilitatorStats struct {
	FacilitatorID    string
	Chain            entities.Chain
	Provider         entities.Provider
	TotalTransfers   int64
	TotalAmount      string
	UniqueRecipients int64
	FirstTransferAt  *time.Time
	LastTransferAt   *time.Time
}

// TransferEventRepository defines the storage operations used by the syncer
// and the read API
type TransferEventRepository interface {
	// FindMostRecent returns the newest transfer for the stream, or nil when
	// nothing has been stored yet
	FindMostRecent(ctx context.Context, chain entities.Chain, provider entities.Provider, facilitatorID string) (*entities.TransferEvent, error)

	// InsertMany stores transfers, silently skipping natural-key duplicates,
	// and returns how many rows were actually inserted
	InsertMany(ctx context.Context, transfers []entities.TransferEvent) (int64, error)

	// GetByFilter retrieves transfers matching the given filter
	GetByFilter(ctx context.Context, filter entities.TransferEventFilter) ([]entities.TransferEvent, error)

	// GetCount returns the count of transfers matching the filter
	GetCount(ctx context.Context, filter entities.TransferEventFilter) (int64, error)

	// GetFacilitatorStats returns aggregated statistics per (chain, provider)
	// stream for a facilitator
	GetFacilitatorStats(ctx context.Context, facilitatorID string) ([]FacilitatorStats, error)
}
