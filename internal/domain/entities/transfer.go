package entities

import (
	"strconv"
	"time"
)

// Chain identifies the network a transfer occurred on
type Chain string

const (
	ChainBase    Chain = "base"
	ChainPolygon Chain = "polygon"
	ChainSolana  Chain = "solana"
)

// IsEVM reports whether addresses on the chain are 0x-prefixed hex
func (c Chain) IsEVM() bool {
	return c == ChainBase || c == ChainPolygon
}

// Valid reports whether the chain is one the syncer knows about
func (c Chain) Valid() bool {
	switch c {
	case ChainBase, ChainPolygon, ChainSolana:
		return true
	}
	return false
}

// Provider identifies the indexer that produced a transfer record
type Provider string

const (
	ProviderBitquery Provider = "bitquery"
	ProviderBigQuery Provider = "bigquery"
)

// TransferEvent is the canonical, persisted USDC transfer record
type TransferEvent struct {
	ID              int64     `db:"id"`
	Chain           Chain     `db:"chain"`
	Provider        Provider  `db:"provider"`
	Address         string    `db:"address"`
	TransactionFrom string    `db:"transaction_from"`
	Sender          string    `db:"sender"`
	Recipient       string    `db:"recipient"`
	Amount          int64     `db:"amount"` // token smallest unit
	BlockTimestamp  time.Time `db:"block_timestamp"`
	TxHash          string    `db:"tx_hash"`
	Decimals        int       `db:"decimals"`
	FacilitatorID   string    `db:"facilitator_id"`
	CreatedAt       time.Time `db:"created_at"`
}

// NaturalKey returns the tuple that uniquely identifies a transfer in storage
func (t TransferEvent) NaturalKey() string {
	return string(t.Chain) + "|" + t.TxHash + "|" + t.Address + "|" +
		t.Sender + "|" + t.Recipient + "|" + strconv.FormatInt(t.Amount, 10) + "|" + string(t.Provider)
}

// TransferEventFilter contains filters for querying stored transfers
type TransferEventFilter struct {
	Chain         *Chain
	Provider      *Provider
	FacilitatorID *string
	Sender        *string
	Recipient     *string
	FromTime      *time.Time
	ToTime        *time.Time
	Limit         int
	Offset        int
}

// DefaultTransferEventFilter returns a filter with sensible defaults
func DefaultTransferEventFilter() TransferEventFilter {
	return TransferEventFilter{
		Limit:  100,
		Offset: 0,
	}
}
