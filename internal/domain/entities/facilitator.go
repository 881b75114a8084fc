package entities

import (
	"time"
)

// Token describes the asset a facilitator's transfers are tracked for
type Token struct {
	Address  string `yaml:"address" json:"address"`
	Decimals int    `yaml:"decimals" json:"decimals"`
	Symbol   string `yaml:"symbol" json:"symbol"`
}

// Facilitator is a known on-chain address whose outgoing token transfers are synced
type Facilitator struct {
	ID            string     `yaml:"id" json:"id"`
	Chain         Chain      `yaml:"chain" json:"chain"`
	Address       string     `yaml:"address" json:"address"`
	Token         Token      `yaml:"token" json:"token"`
	Enabled       bool       `yaml:"enabled" json:"enabled"`
	SyncStartDate *time.Time `yaml:"-" json:"sync_start_date,omitempty"`
}

// PairKey returns the (chain, token, address) identity that must be unique
// across the configured facilitator set
func (f Facilitator) PairKey() string {
	return string(f.Chain) + ":" + f.Token.Address + ":" + f.Address
}
