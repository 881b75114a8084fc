// Package provider implements the chain-indexer query contract: building a
// provider-specific query for a time range and turning the raw response
// into canonical transfer events.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

// TimeRange is a half-open [Start, End) interval of block times
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Query describes one page request against a provider
type Query struct {
	Range     TimeRange
	Addresses []string
	PageSize  int
	Offset    int
}

// QueryContext is the read-only context a provider needs to build queries
// and stamp transformed records
type QueryContext struct {
	Chain       entities.Chain
	Provider    entities.Provider
	Network     string
	Facilitator entities.Facilitator
}

// Provider is implemented once per indexer integration
type Provider interface {
	Name() entities.Provider

	// BuildQuery returns the query text for all matching transfers in
	// q.Range, newest first, limited to q.PageSize and skipping q.Offset.
	// Identical inputs must produce identical text.
	BuildQuery(q Query, qc QueryContext) (string, error)

	// TransformResponse maps a raw result into canonical transfers. An empty
	// result set yields an empty slice.
	TransformResponse(raw json.RawMessage, qc QueryContext) ([]entities.TransferEvent, error)
}

// Executor sends query text to a backend and returns its raw result payload
type Executor interface {
	Execute(ctx context.Context, query string) (json.RawMessage, error)
}

// Client binds a provider to the executor of one job and one facilitator
type Client struct {
	provider Provider
	executor Executor
	qc       QueryContext
}

// NewClient creates a client for a single (chain, provider, facilitator) stream
func NewClient(p Provider, e Executor, qc QueryContext) *Client {
	return &Client{provider: p, executor: e, qc: qc}
}

// FetchPage builds, executes and transforms a single page
func (c *Client) FetchPage(ctx context.Context, r TimeRange, offset, pageSize int) ([]entities.TransferEvent, error) {
	query, err := c.provider.BuildQuery(Query{
		Range:     r,
		Addresses: []string{c.qc.Facilitator.Address},
		PageSize:  pageSize,
		Offset:    offset,
	}, c.qc)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	raw, err := c.executor.Execute(ctx, query)
	if err != nil {
		return nil, err
	}

	return c.provider.TransformResponse(raw, c.qc)
}

// ForChain returns the provider implementation for a (chain, provider) pairing
func ForChain(chain entities.Chain, p entities.Provider) (Provider, error) {
	switch {
	case p == entities.ProviderBitquery && chain.IsEVM():
		return BitqueryEVM{}, nil
	case p == entities.ProviderBitquery && chain == entities.ChainSolana:
		return BitquerySolana{}, nil
	case p == entities.ProviderBigQuery && chain == entities.ChainSolana:
		return BigQuerySolana{}, nil
	}
	return nil, fmt.Errorf("no provider %s for chain %s", p, chain)
}
