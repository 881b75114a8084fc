package provider

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bimakw/facilitator-indexer/internal/domain"
	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// ScaleAmount converts a human-readable token amount into the token's
// smallest unit, rounding half away from zero
func ScaleAmount(amount decimal.Decimal, decimals int) (int64, error) {
	scaled := amount.Shift(int32(decimals)).Round(0)
	if scaled.Abs().GreaterThan(maxAmount) {
		return 0, fmt.Errorf("amount %s overflows int64 at %d decimals", amount, decimals)
	}
	return scaled.IntPart(), nil
}

// parseBlockTime parses the timestamp formats returned by the supported
// indexers and always returns UTC
func parseBlockTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999-07",
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp: %s", s)
}

// normalizeAddress lowercases EVM addresses; base58 addresses are case-sensitive
func normalizeAddress(chain entities.Chain, addr string) string {
	if chain.IsEVM() {
		return strings.ToLower(addr)
	}
	return addr
}

// rowBuilder accumulates the first missing-field error while a transform
// copies fields out of a decoded row
type rowBuilder struct {
	index int
	err   error
}

func (b *rowBuilder) str(field, v string) string {
	if b.err == nil && v == "" {
		b.err = &domain.MalformedResponseError{Field: fmt.Sprintf("[%d].%s", b.index, field)}
	}
	return v
}

func (b *rowBuilder) amount(field string, v *decimal.Decimal, decimals int) int64 {
	if b.err != nil {
		return 0
	}
	if v == nil {
		b.err = &domain.MalformedResponseError{Field: fmt.Sprintf("[%d].%s", b.index, field)}
		return 0
	}
	scaled, err := ScaleAmount(*v, decimals)
	if err != nil {
		b.err = &domain.MalformedResponseError{Field: fmt.Sprintf("[%d].%s", b.index, field), Err: err}
	}
	return scaled
}

func (b *rowBuilder) timestamp(field, v string) time.Time {
	if b.err != nil {
		return time.Time{}
	}
	if v == "" {
		b.err = &domain.MalformedResponseError{Field: fmt.Sprintf("[%d].%s", b.index, field)}
		return time.Time{}
	}
	t, err := parseBlockTime(v)
	if err != nil {
		b.err = &domain.MalformedResponseError{Field: fmt.Sprintf("[%d].%s", b.index, field), Err: err}
	}
	return t
}

// formatTime renders query bounds in a stable, second-precision-or-better form
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
