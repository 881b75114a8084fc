package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
)

//go:embed facilitators.yaml
var defaultFacilitators []byte

const startDateLayout = "2006-01-02"

type facilitatorFile struct {
	Facilitators []facilitatorEntry `yaml:"facilitators"`
}

type facilitatorEntry struct {
	entities.Facilitator `yaml:",inline"`
	SyncStartDate        string `yaml:"sync_start_date"`
}

// Facilitators is the immutable facilitator table built once at start-up
type Facilitators struct {
	all []entities.Facilitator
}

// LoadFacilitators reads the facilitator table from path, or from the
// embedded default table when path is empty, and validates it
func LoadFacilitators(path string) (*Facilitators, error) {
	data := defaultFacilitators
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read facilitators file: %w", err)
		}
		data = raw
	}
	return ParseFacilitators(data)
}

// ParseFacilitators decodes and validates a YAML facilitator table
func ParseFacilitators(data []byte) (*Facilitators, error) {
	var file facilitatorFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse facilitators: %w", err)
	}

	list := make([]entities.Facilitator, 0, len(file.Facilitators))
	for i, entry := range file.Facilitators {
		f := entry.Facilitator
		if entry.SyncStartDate != "" {
			t, err := time.ParseInLocation(startDateLayout, entry.SyncStartDate, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("facilitator #%d (%s): invalid sync_start_date %q: %w", i, f.ID, entry.SyncStartDate, err)
			}
			f.SyncStartDate = &t
		}
		list = append(list, f)
	}

	if err := ValidateFacilitators(list); err != nil {
		return nil, err
	}
	return &Facilitators{all: list}, nil
}

// ValidateFacilitators normalizes addresses in place and checks every entry.
// (chain, token, address) and (chain, id) must both be unique.
func ValidateFacilitators(list []entities.Facilitator) error {
	pairs := make(map[string]string, len(list))
	ids := make(map[string]struct{}, len(list))

	for i := range list {
		f := &list[i]
		if f.ID == "" {
			return fmt.Errorf("facilitator #%d: id is required", i)
		}
		if !f.Chain.Valid() {
			return fmt.Errorf("facilitator %s: unknown chain %q", f.ID, f.Chain)
		}
		if f.Token.Decimals < 0 || f.Token.Decimals > 18 {
			return fmt.Errorf("facilitator %s: token decimals %d out of range", f.ID, f.Token.Decimals)
		}

		addr, err := normalizeAddress(f.Chain, f.Address)
		if err != nil {
			return fmt.Errorf("facilitator %s: address: %w", f.ID, err)
		}
		f.Address = addr

		token, err := normalizeAddress(f.Chain, f.Token.Address)
		if err != nil {
			return fmt.Errorf("facilitator %s: token address: %w", f.ID, err)
		}
		f.Token.Address = token

		key := f.PairKey()
		if other, ok := pairs[key]; ok {
			return fmt.Errorf("duplicate facilitator address/token pair %s (ids %s and %s)", key, other, f.ID)
		}
		pairs[key] = f.ID

		idKey := string(f.Chain) + ":" + f.ID
		if _, ok := ids[idKey]; ok {
			return fmt.Errorf("duplicate facilitator id %s on chain %s", f.ID, f.Chain)
		}
		ids[idKey] = struct{}{}
	}

	return nil
}

func normalizeAddress(chain entities.Chain, addr string) (string, error) {
	if chain.IsEVM() {
		if !common.IsHexAddress(addr) {
			return "", fmt.Errorf("%q is not a hex address", addr)
		}
		return strings.ToLower(common.HexToAddress(addr).Hex()), nil
	}

	decoded, err := base58.Decode(addr)
	if err != nil {
		return "", fmt.Errorf("%q is not base58: %w", addr, err)
	}
	if len(decoded) != 32 {
		return "", fmt.Errorf("%q decodes to %d bytes, want 32", addr, len(decoded))
	}
	return addr, nil
}

// All returns every configured facilitator, enabled or not
func (f *Facilitators) All() []entities.Facilitator {
	out := make([]entities.Facilitator, len(f.all))
	copy(out, f.all)
	return out
}

// ForChain returns the enabled facilitators of a chain in configuration
// order, optionally restricted to the given ids
func (f *Facilitators) ForChain(chain entities.Chain, ids []string) []entities.Facilitator {
	allow := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allow[id] = struct{}{}
	}

	var out []entities.Facilitator
	for _, fac := range f.all {
		if fac.Chain != chain || !fac.Enabled {
			continue
		}
		if len(allow) > 0 {
			if _, ok := allow[fac.ID]; !ok {
				continue
			}
		}
		out = append(out, fac)
	}
	return out
}

// Find returns the facilitators with the given id across all chains
func (f *Facilitators) Find(id string) []entities.Facilitator {
	var out []entities.Facilitator
	for _, fac := range f.all {
		if fac.ID == id {
			out = append(out, fac)
		}
	}
	return out
}
