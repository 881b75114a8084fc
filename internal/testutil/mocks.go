package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/domain/repositories"
)

// MockTransferEventRepository is an in-memory TransferEventRepository that
// enforces natural-key uniqueness like the real table
type MockTransferEventRepository struct {
	mu        sync.RWMutex
	transfers []entities.TransferEvent
	keys      map[string]struct{}
	nextID    int64

	// Function hooks for custom behavior
	FindMostRecentFunc      func(ctx context.Context, chain entities.Chain, provider entities.Provider, facilitatorID string) (*entities.TransferEvent, error)
	InsertManyFunc          func(ctx context.Context, transfers []entities.TransferEvent) (int64, error)
	GetByFilterFunc         func(ctx context.Context, filter entities.TransferEventFilter) ([]entities.TransferEvent, error)
	GetCountFunc            func(ctx context.Context, filter entities.TransferEventFilter) (int64, error)
	GetFacilitatorStatsFunc func(ctx context.Context, facilitatorID string) ([]repositories.FacilitatorStats, error)

	// Call tracking
	Calls []MockCall
}

type MockCall struct {
	Method string
	Args   []interface{}
}

var _ repositories.TransferEventRepository = (*MockTransferEventRepository)(nil)

func NewMockTransferEventRepository() *MockTransferEventRepository {
	return &MockTransferEventRepository{
		transfers: make([]entities.TransferEvent, 0),
		keys:      make(map[string]struct{}),
		Calls:     make([]MockCall, 0),
	}
}

func (m *MockTransferEventRepository) track(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockTransferEventRepository) FindMostRecent(ctx context.Context, chain entities.Chain, provider entities.Provider, facilitatorID string) (*entities.TransferEvent, error) {
	m.track("FindMostRecent", chain, provider, facilitatorID)

	if m.FindMostRecentFunc != nil {
		return m.FindMostRecentFunc(ctx, chain, provider, facilitatorID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *entities.TransferEvent
	for i := range m.transfers {
		t := m.transfers[i]
		if t.Chain != chain || t.Provider != provider || t.FacilitatorID != facilitatorID {
			continue
		}
		if latest == nil || t.BlockTimestamp.After(latest.BlockTimestamp) {
			latest = &t
		}
	}
	return latest, nil
}

func (m *MockTransferEventRepository) InsertMany(ctx context.Context, transfers []entities.TransferEvent) (int64, error) {
	m.track("InsertMany", transfers)

	if m.InsertManyFunc != nil {
		return m.InsertManyFunc(ctx, transfers)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var inserted int64
	for _, t := range transfers {
		key := t.NaturalKey()
		if _, ok := m.keys[key]; ok {
			continue
		}
		m.keys[key] = struct{}{}
		m.nextID++
		t.ID = m.nextID
		m.transfers = append(m.transfers, t)
		inserted++
	}
	return inserted, nil
}

func (m *MockTransferEventRepository) GetByFilter(ctx context.Context, filter entities.TransferEventFilter) ([]entities.TransferEvent, error) {
	m.track("GetByFilter", filter)

	if m.GetByFilterFunc != nil {
		return m.GetByFilterFunc(ctx, filter)
	}

	result := m.filter(filter)

	// Apply pagination
	start := filter.Offset
	if start > len(result) {
		return []entities.TransferEvent{}, nil
	}
	end := start + filter.Limit
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

func (m *MockTransferEventRepository) GetCount(ctx context.Context, filter entities.TransferEventFilter) (int64, error) {
	m.track("GetCount", filter)

	if m.GetCountFunc != nil {
		return m.GetCountFunc(ctx, filter)
	}
	return int64(len(m.filter(filter))), nil
}

func (m *MockTransferEventRepository) filter(filter entities.TransferEventFilter) []entities.TransferEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.TransferEvent, 0)
	for _, t := range m.transfers {
		if filter.Chain != nil && t.Chain != *filter.Chain {
			continue
		}
		if filter.Provider != nil && t.Provider != *filter.Provider {
			continue
		}
		if filter.FacilitatorID != nil && t.FacilitatorID != *filter.FacilitatorID {
			continue
		}
		if filter.Sender != nil && t.Sender != *filter.Sender {
			continue
		}
		if filter.Recipient != nil && t.Recipient != *filter.Recipient {
			continue
		}
		if filter.FromTime != nil && t.BlockTimestamp.Before(*filter.FromTime) {
			continue
		}
		if filter.ToTime != nil && !t.BlockTimestamp.Before(*filter.ToTime) {
			continue
		}
		result = append(result, t)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].BlockTimestamp.After(result[j].BlockTimestamp)
	})
	return result
}

func (m *MockTransferEventRepository) GetFacilitatorStats(ctx context.Context, facilitatorID string) ([]repositories.FacilitatorStats, error) {
	m.track("GetFacilitatorStats", facilitatorID)

	if m.GetFacilitatorStatsFunc != nil {
		return m.GetFacilitatorStatsFunc(ctx, facilitatorID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type streamKey struct {
		chain    entities.Chain
		provider entities.Provider
	}
	byStream := make(map[streamKey]*repositories.FacilitatorStats)
	recipients := make(map[streamKey]map[string]struct{})
	var order []streamKey

	for _, t := range m.transfers {
		if t.FacilitatorID != facilitatorID {
			continue
		}
		k := streamKey{t.Chain, t.Provider}
		s, ok := byStream[k]
		if !ok {
			s = &repositories.FacilitatorStats{FacilitatorID: facilitatorID, Chain: t.Chain, Provider: t.Provider, TotalAmount: "0"}
			byStream[k] = s
			recipients[k] = make(map[string]struct{})
			order = append(order, k)
		}
		s.TotalTransfers++
		recipients[k][t.Recipient] = struct{}{}
		ts := t.BlockTimestamp
		if s.FirstTransferAt == nil || ts.Before(*s.FirstTransferAt) {
			s.FirstTransferAt = &ts
		}
		if s.LastTransferAt == nil || ts.After(*s.LastTransferAt) {
			s.LastTransferAt = &ts
		}
	}

	out := make([]repositories.FacilitatorStats, 0, len(order))
	for _, k := range order {
		s := byStream[k]
		s.UniqueRecipients = int64(len(recipients[k]))
		out = append(out, *s)
	}
	return out, nil
}

// AddTransfers seeds the repository, bypassing duplicate detection
func (m *MockTransferEventRepository) AddTransfers(transfers ...entities.TransferEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range transfers {
		m.keys[t.NaturalKey()] = struct{}{}
		m.transfers = append(m.transfers, t)
	}
}

// All returns every stored transfer
func (m *MockTransferEventRepository) All() []entities.TransferEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entities.TransferEvent, len(m.transfers))
	copy(out, m.transfers)
	return out
}

// CallCount returns how many times method was called
func (m *MockTransferEventRepository) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *MockTransferEventRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers = make([]entities.TransferEvent, 0)
	m.keys = make(map[string]struct{})
	m.Calls = make([]MockCall, 0)
}

// MockSyncRunRepository is a mock implementation of SyncRunRepository
type MockSyncRunRepository struct {
	mu   sync.RWMutex
	runs []entities.SyncRun

	CreateFunc     func(ctx context.Context, run *entities.SyncRun) error
	FinishFunc     func(ctx context.Context, run *entities.SyncRun) error
	ListRecentFunc func(ctx context.Context, jobID string, limit int) ([]entities.SyncRun, error)
}

var _ repositories.SyncRunRepository = (*MockSyncRunRepository)(nil)

func NewMockSyncRunRepository() *MockSyncRunRepository {
	return &MockSyncRunRepository{runs: make([]entities.SyncRun, 0)}
}

func (m *MockSyncRunRepository) Create(ctx context.Context, run *entities.SyncRun) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, run)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *MockSyncRunRepository) Finish(ctx context.Context, run *entities.SyncRun) error {
	if m.FinishFunc != nil {
		return m.FinishFunc(ctx, run)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = *run
			return nil
		}
	}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *MockSyncRunRepository) ListRecent(ctx context.Context, jobID string, limit int) ([]entities.SyncRun, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, jobID, limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entities.SyncRun, 0)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if jobID != "" && m.runs[i].JobID != jobID {
			continue
		}
		out = append(out, m.runs[i])
	}
	return out, nil
}

// AddRuns seeds runs in chronological order
func (m *MockSyncRunRepository) AddRuns(runs ...entities.SyncRun) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, runs...)
}

// MockHealthChecker is a mock health checker
type MockHealthChecker struct {
	HealthCheckFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return nil
}

// NewMockHealthChecker returns a checker that is healthy or always fails
func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	m := &MockHealthChecker{}
	if !healthy {
		m.HealthCheckFunc = func(ctx context.Context) error {
			return errors.New("connection refused")
		}
	}
	return m
}
