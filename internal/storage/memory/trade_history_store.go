package memory

import (
	"context"
	"sort"
	"sync"

	"arb-console/internal/domain"
	"arb-console/internal/storage"
)

// TradeHistoryStore is an in-memory implementation of storage.TradeHistoryStore.
type TradeHistoryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by trade id
}

// NewTradeHistoryStore creates a new in-memory trade history store.
func NewTradeHistoryStore() *TradeHistoryStore {
	return &TradeHistoryStore{
		data: make(map[string]*domain.Trade),
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if the id exists.
func (s *TradeHistoryStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.ID] = &copy
	return nil
}

// Upsert inserts the trade or replaces the stored row for its id.
func (s *TradeHistoryStore) Upsert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *t
	s.data[t.ID] = &copy
	return nil
}

// GetByID retrieves a trade by its id. Returns ErrNotFound if not exists.
func (s *TradeHistoryStore) GetByID(_ context.Context, id string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// GetByTimeRange retrieves trades within [start, end] ms, ordered by timestamp DESC.
func (s *TradeHistoryStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.Timestamp >= start && t.Timestamp <= end {
			copy := *t
			result = append(result, &copy)
		}
	}

	sortNewestFirst(result)
	return result, nil
}

// GetByPair retrieves all trades for a pair, ordered by timestamp DESC.
func (s *TradeHistoryStore) GetByPair(_ context.Context, pair string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.Pair == pair {
			copy := *t
			result = append(result, &copy)
		}
	}

	sortNewestFirst(result)
	return result, nil
}

// GetRecent retrieves the most recent trades, newest first.
func (s *TradeHistoryStore) GetRecent(_ context.Context, limit int) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trade, 0, len(s.data))
	for _, t := range s.data {
		copy := *t
		result = append(result, &copy)
	}

	sortNewestFirst(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func sortNewestFirst(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].Timestamp > trades[j].Timestamp
	})
}

var _ storage.TradeHistoryStore = (*TradeHistoryStore)(nil)
