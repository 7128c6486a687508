package memory

import (
	"context"
	"sort"
	"sync"

	"arb-console/internal/domain"
	"arb-console/internal/storage"
)

// PortfolioSnapshotStore is an in-memory implementation of storage.PortfolioSnapshotStore.
type PortfolioSnapshotStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.PortfolioSnapshot // keyed by timestamp ms
}

// NewPortfolioSnapshotStore creates a new in-memory snapshot store.
func NewPortfolioSnapshotStore() *PortfolioSnapshotStore {
	return &PortfolioSnapshotStore{
		data: make(map[int64]*domain.PortfolioSnapshot),
	}
}

// InsertBulk adds multiple snapshots. Fails the entire batch on a duplicate timestamp.
func (s *PortfolioSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.PortfolioSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[int64]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[snap.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[snap.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[snap.Timestamp] = struct{}{}
	}

	for _, snap := range snapshots {
		copy := *snap
		s.data[snap.Timestamp] = &copy
	}
	return nil
}

// GetByTimeRange retrieves snapshots within [start, end] ms, ordered by timestamp ASC.
func (s *PortfolioSnapshotStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PortfolioSnapshot
	for _, snap := range s.data {
		if snap.Timestamp >= start && snap.Timestamp <= end {
			copy := *snap
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}

// Latest returns the most recent snapshot. Returns ErrNotFound when empty.
func (s *PortfolioSnapshotStore) Latest(_ context.Context) (*domain.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.PortfolioSnapshot
	for _, snap := range s.data {
		if latest == nil || snap.Timestamp > latest.Timestamp {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	copy := *latest
	return &copy, nil
}

var _ storage.PortfolioSnapshotStore = (*PortfolioSnapshotStore)(nil)
