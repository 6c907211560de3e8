package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/storage"
)

type snapshotKey struct {
	contract  string
	fetchedAt int64
}

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.MetricsSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[snapshotKey]*domain.MetricsSnapshot),
	}
}

// Insert adds a snapshot. Returns ErrDuplicateKey if (contract_address, fetched_at) exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.MetricsSnapshot) error {
	if err := storage.ValidateSnapshot(snap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey{snap.ContractAddress, snap.FetchedAt}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *snap
	s.data[key] = &copy
	return nil
}

// GetLatest retrieves the most recent snapshot of a contract.
func (s *SnapshotStore) GetLatest(_ context.Context, contractAddress string) (*domain.MetricsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.MetricsSnapshot
	for key, snap := range s.data {
		if key.contract != contractAddress {
			continue
		}
		if latest == nil || snap.FetchedAt > latest.FetchedAt {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	copy := *latest
	return &copy, nil
}

// GetByTimeRange retrieves snapshots within [start, end] (inclusive), ordered by fetched_at ASC.
func (s *SnapshotStore) GetByTimeRange(_ context.Context, contractAddress string, start, end int64) ([]*domain.MetricsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MetricsSnapshot
	for key, snap := range s.data {
		if key.contract == contractAddress && key.fetchedAt >= start && key.fetchedAt <= end {
			copy := *snap
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FetchedAt < result[j].FetchedAt
	})

	return result, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
