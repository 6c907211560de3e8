package storage

import (
	"context"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
)

// SnapshotStore provides access to persisted metric snapshots.
type SnapshotStore interface {
	// Insert adds a snapshot. Returns ErrDuplicateKey if (contract_address, fetched_at) exists.
	Insert(ctx context.Context, s *domain.MetricsSnapshot) error

	// GetLatest retrieves the most recent snapshot of a contract. Returns ErrNotFound if none.
	GetLatest(ctx context.Context, contractAddress string) (*domain.MetricsSnapshot, error)

	// GetByTimeRange retrieves snapshots within [start, end] (inclusive), ordered by fetched_at ASC.
	GetByTimeRange(ctx context.Context, contractAddress string, start, end int64) ([]*domain.MetricsSnapshot, error)
}
