package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `contract_address, fetched_at, total_volume, active_users, total_staked, transactions_24h`

// Insert adds a snapshot. Returns ErrDuplicateKey if (contract_address, fetched_at) exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.MetricsSnapshot) (err error) {
	if err := storage.ValidateSnapshot(snap); err != nil {
		return err
	}
	defer func(start time.Time) { observe("insert_snapshot", start, err) }(time.Now())

	query := `INSERT INTO metrics_snapshots (` + snapshotColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = s.pool.Exec(ctx, query,
		snap.ContractAddress,
		snap.FetchedAt,
		snap.TotalVolume,
		snap.ActiveUsers,
		snap.TotalStaked,
		snap.Transactions24h,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert metrics snapshot: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot. Returns ErrNotFound if none exists.
func (s *SnapshotStore) GetLatest(ctx context.Context, contractAddress string) (_ *domain.MetricsSnapshot, err error) {
	defer func(start time.Time) { observe("get_latest_snapshot", start, err) }(time.Now())

	query := `
		SELECT ` + snapshotColumns + `
		FROM metrics_snapshots
		WHERE contract_address = $1
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, contractAddress))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest metrics snapshot: %w", err)
	}
	return snap, nil
}

// GetByTimeRange retrieves snapshots within [start, end] (inclusive), ordered by fetched_at ASC.
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, contractAddress string, start, end int64) (_ []*domain.MetricsSnapshot, err error) {
	defer func(t time.Time) { observe("get_snapshot_range", t, err) }(time.Now())

	query := `
		SELECT ` + snapshotColumns + `
		FROM metrics_snapshots
		WHERE contract_address = $1 AND fetched_at >= $2 AND fetched_at <= $3
		ORDER BY fetched_at ASC
	`

	rows, err := s.pool.Query(ctx, query, contractAddress, start, end)
	if err != nil {
		return nil, fmt.Errorf("query metrics snapshots by time range: %w", err)
	}
	defer rows.Close()

	var result []*domain.MetricsSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metrics snapshot: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics snapshots: %w", err)
	}
	return result, nil
}

// scanSnapshot scans a single row into MetricsSnapshot.
func scanSnapshot(row pgx.Row) (*domain.MetricsSnapshot, error) {
	var snap domain.MetricsSnapshot

	err := row.Scan(
		&snap.ContractAddress,
		&snap.FetchedAt,
		&snap.TotalVolume,
		&snap.ActiveUsers,
		&snap.TotalStaked,
		&snap.Transactions24h,
	)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
