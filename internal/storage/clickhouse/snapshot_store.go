package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore on the metrics_timeseries table.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a snapshot. Returns ErrDuplicateKey if (contract_address, fetched_at) exists.
// MergeTree does not enforce uniqueness, so existence is checked first.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.MetricsSnapshot) (err error) {
	if err := storage.ValidateSnapshot(snap); err != nil {
		return err
	}
	defer func(start time.Time) { observe("insert_snapshot", start, err) }(time.Now())

	exists, err := s.exists(ctx, snap.ContractAddress, snap.FetchedAt)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metrics_timeseries (
			contract_address, fetched_at, total_volume, active_users, total_staked, transactions_24h
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		snap.ContractAddress, uint64(snap.FetchedAt),
		snap.TotalVolume, uint64(snap.ActiveUsers),
		snap.TotalStaked, uint64(snap.Transactions24h),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot. Returns ErrNotFound if none exists.
func (s *SnapshotStore) GetLatest(ctx context.Context, contractAddress string) (_ *domain.MetricsSnapshot, err error) {
	defer func(start time.Time) { observe("get_latest_snapshot", start, err) }(time.Now())

	query := `
		SELECT contract_address, fetched_at, total_volume, active_users, total_staked, transactions_24h
		FROM metrics_timeseries
		WHERE contract_address = ?
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, contractAddress)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	defer rows.Close()

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, storage.ErrNotFound
	}
	return snaps[0], nil
}

// GetByTimeRange retrieves snapshots within [start, end] (inclusive), ordered by fetched_at ASC.
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, contractAddress string, start, end int64) (_ []*domain.MetricsSnapshot, err error) {
	defer func(t time.Time) { observe("get_snapshot_range", t, err) }(time.Now())

	if start < 0 {
		start = 0
	}
	if end < start {
		return nil, nil
	}

	query := `
		SELECT contract_address, fetched_at, total_volume, active_users, total_staked, transactions_24h
		FROM metrics_timeseries
		WHERE contract_address = ? AND fetched_at >= ? AND fetched_at <= ?
		ORDER BY fetched_at ASC
	`

	rows, err := s.conn.Query(ctx, query, contractAddress, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func (s *SnapshotStore) exists(ctx context.Context, contractAddress string, fetchedAt int64) (bool, error) {
	query := `
		SELECT count(*) FROM metrics_timeseries
		WHERE contract_address = ? AND fetched_at = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, contractAddress, uint64(fetchedAt)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanSnapshots(rows chRows) ([]*domain.MetricsSnapshot, error) {
	var snaps []*domain.MetricsSnapshot

	for rows.Next() {
		var snap domain.MetricsSnapshot
		var fetchedAt, activeUsers, txns uint64

		err := rows.Scan(
			&snap.ContractAddress, &fetchedAt,
			&snap.TotalVolume, &activeUsers,
			&snap.TotalStaked, &txns,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metrics row: %w", err)
		}

		snap.FetchedAt = int64(fetchedAt)
		snap.ActiveUsers = int64(activeUsers)
		snap.Transactions24h = int64(txns)
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics rows: %w", err)
	}
	return snaps, nil
}
