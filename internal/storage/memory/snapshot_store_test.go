package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/storage"
)

func snapshot(contract string, fetchedAt int64, volume float64) *domain.MetricsSnapshot {
	return &domain.MetricsSnapshot{
		ContractAddress: contract,
		FetchedAt:       fetchedAt,
		Metrics: domain.Metrics{
			TotalVolume:     volume,
			ActiveUsers:     892,
			TotalStaked:     2300000,
			Transactions24h: 1247,
		},
	}
}

func TestSnapshotStore_InsertAndGetLatest(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, s := range []*domain.MetricsSnapshot{
		snapshot("0xabc", 2000, 200),
		snapshot("0xabc", 3000, 300),
		snapshot("0xabc", 1000, 100),
		snapshot("0xdef", 9000, 900),
	} {
		if err := store.Insert(ctx, s); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	latest, err := store.GetLatest(ctx, "0xabc")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}

	if latest.FetchedAt != 3000 {
		t.Errorf("Expected latest fetched_at 3000, got %d", latest.FetchedAt)
	}
	if latest.TotalVolume != 300 {
		t.Errorf("Expected volume 300, got %f", latest.TotalVolume)
	}
}

func TestSnapshotStore_GetLatestNotFound(t *testing.T) {
	store := NewSnapshotStore()

	_, err := store.GetLatest(context.Background(), "0xabc")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotStore_DuplicateKey(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Insert(ctx, snapshot("0xabc", 1000, 100)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, snapshot("0xabc", 1000, 150))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Same timestamp, different contract is allowed
	if err := store.Insert(ctx, snapshot("0xdef", 1000, 100)); err != nil {
		t.Errorf("Insert for other contract failed: %v", err)
	}
}

func TestSnapshotStore_InvalidInput(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	bad := []*domain.MetricsSnapshot{
		nil,
		snapshot("", 1000, 1),
		snapshot("0xabc", 0, 1),
		snapshot("0xabc", 1000, -1),
	}
	for i, s := range bad {
		if err := store.Insert(ctx, s); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestSnapshotStore_GetByTimeRange(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, ts := range []int64{5000, 1000, 3000, 2000, 4000} {
		if err := store.Insert(ctx, snapshot("0xabc", ts, float64(ts))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByTimeRange(ctx, "0xabc", 2000, 4000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(result))
	}
	for i, want := range []int64{2000, 3000, 4000} {
		if result[i].FetchedAt != want {
			t.Errorf("result[%d]: expected fetched_at %d, got %d", i, want, result[i].FetchedAt)
		}
	}

	empty, err := store.GetByTimeRange(ctx, "0xdef", 0, 10000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no snapshots for other contract, got %d", len(empty))
	}
}

func TestSnapshotStore_ReturnsCopies(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	s := snapshot("0xabc", 1000, 100)
	if err := store.Insert(ctx, s); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	s.TotalVolume = 999

	got, _ := store.GetLatest(ctx, "0xabc")
	if got.TotalVolume != 100 {
		t.Errorf("Store must keep its own copy, got volume %f", got.TotalVolume)
	}
	got.TotalVolume = 555

	again, _ := store.GetLatest(ctx, "0xabc")
	if again.TotalVolume != 100 {
		t.Errorf("GetLatest must return a copy, got volume %f", again.TotalVolume)
	}
}
