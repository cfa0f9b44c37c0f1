package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/goodtune/worktime/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "worktime.db"))
	if err != nil {
		t.Fatalf("Failed to open bolt store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestEraStore_CurrentPointer(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Eras().Current(ctx, "alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing current era, got %v", err)
	}

	first := &storage.Era{ID: storage.NewID(), UserID: "alice", Description: "thesis", CreatedAt: 100}
	second := &storage.Era{ID: storage.NewID(), UserID: "alice", Description: "job hunt", CreatedAt: 200}

	for _, era := range []*storage.Era{first, second} {
		if err := store.Eras().Create(ctx, era); err != nil {
			t.Fatalf("Create era failed: %v", err)
		}
	}

	if err := store.Eras().SetCurrent(ctx, "alice", first.ID); err != nil {
		t.Fatalf("SetCurrent failed: %v", err)
	}
	if err := store.Eras().SetCurrent(ctx, "alice", second.ID); err != nil {
		t.Fatalf("SetCurrent failed: %v", err)
	}

	current, err := store.Eras().Current(ctx, "alice")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.ID != second.ID {
		t.Errorf("Expected current era %s, got %s", second.ID, current.ID)
	}

	// The pointer is single-valued: exactly one listed era is current.
	eras, err := store.Eras().List(ctx, "alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(eras) != 2 {
		t.Fatalf("Expected 2 eras, got %d", len(eras))
	}
	currentCount := 0
	for _, era := range eras {
		if era.Current {
			currentCount++
		}
	}
	if currentCount != 1 {
		t.Errorf("Expected exactly 1 current era, got %d", currentCount)
	}
	if eras[0].ID != first.ID {
		t.Errorf("Expected eras ordered by creation time, got %s first", eras[0].ID)
	}
}

func TestEraStore_AnonymousUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	era := &storage.Era{ID: storage.NewID(), UserID: "", Description: "default", CreatedAt: 50}
	if err := store.Eras().Create(ctx, era); err != nil {
		t.Fatalf("Create era failed: %v", err)
	}
	if err := store.Eras().SetCurrent(ctx, "", era.ID); err != nil {
		t.Fatalf("SetCurrent failed: %v", err)
	}

	current, err := store.Eras().Current(ctx, "")
	if err != nil {
		t.Fatalf("Current failed for anonymous user: %v", err)
	}
	if current.ID != era.ID {
		t.Errorf("Expected era %s, got %s", era.ID, current.ID)
	}
}

func TestPeriodStore_OpenPointer(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	eraID := storage.NewID()

	if _, err := store.Periods().Open(ctx, eraID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing open period, got %v", err)
	}

	period := &storage.Period{ID: storage.NewID(), EraID: eraID, Mode: "w", Start: 1000}
	if err := store.Periods().Create(ctx, period); err != nil {
		t.Fatalf("Create period failed: %v", err)
	}

	open, err := store.Periods().Open(ctx, eraID)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if open.ID != period.ID {
		t.Errorf("Expected open period %s, got %s", period.ID, open.ID)
	}

	if err := store.Periods().Close(ctx, eraID, period.ID, 1600); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := store.Periods().Open(ctx, eraID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after closing, got %v", err)
	}

	closed, err := store.Periods().Get(ctx, period.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if closed.End != 1600 {
		t.Errorf("Expected end 1600, got %d", closed.End)
	}
	if closed.Elapsed(9999) != 600 {
		t.Errorf("Expected elapsed 600, got %d", closed.Elapsed(9999))
	}
}

func TestPeriodStore_ListEndingSince(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	eraID := storage.NewID()

	old := &storage.Period{ID: storage.NewID(), EraID: eraID, Mode: "w", Start: 0, End: 500}
	recent := &storage.Period{ID: storage.NewID(), EraID: eraID, Mode: "p", Start: 500, End: 2000}
	open := &storage.Period{ID: storage.NewID(), EraID: eraID, Mode: "n", Start: 2000}

	for _, p := range []*storage.Period{old, recent, open} {
		if err := store.Periods().Create(ctx, p); err != nil {
			t.Fatalf("Create period failed: %v", err)
		}
	}

	periods, err := store.Periods().ListEndingSince(ctx, eraID, 1000)
	if err != nil {
		t.Fatalf("ListEndingSince failed: %v", err)
	}
	if len(periods) != 2 {
		t.Fatalf("Expected 2 periods ending since 1000, got %d", len(periods))
	}
	if periods[0].ID != recent.ID || periods[1].ID != open.ID {
		t.Error("Expected periods ordered by start with open period last")
	}

	all, err := store.Periods().ListEndingSince(ctx, eraID, 0)
	if err != nil {
		t.Fatalf("ListEndingSince failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected full history with cutoff 0, got %d periods", len(all))
	}
}

func TestAdjustmentStore_ListSince(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	eraID := storage.NewID()

	early := &storage.Adjustment{ID: storage.NewID(), EraID: eraID, Mode: "w", Delta: 300, Timestamp: 100}
	late := &storage.Adjustment{ID: storage.NewID(), EraID: eraID, Mode: "p", Delta: -120, Timestamp: 900}

	for _, adj := range []*storage.Adjustment{early, late} {
		if err := store.Adjustments().Create(ctx, adj); err != nil {
			t.Fatalf("Create adjustment failed: %v", err)
		}
	}

	adjs, err := store.Adjustments().ListSince(ctx, eraID, 500)
	if err != nil {
		t.Fatalf("ListSince failed: %v", err)
	}
	if len(adjs) != 1 || adjs[0].ID != late.ID {
		t.Errorf("Expected only the late adjustment, got %d entries", len(adjs))
	}

	all, err := store.Adjustments().ListSince(ctx, eraID, 0)
	if err != nil {
		t.Fatalf("ListSince failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 adjustments, got %d", len(all))
	}
}

func TestTotalStore_IncrementUpsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	eraID := storage.NewID()

	if _, err := store.Totals().Get(ctx, eraID, "w"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing total, got %v", err)
	}

	if err := store.Totals().Increment(ctx, eraID, "w", 30); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if err := store.Totals().Increment(ctx, eraID, "w", -50); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	// No clamping at the ledger layer: totals may go negative.
	total, err := store.Totals().Get(ctx, eraID, "w")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if total.Elapsed != -20 {
		t.Errorf("Expected total -20, got %d", total.Elapsed)
	}

	if err := store.Totals().Increment(ctx, eraID, "p", 100); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	totals, err := store.Totals().List(ctx, eraID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(totals) != 2 {
		t.Errorf("Expected 2 totals, got %d", len(totals))
	}
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	eraID := storage.NewID()

	errBoom := errors.New("boom")
	err := store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Periods().Create(ctx, &storage.Period{ID: storage.NewID(), EraID: eraID, Mode: "w", Start: 10}); err != nil {
			return err
		}
		if err := tx.Totals().Increment(ctx, eraID, "w", 100); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Expected boom error, got %v", err)
	}

	if _, err := store.Periods().Open(ctx, eraID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("Expected no open period after rollback")
	}
	if _, err := store.Totals().Get(ctx, eraID, "w"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("Expected no total after rollback")
	}
}
