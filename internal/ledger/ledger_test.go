package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/goodtune/worktime/internal/clock"
	"github.com/goodtune/worktime/internal/mode"
	"github.com/goodtune/worktime/internal/storage"
	"github.com/goodtune/worktime/internal/storage/bolt"
)

func setupLedger(t *testing.T) (*Ledger, *bolt.Store, *clock.Fake) {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "worktime.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clk := clock.NewFake(1000)
	l := New(store, mode.Default(), clk, zerolog.Nop())
	return l, store, clk
}

func TestSwitchMode_Bootstrap(t *testing.T) {
	l, store, clk := setupLedger(t)
	ctx := context.Background()

	era, err := l.CurrentEra(ctx, "alice", "default")
	if err != nil {
		t.Fatalf("CurrentEra failed: %v", err)
	}

	// First switch: no period was open yet.
	res, err := l.SwitchMode(ctx, era.ID, "w")
	if err != nil {
		t.Fatalf("SwitchMode failed: %v", err)
	}
	if res.Closed || res.NoOp || res.PrevMode != "" {
		t.Errorf("Expected empty result on first switch, got %+v", res)
	}

	clk.Advance(100)

	res, err = l.SwitchMode(ctx, era.ID, "p")
	if err != nil {
		t.Fatalf("SwitchMode failed: %v", err)
	}
	if !res.Closed || res.PrevMode != "w" || res.PrevElapsed != 100 {
		t.Errorf("Expected (w, 100), got %+v", res)
	}

	total, err := store.Totals().Get(ctx, era.ID, "w")
	if err != nil {
		t.Fatalf("Get total failed: %v", err)
	}
	if total.Elapsed != 100 {
		t.Errorf("Expected total 100 for w, got %d", total.Elapsed)
	}

	// The open period's time is not in any total yet.
	if _, err := store.Totals().Get(ctx, era.ID, "p"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected no total for the open period's mode, got %v", err)
	}
}

func TestSwitchMode_SameModeIsNoOp(t *testing.T) {
	l, store, clk := setupLedger(t)
	ctx := context.Background()

	era, _ := l.CurrentEra(ctx, "", "")
	if _, err := l.SwitchMode(ctx, era.ID, "w"); err != nil {
		t.Fatalf("SwitchMode failed: %v", err)
	}

	clk.Advance(50)

	for i := 0; i < 2; i++ {
		res, err := l.SwitchMode(ctx, era.ID, "w")
		if err != nil {
			t.Fatalf("SwitchMode failed: %v", err)
		}
		if !res.NoOp || res.PrevMode != "w" || res.Closed {
			t.Errorf("Expected no-op result, got %+v", res)
		}
	}

	// The open period was not fragmented: exactly one period exists and
	// it is still open with the original start time.
	periods, err := store.Periods().ListEndingSince(ctx, era.ID, 0)
	if err != nil {
		t.Fatalf("ListEndingSince failed: %v", err)
	}
	if len(periods) != 1 {
		t.Fatalf("Expected 1 period, got %d", len(periods))
	}
	if !periods[0].IsOpen() || periods[0].Start != 1000 {
		t.Errorf("Expected the original open period, got %+v", periods[0])
	}
}

func TestSwitchMode_InvalidMode(t *testing.T) {
	l, _, _ := setupLedger(t)
	ctx := context.Background()

	era, _ := l.CurrentEra(ctx, "", "")
	if _, err := l.SwitchMode(ctx, era.ID, "x"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Expected ErrInvalidMode, got %v", err)
	}

	// Empty mode is valid: it opens a "no active mode" period.
	if _, err := l.SwitchMode(ctx, era.ID, ""); err != nil {
		t.Errorf("Expected empty mode to be accepted, got %v", err)
	}
}

func TestSwitchMode_AtMostOneOpenPeriod(t *testing.T) {
	l, store, clk := setupLedger(t)
	ctx := context.Background()

	era, _ := l.CurrentEra(ctx, "", "")
	for _, m := range []string{"w", "p", "n", "s", "w", ""} {
		if _, err := l.SwitchMode(ctx, era.ID, m); err != nil {
			t.Fatalf("SwitchMode(%q) failed: %v", m, err)
		}
		clk.Advance(10)
	}

	periods, err := store.Periods().ListEndingSince(ctx, era.ID, 0)
	if err != nil {
		t.Fatalf("ListEndingSince failed: %v", err)
	}
	openCount := 0
	for _, p := range periods {
		if p.IsOpen() {
			openCount++
		}
	}
	if openCount != 1 {
		t.Errorf("Expected exactly 1 open period, got %d", openCount)
	}

	// Closed periods chain through prev pointers.
	if len(periods) != 6 {
		t.Fatalf("Expected 6 periods, got %d", len(periods))
	}
	for i := 1; i < len(periods); i++ {
		if periods[i].PrevID != periods[i-1].ID {
			t.Errorf("Period %d does not point at its predecessor", i)
		}
	}
}

func TestStatus(t *testing.T) {
	l, _, clk := setupLedger(t)
	ctx := context.Background()

	era, _ := l.CurrentEra(ctx, "", "")

	// No open period is a normal outcome, not an error.
	status, err := l.Status(ctx, era.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status != nil {
		t.Errorf("Expected nil status, got %+v", status)
	}

	if _, err := l.SwitchMode(ctx, era.ID, "n"); err != nil {
		t.Fatalf("SwitchMode failed: %v", err)
	}
	clk.Advance(42)

	status, err = l.Status(ctx, era.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status == nil || status.Mode != "n" || status.Elapsed != 42 {
		t.Errorf("Expected (n, 42), got %+v", status)
	}
}

func TestAddElapsed(t *testing.T) {
	l, store, _ := setupLedger(t)
	ctx := context.Background()

	era, _ := l.CurrentEra(ctx, "", "")

	if err := l.AddElapsed(ctx, era.ID, "w", 30); err != nil {
		t.Fatalf("AddElapsed failed: %v", err)
	}
	// Totals may go negative; the ledger does not clamp.
	if err := l.AddElapsed(ctx, era.ID, "w", -50); err != nil {
		t.Fatalf("AddElapsed failed: %v", err)
	}

	total, err := store.Totals().Get(ctx, era.ID, "w")
	if err != nil {
		t.Fatalf("Get total failed: %v", err)
	}
	if total.Elapsed != -20 {
		t.Errorf("Expected total -20, got %d", total.Elapsed)
	}

	if err := l.AddElapsed(ctx, era.ID, "x", 10); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Expected ErrInvalidMode, got %v", err)
	}

	adjs, err := store.Adjustments().ListSince(ctx, era.ID, 0)
	if err != nil {
		t.Fatalf("ListSince failed: %v", err)
	}
	if len(adjs) != 2 {
		t.Errorf("Expected 2 adjustments, got %d", len(adjs))
	}
}

func TestClear(t *testing.T) {
	l, store, clk := setupLedger(t)
	ctx := context.Background()

	first, _ := l.CurrentEra(ctx, "alice", "original")
	if _, err := l.SwitchMode(ctx, first.ID, "w"); err != nil {
		t.Fatalf("SwitchMode failed: %v", err)
	}
	clk.Advance(200)

	second, err := l.Clear(ctx, "alice", "fresh start")
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("Clear did not create a new era")
	}

	current, err := store.Eras().Current(ctx, "alice")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.ID != second.ID {
		t.Errorf("Expected new era to be current, got %s", current.ID)
	}

	// The old era's open period was closed and folded.
	if _, err := store.Periods().Open(ctx, first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("Expected old era's open period to be closed")
	}
	total, err := store.Totals().Get(ctx, first.ID, "w")
	if err != nil {
		t.Fatalf("Get total failed: %v", err)
	}
	if total.Elapsed != 200 {
		t.Errorf("Expected old era total 200, got %d", total.Elapsed)
	}

	// History is preserved, not deleted.
	eras, err := store.Eras().List(ctx, "alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(eras) != 2 {
		t.Errorf("Expected 2 eras, got %d", len(eras))
	}
}

func TestSwitchEra(t *testing.T) {
	l, store, _ := setupLedger(t)
	ctx := context.Background()

	first, _ := l.CurrentEra(ctx, "alice", "one")
	second, err := l.Clear(ctx, "alice", "two")
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	ok, err := l.SwitchEra(ctx, "alice", "no-such-era")
	if err != nil {
		t.Fatalf("SwitchEra failed: %v", err)
	}
	if ok {
		t.Error("Expected switch to missing era to fail")
	}

	ok, err = l.SwitchEra(ctx, "mallory", first.ID)
	if err != nil {
		t.Fatalf("SwitchEra failed: %v", err)
	}
	if ok {
		t.Error("Expected switch to another user's era to fail")
	}

	ok, err = l.SwitchEra(ctx, "alice", first.ID)
	if err != nil {
		t.Fatalf("SwitchEra failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected switch to own era to succeed")
	}

	current, err := store.Eras().Current(ctx, "alice")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.ID != first.ID {
		t.Errorf("Expected era %s current, got %s", first.ID, current.ID)
	}
	_ = second
}

func TestCurrentEra_Idempotent(t *testing.T) {
	l, _, _ := setupLedger(t)
	ctx := context.Background()

	first, err := l.CurrentEra(ctx, "alice", "one")
	if err != nil {
		t.Fatalf("CurrentEra failed: %v", err)
	}
	// The default description never overwrites an existing era's.
	again, err := l.CurrentEra(ctx, "alice", "two")
	if err != nil {
		t.Fatalf("CurrentEra failed: %v", err)
	}
	if again.ID != first.ID || again.Description != "one" {
		t.Errorf("Expected the existing era untouched, got %+v", again)
	}
}
