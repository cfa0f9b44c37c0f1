package analytics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/goodtune/worktime/internal/clock"
	"github.com/goodtune/worktime/internal/ledger"
	"github.com/goodtune/worktime/internal/mode"
	"github.com/goodtune/worktime/internal/storage"
	"github.com/goodtune/worktime/internal/storage/bolt"
)

func setupEngine(t *testing.T, start int64) (*Engine, *bolt.Store, *clock.Fake) {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "worktime.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clk := clock.NewFake(start)
	engine := New(store, mode.Default(), clk, zerolog.Nop())
	return engine, store, clk
}

func addPeriod(t *testing.T, store *bolt.Store, eraID, m string, start, end int64) {
	t.Helper()
	p := &storage.Period{ID: storage.NewID(), EraID: eraID, Mode: m, Start: start, End: end}
	if err := store.Periods().Create(context.Background(), p); err != nil {
		t.Fatalf("Create period failed: %v", err)
	}
}

func addAdjustment(t *testing.T, store *bolt.Store, eraID, m string, delta, ts int64) {
	t.Helper()
	adj := &storage.Adjustment{ID: storage.NewID(), EraID: eraID, Mode: m, Delta: delta, Timestamp: ts}
	if err := store.Adjustments().Create(context.Background(), adj); err != nil {
		t.Fatalf("Create adjustment failed: %v", err)
	}
}

func TestGetRatio(t *testing.T) {
	// Zero (or absent) denominator is the infinite sentinel, not an error.
	if r := GetRatio("p", "w", map[string]int64{"w": 0}); r == nil || !r.Infinite {
		t.Errorf("Expected infinite ratio, got %+v", r)
	}
	if r := GetRatio("p", "w", map[string]int64{"p": 10}); r == nil || !r.Infinite {
		t.Errorf("Expected infinite ratio with absent denominator, got %+v", r)
	}

	// No data at all is undefined.
	if r := GetRatio("p", "w", map[string]int64{}); r != nil {
		t.Errorf("Expected nil ratio for empty totals, got %+v", r)
	}
	if r := GetRatio("p", "w", map[string]int64{"n": 100}); r != nil {
		t.Errorf("Expected nil ratio when neither mode has data, got %+v", r)
	}

	if r := GetRatio("p", "w", map[string]int64{"p": 50, "w": 100}); r == nil || r.Infinite || r.Value != 0.5 {
		t.Errorf("Expected 0.5, got %+v", r)
	}
	if r := GetRatio("p", "w", map[string]int64{"w": 100}); r == nil || r.Infinite || r.Value != 0 {
		t.Errorf("Expected 0 with absent numerator, got %+v", r)
	}
}

func TestAllElapsed_ExcludesOpenPeriod(t *testing.T) {
	engine, store, clk := setupEngine(t, 0)
	ctx := context.Background()

	l := ledger.New(store, mode.Default(), clk, zerolog.Nop())
	era, _ := l.CurrentEra(ctx, "", "")

	if _, err := l.SwitchMode(ctx, era.ID, "w"); err != nil {
		t.Fatalf("SwitchMode failed: %v", err)
	}
	clk.Advance(100)
	if _, err := l.SwitchMode(ctx, era.ID, "p"); err != nil {
		t.Fatalf("SwitchMode failed: %v", err)
	}
	clk.Advance(500)

	elapsed, err := engine.AllElapsed(ctx, era.ID)
	if err != nil {
		t.Fatalf("AllElapsed failed: %v", err)
	}
	if elapsed["w"] != 100 {
		t.Errorf("Expected w total 100, got %d", elapsed["w"])
	}
	if _, ok := elapsed["p"]; ok {
		t.Errorf("Open period's mode should have no total yet, got %d", elapsed["p"])
	}
}

func TestConservation(t *testing.T) {
	engine, store, clk := setupEngine(t, 0)
	ctx := context.Background()

	l := ledger.New(store, mode.Default(), clk, zerolog.Nop())
	era, _ := l.CurrentEra(ctx, "", "")

	// w for 300s, p for 200s, w again for 100s, then stopped.
	steps := []struct {
		m       string
		elapsed int64
	}{{"w", 300}, {"p", 200}, {"w", 100}, {"s", 0}}
	for _, step := range steps {
		if _, err := l.SwitchMode(ctx, era.ID, step.m); err != nil {
			t.Fatalf("SwitchMode failed: %v", err)
		}
		clk.Advance(step.elapsed)
	}
	if err := l.AddElapsed(ctx, era.ID, "w", -50); err != nil {
		t.Fatalf("AddElapsed failed: %v", err)
	}
	if err := l.AddElapsed(ctx, era.ID, "p", 25); err != nil {
		t.Fatalf("AddElapsed failed: %v", err)
	}

	elapsed, err := engine.AllElapsed(ctx, era.ID)
	if err != nil {
		t.Fatalf("AllElapsed failed: %v", err)
	}
	// Closed periods plus adjustments, exactly, no double-counting.
	if elapsed["w"] != 300+100-50 {
		t.Errorf("Expected w total 350, got %d", elapsed["w"])
	}
	if elapsed["p"] != 200+25 {
		t.Errorf("Expected p total 225, got %d", elapsed["p"])
	}
}

func TestWindowTotals_ClipsPeriods(t *testing.T) {
	engine, store, clk := setupEngine(t, 3600)
	ctx := context.Background()
	eraID := storage.NewID()

	// w from 0 to 3600, p open at 3600, observed at 3600 over the last
	// 1800 seconds: exactly 1800 attributed to w, 0 to p.
	addPeriod(t, store, eraID, "w", 0, 3600)
	addPeriod(t, store, eraID, "p", 3600, 0)

	totals, err := engine.windowTotals(ctx, eraID, clk.Now(), 1800)
	if err != nil {
		t.Fatalf("windowTotals failed: %v", err)
	}
	if totals["w"] != 1800 {
		t.Errorf("Expected clipped w total 1800, got %d", totals["w"])
	}
	if totals["p"] != 0 {
		t.Errorf("Expected p total 0, got %d", totals["p"])
	}
}

func TestWindowTotals_ClipsAdjustments(t *testing.T) {
	engine, store, clk := setupEngine(t, 10000)
	ctx := context.Background()
	eraID := storage.NewID()
	cutoff := clk.Now() - 1000 // window [9000, 10000]

	// Entirely inside: virtual interval [9300, 9500].
	addAdjustment(t, store, eraID, "w", 200, 9500)
	// Straddles the cutoff: virtual interval [8800, 9100], only the 100
	// seconds inside count.
	addAdjustment(t, store, eraID, "p", 300, 9100)
	// Negative straddling the cutoff keeps its sign: -(9200-9000).
	addAdjustment(t, store, eraID, "n", -500, 9200)

	totals, err := engine.windowTotals(ctx, eraID, clk.Now(), 1000)
	if err != nil {
		t.Fatalf("windowTotals failed: %v", err)
	}
	if totals["w"] != 200 {
		t.Errorf("Expected w total 200, got %d", totals["w"])
	}
	if totals["p"] != 100 {
		t.Errorf("Expected p total 100, got %d", totals["p"])
	}
	// Negative window totals clamp to zero before the ratio.
	if totals["n"] != 0 {
		t.Errorf("Expected n total clamped to 0, got %d", totals["n"])
	}
	_ = cutoff
}

func TestRecentRatios(t *testing.T) {
	engine, store, _ := setupEngine(t, 3600)
	ctx := context.Background()
	eraID := storage.NewID()

	addPeriod(t, store, eraID, "w", 0, 3600)
	addPeriod(t, store, eraID, "p", 3600, 0)

	ratios, err := engine.RecentRatios(ctx, eraID, []int64{1800, 3600}, "p", "w")
	if err != nil {
		t.Fatalf("RecentRatios failed: %v", err)
	}
	if len(ratios) != 2 {
		t.Fatalf("Expected 2 ratios, got %d", len(ratios))
	}
	if ratios[0].Timespan != 1800 || ratios[0].Ratio == nil || ratios[0].Ratio.Value != 0 {
		t.Errorf("Unexpected 1800s ratio: %+v", ratios[0])
	}
	if ratios[1].Timespan != 3600 || ratios[1].Ratio == nil || ratios[1].Ratio.Value != 0 {
		t.Errorf("Unexpected 3600s ratio: %+v", ratios[1])
	}
}

func TestRecentBars_MiddlePeriod(t *testing.T) {
	engine, store, _ := setupEngine(t, 7200)
	ctx := context.Background()
	eraID := storage.NewID()

	// One 600-second n period in the middle of a 7200-second window:
	// leading gap, the period, trailing gap.
	addPeriod(t, store, eraID, "n", 3000, 3600)

	bars, err := engine.RecentBars(ctx, eraID, 7200, 100)
	if err != nil {
		t.Fatalf("RecentBars failed: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("Expected 3 segments, got %d: %+v", len(bars), bars)
	}
	if bars[0].Mode != "" || bars[1].Mode != "n" || bars[2].Mode != "" {
		t.Errorf("Unexpected segment modes: %+v", bars)
	}

	sum := 0
	for _, bar := range bars {
		sum += bar.Width
	}
	if sum != 100 {
		t.Errorf("Expected widths to sum to 100, got %d", sum)
	}
}

func TestRecentBars_EmptyWindow(t *testing.T) {
	engine, _, _ := setupEngine(t, 7200)
	ctx := context.Background()

	bars, err := engine.RecentBars(ctx, storage.NewID(), 7200, 100)
	if err != nil {
		t.Fatalf("RecentBars failed: %v", err)
	}
	if len(bars) != 1 || bars[0].Mode != "" || bars[0].Width != 100 {
		t.Errorf("Expected one full-width empty segment, got %+v", bars)
	}
}

func TestRecentBars_ContiguousPeriodsNoGaps(t *testing.T) {
	engine, store, _ := setupEngine(t, 7200)
	ctx := context.Background()
	eraID := storage.NewID()

	// Back-to-back periods covering the whole window, the last one open.
	addPeriod(t, store, eraID, "w", 0, 3600)
	addPeriod(t, store, eraID, "p", 3600, 5400)
	addPeriod(t, store, eraID, "n", 5400, 0)

	bars, err := engine.RecentBars(ctx, eraID, 7200, 100)
	if err != nil {
		t.Fatalf("RecentBars failed: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("Expected 3 segments, got %d: %+v", len(bars), bars)
	}
	for _, bar := range bars {
		if bar.Mode == "" {
			t.Errorf("Unexpected gap segment: %+v", bars)
		}
	}

	// The first period extends past the cutoff and is clipped to it.
	if bars[0].Start != 0 || bars[0].Width != 50 {
		t.Errorf("Unexpected first segment: %+v", bars[0])
	}

	sum := 0
	for _, bar := range bars {
		sum += bar.Width
	}
	if sum != 100 {
		t.Errorf("Expected widths to sum to 100, got %d", sum)
	}
}

func TestRecentBars_DropsSubThresholdSegments(t *testing.T) {
	engine, store, _ := setupEngine(t, 7200)
	ctx := context.Background()
	eraID := storage.NewID()

	// 7 seconds over a 7200-second window rounds below the visibility
	// threshold at width 100.
	addPeriod(t, store, eraID, "w", 3000, 3007)
	addPeriod(t, store, eraID, "p", 3100, 0)

	bars, err := engine.RecentBars(ctx, eraID, 7200, 100)
	if err != nil {
		t.Fatalf("RecentBars failed: %v", err)
	}
	for _, bar := range bars {
		if bar.Mode == "w" {
			t.Errorf("Expected the 7-second segment to be dropped, got %+v", bars)
		}
	}

	sum := 0
	for _, bar := range bars {
		sum += bar.Width
	}
	if sum != 100 {
		t.Errorf("Expected widths to sum to 100, got %d", sum)
	}
}

func TestRecentAdjustments(t *testing.T) {
	engine, store, clk := setupEngine(t, 10000)
	ctx := context.Background()
	eraID := storage.NewID()

	addAdjustment(t, store, eraID, "w", 600, 9750)
	addAdjustment(t, store, eraID, "p", -300, 9500)
	addAdjustment(t, store, eraID, "n", 100, 100) // outside the window

	marks, err := engine.RecentAdjustments(ctx, eraID, 1000, 100)
	if err != nil {
		t.Fatalf("RecentAdjustments failed: %v", err)
	}
	if len(marks) != 2 {
		t.Fatalf("Expected 2 marks, got %d", len(marks))
	}

	// Ordered by timestamp: the p adjustment first.
	if marks[0].Mode != "p" || marks[0].Sign != "-" || marks[0].Magnitude != 300 || marks[0].Position != 50 {
		t.Errorf("Unexpected first mark: %+v", marks[0])
	}
	if marks[1].Mode != "w" || marks[1].Sign != "+" || marks[1].Magnitude != 600 || marks[1].Position != 75 {
		t.Errorf("Unexpected second mark: %+v", marks[1])
	}
	_ = clk
}
