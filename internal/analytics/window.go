package analytics

import (
	"context"
	"fmt"
)

// RecentRatio is the mode ratio over one trailing window.
type RecentRatio struct {
	Timespan int64  `json:"timespan"`
	Ratio    *Ratio `json:"ratio"`
}

// RecentRatios computes the over/under ratio across each trailing window,
// counting only the portion of each period and adjustment that falls inside
// the window.
func (e *Engine) RecentRatios(ctx context.Context, eraID string, timespans []int64, over, under string) ([]RecentRatio, error) {
	now := e.clock.Now()

	ratios := make([]RecentRatio, 0, len(timespans))
	for _, timespan := range timespans {
		totals, err := e.windowTotals(ctx, eraID, now, timespan)
		if err != nil {
			return nil, err
		}
		ratios = append(ratios, RecentRatio{
			Timespan: timespan,
			Ratio:    GetRatio(over, under, totals),
		})
	}
	return ratios, nil
}

// windowTotals accumulates per-mode seconds inside the trailing window
// [now-timespan, now], clipping periods and adjustments at the cutoff and
// clamping any negative per-mode result to zero.
func (e *Engine) windowTotals(ctx context.Context, eraID string, now, timespan int64) (map[string]int64, error) {
	cutoff := now - timespan

	periods, err := e.store.Periods().ListEndingSince(ctx, eraID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("read periods: %w", err)
	}

	totals := map[string]int64{}
	for _, p := range periods {
		if p.Mode == "" {
			continue
		}
		totals[p.Mode] += clipElapsed(p.Elapsed(now), p.Start, cutoff)
	}

	adjs, err := e.store.Adjustments().ListSince(ctx, eraID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("read adjustments: %w", err)
	}
	for _, adj := range adjs {
		totals[adj.Mode] += clipAdjustment(adj.Delta, adj.Timestamp, cutoff)
	}

	for m, total := range totals {
		if total < 0 {
			totals[m] = 0
		}
	}
	return totals, nil
}

// clipElapsed counts only the portion of a period's elapsed time at or
// after the cutoff.
func clipElapsed(elapsed, start, cutoff int64) int64 {
	if overhang := cutoff - start; overhang > 0 {
		return elapsed - overhang
	}
	return elapsed
}

// clipAdjustment treats an adjustment as a virtual interval of length
// |delta| ending at its timestamp. If that interval would start before the
// cutoff, only the fraction inside the window counts, keeping the delta's
// sign.
func clipAdjustment(delta, timestamp, cutoff int64) int64 {
	magnitude := delta
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if timestamp-magnitude >= cutoff {
		return delta
	}
	inside := timestamp - cutoff
	if inside < 0 {
		inside = 0
	}
	if delta < 0 {
		return -inside
	}
	return inside
}
