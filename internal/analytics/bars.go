package analytics

import (
	"context"
	"fmt"
	"math"
)

const (
	// gapTolerance is the largest hole between periods, in seconds, that
	// is still treated as contiguous rather than rendered as an empty
	// segment.
	gapTolerance = 10

	// minSegmentWidth is the smallest width, in display units, a segment
	// must round to before it is worth drawing.
	minSegmentWidth = 0.3
)

// Bar is one segment of the recent-history timeline. An empty Mode renders
// as a gap.
type Bar struct {
	Mode  string `json:"mode"`
	Width int    `json:"width"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// RecentBars reconstructs the last timespan seconds as a proportional
// sequence of segments whose widths sum to totalWidth units. Gaps between
// periods, before the first period, and after the last closed period become
// synthetic empty segments; sub-threshold segments are dropped and rounding
// drift is folded into the last segment.
func (e *Engine) RecentBars(ctx context.Context, eraID string, timespan int64, totalWidth int) ([]Bar, error) {
	now := e.clock.Now()
	cutoff := now - timespan

	periods, err := e.store.Periods().ListEndingSince(ctx, eraID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("read periods: %w", err)
	}

	if len(periods) == 0 {
		return []Bar{{Width: totalWidth, Start: cutoff, End: now}}, nil
	}

	type segment struct {
		mode       string
		start, end int64
	}
	segments := []segment{}

	cursor := cutoff
	for _, p := range periods {
		start := p.Start
		if start < cutoff {
			start = cutoff
		}
		// Gaps between consecutive periods should not normally occur,
		// but a leading gap after the cutoff is routine.
		if start-cursor > gapTolerance {
			segments = append(segments, segment{start: cursor, end: start})
		}
		end := p.End
		if p.IsOpen() {
			end = now
		}
		segments = append(segments, segment{mode: p.Mode, start: start, end: end})
		cursor = end
	}
	if now-cursor > gapTolerance {
		segments = append(segments, segment{start: cursor, end: now})
	}

	bars := make([]Bar, 0, len(segments))
	for _, seg := range segments {
		width := float64(totalWidth) * float64(seg.end-seg.start) / float64(timespan)
		if width < minSegmentWidth {
			continue
		}
		bars = append(bars, Bar{
			Mode:  seg.mode,
			Width: int(math.Round(width)),
			Start: seg.start,
			End:   seg.end,
		})
	}

	if len(bars) == 0 {
		return []Bar{{Width: totalWidth, Start: cutoff, End: now}}, nil
	}

	// Reconcile rounding drift so the widths sum exactly to totalWidth.
	sum := 0
	for _, bar := range bars {
		sum += bar.Width
	}
	bars[len(bars)-1].Width += totalWidth - sum

	return bars, nil
}

// AdjustmentMark is one adjustment annotated for timeline placement.
type AdjustmentMark struct {
	Mode      string `json:"mode"`
	Sign      string `json:"sign"` // "+" or "-"
	Magnitude int64  `json:"magnitude"`
	Position  int    `json:"position"` // horizontal offset in display units
}

// RecentAdjustments returns the adjustments inside the trailing window,
// each with a normalized sign, absolute magnitude, and a proportional
// position along a totalWidth-unit timeline.
func (e *Engine) RecentAdjustments(ctx context.Context, eraID string, timespan int64, totalWidth int) ([]AdjustmentMark, error) {
	now := e.clock.Now()
	cutoff := now - timespan

	adjs, err := e.store.Adjustments().ListSince(ctx, eraID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("read adjustments: %w", err)
	}

	marks := make([]AdjustmentMark, 0, len(adjs))
	for _, adj := range adjs {
		sign := "+"
		magnitude := adj.Delta
		if adj.Delta < 0 {
			sign = "-"
			magnitude = -adj.Delta
		}
		position := int(math.Round(float64(totalWidth) * float64(adj.Timestamp-cutoff) / float64(timespan)))
		marks = append(marks, AdjustmentMark{
			Mode:      adj.Mode,
			Sign:      sign,
			Magnitude: magnitude,
			Position:  position,
		})
	}
	return marks, nil
}
