package web

import (
	"context"
	"fmt"

	"github.com/goodtune/worktime/internal/analytics"
	"github.com/goodtune/worktime/internal/mode"
)

// eraNameLimit truncates long era descriptions in the era picker.
const eraNameLimit = 22

// EraInfo identifies an era in the picker.
type EraInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ModeElapsed is one row of the per-mode totals table.
type ModeElapsed struct {
	Mode    string `json:"mode"`
	Name    string `json:"name"`
	Seconds int64  `json:"seconds"`
	// Time is Seconds rendered per the numbers parameter: a timestring
	// for "text", the raw second count for "values".
	Time string `json:"time"`
}

// RatioRow is a ratio with its display rendering. A zero Timespan means
// the whole era.
type RatioRow struct {
	Timespan int64            `json:"timespan"`
	Ratio    *analytics.Ratio `json:"ratio"`
	Text     string           `json:"text"`
}

// Summary is everything the main page shows for one visitor: the
// current era and its siblings, live status, per-mode totals, ratios,
// and the trailing history bar.
type Summary struct {
	Era            EraInfo                    `json:"era"`
	Eras           []EraInfo                  `json:"eras"`
	CurrentMode    string                     `json:"current_mode"`
	CurrentName    string                     `json:"current_name"`
	CurrentSeconds int64                      `json:"current_seconds"`
	CurrentTime    string                     `json:"current_time"`
	Elapsed        []ModeElapsed              `json:"elapsed"`
	RatioLabel     string                     `json:"ratio_label"`
	Ratios         []RatioRow                 `json:"ratios"`
	Bars           []analytics.Bar            `json:"bars"`
	BarTimespan    int64                      `json:"bar_timespan"`
	BarWidth       int                        `json:"bar_width"`
	Adjustments    []analytics.AdjustmentMark `json:"adjustments"`
	Modes          []mode.Mode                `json:"modes"`
}

// buildSummary assembles the full page model for a visitor. Per-mode
// totals include the open period's elapsed time, so the page reflects
// the current moment rather than the last commit.
func (s *Server) buildSummary(ctx context.Context, visitor, numbers string, barTimespan int64) (*Summary, error) {
	tracking := s.config.Tracking

	era, err := s.ledger.CurrentEra(ctx, visitor, tracking.DefaultEraDescription)
	if err != nil {
		return nil, fmt.Errorf("resolve era: %w", err)
	}

	status, err := s.ledger.Status(ctx, era.ID)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}

	totals, err := s.engine.AllElapsed(ctx, era.ID)
	if err != nil {
		return nil, fmt.Errorf("read totals: %w", err)
	}

	summary := &Summary{
		Era:         EraInfo{ID: era.ID, Name: eraName(era.Description, era.ID)},
		Eras:        []EraInfo{},
		RatioLabel:  tracking.RatioOver + "/" + tracking.RatioUnder,
		BarTimespan: barTimespan,
		BarWidth:    tracking.BarWidth,
		Modes:       s.registry.Visible(),
	}

	if status != nil {
		summary.CurrentMode = status.Mode
		summary.CurrentSeconds = status.Elapsed
		summary.CurrentTime = formatSeconds(status.Elapsed, numbers)
		if m, ok := s.registry.Get(status.Mode); ok {
			summary.CurrentName = m.Name
		}
		// Fold the open period in so totals are now-inclusive.
		if status.Mode != "" {
			totals[status.Mode] += status.Elapsed
		}
	}

	for _, m := range s.registry.Visible() {
		seconds := totals[m.ID]
		summary.Elapsed = append(summary.Elapsed, ModeElapsed{
			Mode:    m.ID,
			Name:    m.Name,
			Seconds: seconds,
			Time:    formatSeconds(seconds, numbers),
		})
	}

	if ratio := analytics.GetRatio(tracking.RatioOver, tracking.RatioUnder, totals); ratio != nil {
		summary.Ratios = append(summary.Ratios, RatioRow{Ratio: ratio, Text: formatRatio(ratio)})
	}

	recent, err := s.engine.RecentRatios(ctx, era.ID, tracking.Timespans, tracking.RatioOver, tracking.RatioUnder)
	if err != nil {
		return nil, fmt.Errorf("recent ratios: %w", err)
	}
	for _, r := range recent {
		summary.Ratios = append(summary.Ratios, RatioRow{
			Timespan: r.Timespan,
			Ratio:    r.Ratio,
			Text:     formatRatio(r.Ratio),
		})
	}

	summary.Bars, err = s.engine.RecentBars(ctx, era.ID, barTimespan, tracking.BarWidth)
	if err != nil {
		return nil, fmt.Errorf("history bars: %w", err)
	}

	summary.Adjustments, err = s.engine.RecentAdjustments(ctx, era.ID, barTimespan, tracking.BarWidth)
	if err != nil {
		return nil, fmt.Errorf("adjustment marks: %w", err)
	}

	eras, err := s.store.Eras().List(ctx, visitor)
	if err != nil {
		return nil, fmt.Errorf("list eras: %w", err)
	}
	for _, e := range eras {
		if e.ID == era.ID {
			continue
		}
		summary.Eras = append(summary.Eras, EraInfo{ID: e.ID, Name: eraName(e.Description, e.ID)})
	}

	return summary, nil
}

// eraName renders a picker label: the truncated description, or the ID
// when no description was given.
func eraName(description, id string) string {
	if description == "" {
		return id
	}
	if len(description) > eraNameLimit {
		return description[:eraNameLimit]
	}
	return description
}
