// Package analytics is the read side of the ledger: all-time totals,
// all-time and windowed mode ratios, and the recent-history timeline. It
// never mutates state and reads the clock once per entry point.
package analytics

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goodtune/worktime/internal/clock"
	"github.com/goodtune/worktime/internal/mode"
	"github.com/goodtune/worktime/internal/storage"
)

// Engine computes display statistics from the ledger store.
type Engine struct {
	store    storage.Store
	registry *mode.Registry
	clock    clock.Clock
	logger   zerolog.Logger
}

// New creates an analytics engine.
func New(store storage.Store, registry *mode.Registry, clk clock.Clock, logger zerolog.Logger) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		clock:    clk,
		logger:   logger.With().Str("component", "analytics").Logger(),
	}
}

// AllElapsed returns every total row for the era as a mode -> seconds map.
// The open period's live elapsed time is not included; callers wanting
// now-inclusive totals add the status elapsed themselves.
func (e *Engine) AllElapsed(ctx context.Context, eraID string) (map[string]int64, error) {
	totals, err := e.store.Totals().List(ctx, eraID)
	if err != nil {
		return nil, fmt.Errorf("read totals: %w", err)
	}
	elapsed := make(map[string]int64, len(totals))
	for _, t := range totals {
		elapsed[t.Mode] = t.Elapsed
	}
	return elapsed, nil
}

// Ratio is a mode-over-mode quotient. Undefined when neither mode has any
// data; infinite when the denominator is zero. Infinity is a displayable
// result, not an error.
type Ratio struct {
	Value    float64 `json:"value"`
	Infinite bool    `json:"infinite"`
}

// GetRatio computes totals[over] / totals[under]. Returns nil when neither
// mode appears in totals (no data at all). An absent mode counts as zero
// otherwise, so an absent or zero denominator yields the infinite sentinel.
func GetRatio(over, under string, totals map[string]int64) *Ratio {
	overTotal, overOK := totals[over]
	underTotal, underOK := totals[under]
	if !overOK && !underOK {
		return nil
	}
	if underTotal == 0 {
		return &Ratio{Infinite: true}
	}
	return &Ratio{Value: float64(overTotal) / float64(underTotal)}
}
