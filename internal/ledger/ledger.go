// Package ledger owns every write to the time ledger: the mode state
// machine, the era manager, and the adjustment ledger. Each operation reads
// the clock once, validates at the boundary, and commits all of its record
// writes in a single atomic store transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goodtune/worktime/internal/clock"
	"github.com/goodtune/worktime/internal/metrics"
	"github.com/goodtune/worktime/internal/mode"
	"github.com/goodtune/worktime/internal/storage"
)

// ErrInvalidMode is returned when a mode is not in the registry.
var ErrInvalidMode = errors.New("ledger: invalid mode")

// ErrInvariant is returned when stored data contradicts a structural
// invariant, such as the open-period pointer targeting a closed period.
// It indicates prior corruption and is never silently repaired.
var ErrInvariant = errors.New("ledger: invariant violation")

// Ledger is the single writer against the store.
type Ledger struct {
	store    storage.Store
	registry *mode.Registry
	clock    clock.Clock
	logger   zerolog.Logger
}

// New creates a ledger.
func New(store storage.Store, registry *mode.Registry, clk clock.Clock, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:    store,
		registry: registry,
		clock:    clk,
		logger:   logger.With().Str("component", "ledger").Logger(),
	}
}

// Status describes the open period of an era.
type Status struct {
	Mode    string `json:"mode"`
	Elapsed int64  `json:"elapsed"`
}

// Status returns the era's open period mode and seconds elapsed since its
// start. A missing era or no open period is a normal outcome and returns
// (nil, nil).
func (l *Ledger) Status(ctx context.Context, eraID string) (*Status, error) {
	now := l.clock.Now()

	open, err := l.store.Periods().Open(ctx, eraID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read open period: %w", err)
	}
	if !open.IsOpen() {
		return nil, fmt.Errorf("%w: open-period pointer targets closed period %s", ErrInvariant, open.ID)
	}

	return &Status{Mode: open.Mode, Elapsed: now - open.Start}, nil
}

// SwitchResult reports what a mode switch did to the previously open period.
type SwitchResult struct {
	// PrevMode is the mode that was active before the switch. Empty when
	// no period was open or the closed period had no mode.
	PrevMode string
	// PrevElapsed is the closed period's duration. Only meaningful when
	// Closed is set.
	PrevElapsed int64
	// Closed reports that an open period was closed by this switch.
	Closed bool
	// NoOp reports that the requested mode was already active and
	// nothing changed.
	NoOp bool
}

// SwitchMode ends the era's open period (if any) and opens a new one in
// newMode, folding the closed period's elapsed time into its mode's total.
// An empty newMode opens a "no active mode" period. Switching to the mode
// already active is a no-op: the open period is left untouched so history
// does not fragment.
func (l *Ledger) SwitchMode(ctx context.Context, eraID, newMode string) (*SwitchResult, error) {
	if newMode != "" && !l.registry.Valid(newMode) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, newMode)
	}

	now := l.clock.Now()

	open, err := l.store.Periods().Open(ctx, eraID)
	if errors.Is(err, storage.ErrNotFound) {
		open = nil
	} else if err != nil {
		return nil, fmt.Errorf("read open period: %w", err)
	} else if !open.IsOpen() {
		return nil, fmt.Errorf("%w: open-period pointer targets closed period %s", ErrInvariant, open.ID)
	}

	if open != nil && open.Mode == newMode {
		metrics.ModeSwitchesTotal.WithLabelValues(newMode, "true").Inc()
		l.logger.Debug().
			Str("era_id", eraID).
			Str("mode", newMode).
			Msg("Mode already active, nothing to do")
		return &SwitchResult{PrevMode: newMode, NoOp: true}, nil
	}

	period := &storage.Period{
		ID:    storage.NewID(),
		EraID: eraID,
		Mode:  newMode,
		Start: now,
	}
	if open != nil {
		period.PrevID = open.ID
	}

	err = l.store.Update(ctx, func(tx storage.Tx) error {
		if open != nil {
			if err := tx.Periods().Close(ctx, eraID, open.ID, now); err != nil {
				return err
			}
			if open.Mode != "" {
				if err := tx.Totals().Increment(ctx, eraID, open.Mode, now-open.Start); err != nil {
					return err
				}
			}
		}
		return tx.Periods().Create(ctx, period)
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("switch_mode").Inc()
		return nil, fmt.Errorf("commit mode switch: %w", err)
	}

	metrics.ModeSwitchesTotal.WithLabelValues(newMode, "false").Inc()

	result := &SwitchResult{}
	if open != nil {
		result.PrevMode = open.Mode
		result.PrevElapsed = now - open.Start
		result.Closed = true
		if open.Mode != "" {
			metrics.SecondsAccrued.WithLabelValues(open.Mode).Add(float64(now - open.Start))
		}
	}

	l.logger.Info().
		Str("era_id", eraID).
		Str("mode", newMode).
		Str("prev_mode", result.PrevMode).
		Int64("prev_elapsed", result.PrevElapsed).
		Msg("Switched mode")

	return result, nil
}
