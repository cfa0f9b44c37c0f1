package ledger

import (
	"context"
	"fmt"

	"github.com/goodtune/worktime/internal/metrics"
	"github.com/goodtune/worktime/internal/storage"
)

// AddElapsed records a manual correction of delta seconds (which may be
// negative) against a mode and folds it into the mode's total in the same
// commit. Totals are allowed to go negative; display layers clamp.
func (l *Ledger) AddElapsed(ctx context.Context, eraID, m string, delta int64) error {
	if !l.registry.Valid(m) {
		return fmt.Errorf("%w: %q", ErrInvalidMode, m)
	}

	adj := &storage.Adjustment{
		ID:        storage.NewID(),
		EraID:     eraID,
		Mode:      m,
		Delta:     delta,
		Timestamp: l.clock.Now(),
	}
	err := l.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Adjustments().Create(ctx, adj); err != nil {
			return err
		}
		return tx.Totals().Increment(ctx, eraID, m, delta)
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("add_elapsed").Inc()
		return fmt.Errorf("commit adjustment: %w", err)
	}

	sign := "+"
	if delta < 0 {
		sign = "-"
	}
	metrics.AdjustmentsTotal.WithLabelValues(m, sign).Inc()

	l.logger.Info().
		Str("era_id", eraID).
		Str("mode", m).
		Int64("delta", delta).
		Msg("Recorded adjustment")

	return nil
}
