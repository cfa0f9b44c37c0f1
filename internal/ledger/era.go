package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodtune/worktime/internal/metrics"
	"github.com/goodtune/worktime/internal/storage"
)

// CurrentEra resolves the user's current era, creating one with the default
// description on first activity. The description is only applied on
// creation; an existing era's description is never overwritten.
func (l *Ledger) CurrentEra(ctx context.Context, userID, defaultDescription string) (*storage.Era, error) {
	era, err := l.store.Eras().Current(ctx, userID)
	if err == nil {
		return era, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read current era: %w", err)
	}

	era = &storage.Era{
		ID:          storage.NewID(),
		UserID:      userID,
		Description: defaultDescription,
		CreatedAt:   l.clock.Now(),
		Current:     true,
	}
	err = l.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Eras().Create(ctx, era); err != nil {
			return err
		}
		return tx.Eras().SetCurrent(ctx, userID, era.ID)
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("current_era").Inc()
		return nil, fmt.Errorf("commit era creation: %w", err)
	}

	metrics.ErasStartedTotal.Inc()
	l.logger.Info().
		Str("era_id", era.ID).
		Str("user_id", userID).
		Msg("Started first era for user")

	return era, nil
}

// Clear starts a fresh era for the user. The previous current era, if any,
// stops being current and its open period is closed (and folded into
// totals) at the same instant. Nothing is deleted: the old era's periods,
// adjustments, and totals stay queryable under the retired era.
func (l *Ledger) Clear(ctx context.Context, userID, description string) (*storage.Era, error) {
	now := l.clock.Now()

	prev, err := l.store.Eras().Current(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		prev = nil
	} else if err != nil {
		return nil, fmt.Errorf("read current era: %w", err)
	}

	var open *storage.Period
	if prev != nil {
		open, err = l.store.Periods().Open(ctx, prev.ID)
		if errors.Is(err, storage.ErrNotFound) {
			open = nil
		} else if err != nil {
			return nil, fmt.Errorf("read open period: %w", err)
		}
	}

	era := &storage.Era{
		ID:          storage.NewID(),
		UserID:      userID,
		Description: description,
		CreatedAt:   now,
		Current:     true,
	}
	err = l.store.Update(ctx, func(tx storage.Tx) error {
		if open != nil {
			if err := tx.Periods().Close(ctx, prev.ID, open.ID, now); err != nil {
				return err
			}
			if open.Mode != "" {
				if err := tx.Totals().Increment(ctx, prev.ID, open.Mode, now-open.Start); err != nil {
					return err
				}
			}
		}
		if err := tx.Eras().Create(ctx, era); err != nil {
			return err
		}
		return tx.Eras().SetCurrent(ctx, userID, era.ID)
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("clear").Inc()
		return nil, fmt.Errorf("commit clear: %w", err)
	}

	metrics.ErasStartedTotal.Inc()
	l.logger.Info().
		Str("era_id", era.ID).
		Str("user_id", userID).
		Str("description", description).
		Msg("Cleared to a new era")

	return era, nil
}

// SwitchEra repoints the user's current era at an existing era. Returns
// false if the era does not exist or belongs to someone else. Open periods
// are left alone; the target era may or may not have one.
func (l *Ledger) SwitchEra(ctx context.Context, userID, eraID string) (bool, error) {
	target, err := l.store.Eras().Get(ctx, eraID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read era: %w", err)
	}
	if target.UserID != userID {
		return false, nil
	}

	err = l.store.Update(ctx, func(tx storage.Tx) error {
		return tx.Eras().SetCurrent(ctx, userID, target.ID)
	})
	if err != nil {
		metrics.StoreErrors.WithLabelValues("switch_era").Inc()
		return false, fmt.Errorf("commit era switch: %w", err)
	}

	l.logger.Info().
		Str("era_id", target.ID).
		Str("user_id", userID).
		Msg("Switched current era")

	return true, nil
}
