package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface. Backends persist four record
// kinds (eras, periods, adjustments, totals) plus two structural pointers:
// the current era per user and the open period per era. The pointers make
// the "at most one current era" and "at most one open period" invariants a
// property of the layout rather than a convention.
type Store interface {
	Close() error
	Eras() EraStore
	Periods() PeriodStore
	Adjustments() AdjustmentStore
	Totals() TotalStore

	// Update runs fn and applies every write issued through tx as one
	// atomic commit: either all of them land or none do. Reads must
	// happen before Update; tx record stores are write-only (the redis
	// backend queues commands and cannot answer reads mid-transaction).
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the record stores inside an atomic commit.
type Tx interface {
	Eras() EraStore
	Periods() PeriodStore
	Adjustments() AdjustmentStore
	Totals() TotalStore
}

// EraStore manages eras and the per-user current-era pointer.
type EraStore interface {
	Create(ctx context.Context, era *Era) error
	Get(ctx context.Context, id string) (*Era, error)
	// List returns a user's eras ordered by creation time, with Current
	// populated from the pointer.
	List(ctx context.Context, userID string) ([]Era, error)
	// Current resolves the user's current era. ErrNotFound if unset.
	Current(ctx context.Context, userID string) (*Era, error)
	// SetCurrent repoints the user's current era. The previous pointer
	// target, if any, simply stops being current.
	SetCurrent(ctx context.Context, userID, eraID string) error
}

// PeriodStore manages periods and the per-era open-period pointer.
type PeriodStore interface {
	// Create stores a period. An open period (End == 0) becomes the
	// era's open-period pointer target.
	Create(ctx context.Context, period *Period) error
	Get(ctx context.Context, id string) (*Period, error)
	// Open resolves the era's open period. ErrNotFound if none.
	Open(ctx context.Context, eraID string) (*Period, error)
	// Close sets the period's end timestamp and clears the era's
	// open-period pointer.
	Close(ctx context.Context, eraID, periodID string, end int64) error
	// ListEndingSince returns the era's periods whose end falls at or
	// after cutoff, plus the open period, ordered by start time.
	// cutoff <= 0 returns the full history.
	ListEndingSince(ctx context.Context, eraID string, cutoff int64) ([]Period, error)
}

// AdjustmentStore manages manual time corrections.
type AdjustmentStore interface {
	Create(ctx context.Context, adj *Adjustment) error
	// ListSince returns the era's adjustments with timestamp >= cutoff,
	// ordered by timestamp. cutoff <= 0 returns all of them.
	ListSince(ctx context.Context, eraID string, cutoff int64) ([]Adjustment, error)
}

// TotalStore manages cached per-(era, mode) cumulative seconds.
type TotalStore interface {
	Get(ctx context.Context, eraID, mode string) (*Total, error)
	List(ctx context.Context, eraID string) ([]Total, error)
	// Increment applies a signed delta, initializing an absent row to
	// zero first. Totals may go negative; callers clamp on display.
	Increment(ctx context.Context, eraID, mode string, delta int64) error
}
