package storage

// Era is a named, resettable container for one continuous tracking history.
// "Current" is derived from the per-user current-era pointer on read; it is
// not a persisted field.
type Era struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id,omitempty"` // opaque identity key, empty = anonymous
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
	Current     bool   `json:"current"`
}

// Period is one contiguous interval during which a single mode was active.
// An empty Mode means "no active mode". End == 0 means the period is still
// open; at most one open period exists per era.
type Period struct {
	ID     string `json:"id"`
	EraID  string `json:"era_id"`
	Mode   string `json:"mode,omitempty"`
	Start  int64  `json:"start"`
	End    int64  `json:"end,omitempty"`
	PrevID string `json:"prev_id,omitempty"`
}

// IsOpen reports whether the period has no end timestamp yet.
func (p *Period) IsOpen() bool {
	return p.End == 0
}

// Elapsed returns the period's duration in seconds, using now for the open
// period.
func (p *Period) Elapsed(now int64) int64 {
	if p.End != 0 {
		return p.End - p.Start
	}
	return now - p.Start
}

// Adjustment is a manual, out-of-band correction to a mode's accumulated
// time. Immutable once created.
type Adjustment struct {
	ID        string `json:"id"`
	EraID     string `json:"era_id"`
	Mode      string `json:"mode"`
	Delta     int64  `json:"delta"` // signed seconds
	Timestamp int64  `json:"timestamp"`
}

// Total is the running cumulative elapsed seconds for one (era, mode) pair,
// covering all closed periods and adjustments but never the open period.
type Total struct {
	EraID   string `json:"era_id"`
	Mode    string `json:"mode"`
	Elapsed int64  `json:"elapsed"`
}
