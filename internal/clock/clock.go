// Package clock supplies wall-clock time as whole seconds since the Unix
// epoch. The ledger reads the clock once per logical operation so that all
// arithmetic within one operation shares a single observation.
package clock

import "time"

// Clock returns the current time in whole seconds.
type Clock interface {
	Now() int64
}

// System reads the real wall clock.
type System struct{}

// Now returns the current Unix time in seconds.
func (System) Now() int64 {
	return time.Now().Unix()
}

// Fake is a manually-advanced clock for tests.
type Fake struct {
	Time int64
}

// NewFake creates a fake clock starting at the given time.
func NewFake(start int64) *Fake {
	return &Fake{Time: start}
}

// Now returns the fake's current time.
func (f *Fake) Now() int64 {
	return f.Time
}

// Advance moves the fake clock forward by the given number of seconds.
func (f *Fake) Advance(seconds int64) {
	f.Time += seconds
}
