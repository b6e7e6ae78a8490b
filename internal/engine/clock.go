package engine

import "sync/atomic"

// Clock is the monotonic logical step counter.
//
// Every processed statement is stamped with a strictly increasing step
// number from this clock, including statements that were malformed,
// failed a ledger precondition, or were ignored because the acting
// process is deadlocked. Time advances only here - there are no
// wall-clock reads anywhere in the engine, which is what makes replay
// produce identical trajectories.
//
// Thread-safety: Clock uses atomic operations and is safe for concurrent
// use, although the driver's single-threaded design means only one
// goroutine calls Next() in practice.
type Clock struct {
	step atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next step number and advances the clock.
// Each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.step.Add(1)
}

// Current returns the current step number without advancing.
func (c *Clock) Current() int64 {
	return c.step.Load()
}
