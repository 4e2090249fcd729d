// Package simclock provides the scheduler's simulated time source: a
// monotonically increasing tick counter and a derived simulated-time
// microsecond value, mutated only by the scheduler's step function. It
// is a standalone value owned by the core, never a side effect of a
// network timer or wall-clock read.
package simclock

import "time"

// Clock is the core's single source of simulated time. It never touches
// wall-clock time itself — tick period is supplied by the caller so the
// same Clock works under real-time playback or as-fast-as-possible batch
// runs.
type Clock struct {
	tick       uint64
	timeUs     int64
	tickPeriod time.Duration
}

// New builds a Clock starting at tick 0, time 0us, advancing by
// tickPeriod on each Advance call.
func New(tickPeriod time.Duration) *Clock {
	return &Clock{tickPeriod: tickPeriod}
}

// Advance moves the clock forward exactly one tick and returns the new
// tick number, the new simulated time in microseconds, and the simulated
// duration of the tick that just elapsed.
func (c *Clock) Advance() (tick uint64, timeUs int64, dt time.Duration) {
	c.tick++
	c.timeUs += c.tickPeriod.Microseconds()
	return c.tick, c.timeUs, c.tickPeriod
}

// Tick returns the current tick counter without advancing it.
func (c *Clock) Tick() uint64 {
	return c.tick
}

// TimeUs returns the current simulated time in microseconds.
func (c *Clock) TimeUs() int64 {
	return c.timeUs
}

// TickPeriod returns the fixed simulated duration of one tick.
func (c *Clock) TickPeriod() time.Duration {
	return c.tickPeriod
}

// Reset returns the clock to tick 0, time 0us. Used by scheduler restart
// (the "stop" then "start" command pair).
func (c *Clock) Reset() {
	c.tick = 0
	c.timeUs = 0
}
