package simclock

import (
	"testing"
	"time"
)

func TestAdvanceIncrementsTickAndTime(t *testing.T) {
	c := New(10 * time.Millisecond)
	tick, timeUs, dt := c.Advance()
	if tick != 1 {
		t.Fatalf("expected first Advance to reach tick 1, got %d", tick)
	}
	if timeUs != 10_000 {
		t.Fatalf("expected 10ms tick period to add 10000us, got %d", timeUs)
	}
	if dt != 10*time.Millisecond {
		t.Fatalf("expected dt to equal the configured tick period, got %v", dt)
	}
}

func TestAdvanceAccumulates(t *testing.T) {
	c := New(5 * time.Millisecond)
	for i := 0; i < 10; i++ {
		c.Advance()
	}
	if c.Tick() != 10 {
		t.Fatalf("expected 10 ticks, got %d", c.Tick())
	}
	if c.TimeUs() != 50_000 {
		t.Fatalf("expected 50000us elapsed, got %d", c.TimeUs())
	}
}

func TestResetZeroesState(t *testing.T) {
	c := New(1 * time.Millisecond)
	c.Advance()
	c.Advance()
	c.Reset()
	if c.Tick() != 0 || c.TimeUs() != 0 {
		t.Fatalf("expected Reset to zero tick and time, got tick=%d timeUs=%d", c.Tick(), c.TimeUs())
	}
}

func TestTickPeriodReturnsConfiguredValue(t *testing.T) {
	c := New(25 * time.Millisecond)
	if c.TickPeriod() != 25*time.Millisecond {
		t.Fatalf("expected TickPeriod to report the configured period")
	}
}
