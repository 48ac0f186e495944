package engine

import (
	"testing"
	"time"
)

// fakeClock drives the scheduler deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *fakeClock) get() time.Time          { return c.now }

func newTestScheduler(rate float64) (*Scheduler, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := NewScheduler(rate, testLogger())
	s.SetClock(clock.get)
	return s, clock
}

func TestSchedulerShouldTick(t *testing.T) {
	s, clock := newTestScheduler(1.0)

	if s.ShouldTick() {
		t.Error("stopped scheduler should never tick")
	}

	s.Start()
	if s.ShouldTick() {
		t.Error("no time elapsed: should not tick")
	}

	clock.advance(500 * time.Millisecond)
	if s.ShouldTick() {
		t.Error("half interval elapsed: should not tick")
	}

	clock.advance(500 * time.Millisecond)
	if !s.ShouldTick() {
		t.Error("full interval elapsed: should tick")
	}

	s.Stop()
	if s.ShouldTick() {
		t.Error("stopped scheduler should not tick even with elapsed time")
	}
}

func TestSchedulerNoCatchUpBursts(t *testing.T) {
	s, clock := newTestScheduler(1.0)
	s.Start()

	// The caller was blocked for 5 intervals. Only one tick fires, and
	// its delta covers the whole gap.
	clock.advance(5 * time.Second)
	if !s.ShouldTick() {
		t.Fatal("should tick after long gap")
	}
	s.Tick()
	if !almostEqual(s.Delta(), 5.0) {
		t.Errorf("expected deltaTime 5.0 covering the gap, got %f", s.Delta())
	}
	if s.TickCount() != 1 {
		t.Errorf("expected exactly 1 tick, got %d", s.TickCount())
	}
	if s.ShouldTick() {
		t.Error("no further ticks owed right after ticking")
	}
}

func TestSchedulerDeltaIsActualElapsed(t *testing.T) {
	s, clock := newTestScheduler(1.0)
	s.Start()

	clock.advance(1300 * time.Millisecond)
	s.Tick()
	if !almostEqual(s.Delta(), 1.3) {
		t.Errorf("expected delta 1.3 (actual elapsed), got %f", s.Delta())
	}
}

func TestSchedulerCallbacks(t *testing.T) {
	s, clock := newTestScheduler(1.0)

	var order []string
	s.Register(func(dt float64) { order = append(order, "first") })
	s.Register(func(dt float64) { panic("callback exploded") })
	s.Register(func(dt float64) { order = append(order, "third") })

	s.Start()
	clock.advance(time.Second)
	s.Tick()

	// Registration order, with the panicking callback isolated.
	if len(order) != 2 || order[0] != "first" || order[1] != "third" {
		t.Errorf("unexpected callback order: %v", order)
	}
}

func TestSchedulerRateFloor(t *testing.T) {
	s, _ := newTestScheduler(0.01)
	if s.TickRate() != 0.1 {
		t.Errorf("expected rate floored at 0.1, got %f", s.TickRate())
	}

	s.SetTickRate(0.05)
	if s.TickRate() != 0.1 {
		t.Errorf("expected SetTickRate floored at 0.1, got %f", s.TickRate())
	}

	s.SetTickRate(2.5)
	if s.TickRate() != 2.5 {
		t.Errorf("expected rate 2.5, got %f", s.TickRate())
	}
}
