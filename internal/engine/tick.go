package engine

import (
	"log/slog"
	"time"
)

// minTickRate is the floor for configured tick rates.
const minTickRate = 0.1

// TickFunc is a per-tick callback. deltaTime is the wall-clock time
// actually elapsed since the previous tick, not the nominal rate.
type TickFunc func(deltaTime float64)

// Scheduler converts wall-clock time into discrete simulation ticks.
//
// Scheduling is threshold-based, not accumulating: if the caller checks
// late, ShouldTick fires a single tick whose deltaTime covers the whole
// gap. There are never catch-up bursts, so downstream consumers see a
// bounded number of ticks per check.
type Scheduler struct {
	tickRate  float64
	tickCount uint64
	lastTick  time.Time
	delta     float64
	running   bool
	callbacks []TickFunc
	now       func() time.Time
	log       *slog.Logger
}

// NewScheduler creates a stopped scheduler firing every tickRate
// seconds (clamped to a 0.1s floor).
func NewScheduler(tickRate float64, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if tickRate < minTickRate {
		tickRate = minTickRate
	}
	return &Scheduler{
		tickRate: tickRate,
		now:      time.Now,
		log:      log,
	}
}

// SetClock replaces the wall-clock source. Tests use this to drive the
// scheduler deterministically.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start begins ticking from the current instant.
func (s *Scheduler) Start() {
	s.running = true
	s.lastTick = s.now()
	s.log.Debug("scheduler started", "rate", s.tickRate)
}

// Stop halts ticking. Tick counts are preserved.
func (s *Scheduler) Stop() {
	s.running = false
	s.log.Debug("scheduler stopped", "ticks", s.tickCount)
}

// Running reports whether the scheduler is started.
func (s *Scheduler) Running() bool { return s.running }

// ShouldTick reports whether at least one tick interval has elapsed
// since the last tick boundary.
func (s *Scheduler) ShouldTick() bool {
	if !s.running {
		return false
	}
	return s.now().Sub(s.lastTick).Seconds() >= s.tickRate
}

// Tick fires a single tick: deltaTime is the actual elapsed time since
// the previous tick, the counter advances, and every callback runs in
// registration order. A panicking callback is logged and the remaining
// callbacks still run.
func (s *Scheduler) Tick() {
	current := s.now()
	s.delta = current.Sub(s.lastTick).Seconds()
	s.lastTick = current
	s.tickCount++

	for _, fn := range s.callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("tick callback failed", "tick", s.tickCount, "panic", r)
				}
			}()
			fn(s.delta)
		}()
	}
}

// Register adds a per-tick callback.
func (s *Scheduler) Register(fn TickFunc) {
	s.callbacks = append(s.callbacks, fn)
}

// SetTickRate changes the tick interval, floored at 0.1s.
func (s *Scheduler) SetTickRate(rate float64) {
	if rate < minTickRate {
		rate = minTickRate
	}
	s.tickRate = rate
}

// TickRate returns the configured tick interval in seconds.
func (s *Scheduler) TickRate() float64 { return s.tickRate }

// TickCount returns the number of ticks fired since creation.
func (s *Scheduler) TickCount() uint64 { return s.tickCount }

// Delta returns the deltaTime of the most recent tick.
func (s *Scheduler) Delta() float64 { return s.delta }
