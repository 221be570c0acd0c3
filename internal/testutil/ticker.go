package testutil

import (
	"sync"

	"github.com/roach88/guardloop/internal/scheduler"
)

// ManualTicker is a tick source driven by the test.
//
// Unlike scheduler.SystemTicks, ManualTicker only moves when told to, so a
// scheduler run against it is fully deterministic. Values wrap at 2^32
// exactly like the hardware counter.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualTicker struct {
	mu    sync.Mutex
	now   scheduler.Tick
	reads int
	step  scheduler.Tick
}

// NewManualTicker creates a ticker reading start.
func NewManualTicker(start scheduler.Tick) *ManualTicker {
	return &ManualTicker{now: start}
}

// Now returns the current tick. With a non-zero auto step, every read
// advances the counter by that step after returning the current value.
func (m *ManualTicker) Now() scheduler.Tick {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	t := m.now
	m.now += m.step
	return t
}

// Set moves the counter to t.
func (m *ManualTicker) Set(t scheduler.Tick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the counter forward by d ticks, wrapping at 2^32.
func (m *ManualTicker) Advance(d scheduler.Tick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
}

// AutoStep makes every Now call advance the counter by step.
// Used to model lanes observing different instants within one cycle.
func (m *ManualTicker) AutoStep(step scheduler.Tick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.step = step
}

// Reads returns how many times Now has been called.
func (m *ManualTicker) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}
