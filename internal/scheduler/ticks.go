package scheduler

import "time"

// Tick is a monotonic millisecond counter that wraps at 2^32.
type Tick uint32

// Elapsed returns the ticks between last and now.
// Unsigned subtraction keeps the result correct across a counter wrap.
func Elapsed(last, now Tick) Tick {
	return now - last
}

// TickSource provides the current tick value.
type TickSource interface {
	Now() Tick
}

// TickFunc adapts a plain function to TickSource.
type TickFunc func() Tick

// Now implements TickSource.
func (f TickFunc) Now() Tick {
	return f()
}

// SystemTicks counts milliseconds of wall-clock time since it was created.
// The counter starts at zero and wraps after about 49.7 days.
type SystemTicks struct {
	start time.Time
}

// NewSystemTicks creates a tick source anchored at the current time.
func NewSystemTicks() *SystemTicks {
	return &SystemTicks{start: time.Now()}
}

// Now implements TickSource.
func (s *SystemTicks) Now() Tick {
	return Tick(uint32(time.Since(s.start).Milliseconds()))
}
