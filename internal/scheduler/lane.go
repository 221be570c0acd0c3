package scheduler

import "fmt"

// Lane identifies one fixed-period task slot.
type Lane int

const (
	Lane1ms Lane = iota
	Lane10ms
	Lane100ms
	Lane250ms
	Lane1000ms

	numLanes = int(Lane1000ms) + 1
)

var lanePeriods = [numLanes]Tick{1, 10, 100, 250, 1000}

// Lanes lists all lanes in firing order.
func Lanes() []Lane {
	return []Lane{Lane1ms, Lane10ms, Lane100ms, Lane250ms, Lane1000ms}
}

// Period returns the lane's period in ticks, or 0 for an unknown lane.
func Period(l Lane) Tick {
	if !l.valid() {
		return 0
	}
	return lanePeriods[l]
}

func (l Lane) valid() bool {
	return l >= 0 && int(l) < numLanes
}

func (l Lane) String() string {
	if !l.valid() {
		return fmt.Sprintf("lane(%d)", int(l))
	}
	return fmt.Sprintf("%dms", lanePeriods[l])
}
