package testutil

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/guardloop/internal/scheduler"
)

func TestManualTicker_StartsAtGivenValue(t *testing.T) {
	ticker := NewManualTicker(42)
	assert.Equal(t, scheduler.Tick(42), ticker.Now())
	assert.Equal(t, scheduler.Tick(42), ticker.Now(), "Now does not advance without auto step")
	assert.Equal(t, 2, ticker.Reads())
}

func TestManualTicker_AdvanceWraps(t *testing.T) {
	ticker := NewManualTicker(math.MaxUint32 - 1)

	ticker.Advance(3)

	assert.Equal(t, scheduler.Tick(1), ticker.Now())
}

func TestManualTicker_AutoStep(t *testing.T) {
	ticker := NewManualTicker(10)
	ticker.AutoStep(2)

	assert.Equal(t, scheduler.Tick(10), ticker.Now())
	assert.Equal(t, scheduler.Tick(12), ticker.Now())

	ticker.Set(100)
	assert.Equal(t, scheduler.Tick(100), ticker.Now())
}

func TestManualTicker_ThreadSafe(t *testing.T) {
	ticker := NewManualTicker(0)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				ticker.Advance(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, scheduler.Tick(numGoroutines*callsPerGoroutine), ticker.Now())
}

func TestFixedRunIDGenerator(t *testing.T) {
	assert.Equal(t, "run-1", NewFixedRunIDGenerator("run-1").Generate())
	assert.Equal(t, "test-run-default", NewFixedRunIDGenerator("").Generate())
}
