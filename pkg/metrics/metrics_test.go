package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerMeasuresElapsed(t *testing.T) {
	timer := NewTimer("test")
	time.Sleep(10 * time.Millisecond)

	elapsed := timer.Stop()
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
}

func TestThroughputTracker(t *testing.T) {
	tracker := NewThroughputTracker()
	tracker.Increment(50)
	tracker.Increment(50)

	time.Sleep(10 * time.Millisecond)
	throughput := tracker.GetAndReset()
	assert.Greater(t, throughput, 0.0)

	// Counter resets after read.
	time.Sleep(time.Millisecond)
	assert.Equal(t, 0.0, tracker.GetAndReset())
}
