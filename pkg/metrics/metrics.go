// Package metrics provides Prometheus metrics for the adapter.
//
// Stage construction and gate coordination are the two instrumented
// surfaces: how many stages were built (and how many builds failed, by error
// category), how many records moved through built stages, and how long write
// tasks wait on the synchronization gate.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StagesBuilt tracks successfully built stages.
	// Labels: direction (read/write), classification (bounded/unbounded)
	StagesBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdapio_stages_built_total",
			Help: "Total number of pipeline stages built",
		},
		[]string{"direction", "classification"},
	)

	// BuildFailures tracks stage construction failures by error category.
	// Labels: direction (read/write), error_type
	BuildFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdapio_stage_build_failures_total",
			Help: "Total number of stage construction failures",
		},
		[]string{"direction", "error_type"},
	)

	// RecordsMoved tracks records flowing through executed stages.
	// Labels: plugin, direction (read/write)
	RecordsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdapio_records_moved_total",
			Help: "Total number of records moved through stages",
		},
		[]string{"plugin", "direction"},
	)

	// GateHolders tracks the number of tasks currently holding a
	// synchronization gate. Labels: dir
	GateHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cdapio_gate_holders",
			Help: "Number of tasks currently holding the synchronization gate",
		},
		[]string{"dir"},
	)

	// GateWaitSeconds tracks how long write tasks wait to acquire the gate.
	GateWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cdapio_gate_wait_seconds",
			Help:    "Time spent waiting to acquire the synchronization gate",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop stops the timer and returns the elapsed duration since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks records per second over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
}

// NewThroughputTracker creates a new throughput tracker.
func NewThroughputTracker() *ThroughputTracker {
	return &ThroughputTracker{lastReset: time.Now()}
}

// Increment adds n to the record count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (records/second), resets the
// counter, and returns the calculated throughput.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed
	t.count = 0
	t.lastReset = time.Now()
	return throughput
}
