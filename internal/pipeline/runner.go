// Package pipeline provides a minimal runner that executes a built read
// stage into a built write stage.
//
// The adapter's job ends at stage construction; parallel execution,
// windowing and checkpointing belong to the host pipeline engine. This
// runner stands in for that engine in the CLI and in end-to-end tests: it
// opens the read stage, counts records flowing through, and drives the write
// stage with the resulting stream.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andoni-guzman/cdapio/pkg/cdap"
	"github.com/andoni-guzman/cdapio/pkg/logger"
	"github.com/andoni-guzman/cdapio/pkg/metrics"
	"github.com/andoni-guzman/cdapio/pkg/record"
)

// Stats summarizes a completed run.
type Stats struct {
	RunID    string
	Records  int64
	Duration time.Duration
}

// Runner executes read stages into write stages.
type Runner struct {
	plugin string
	logger *zap.Logger
}

// NewRunner creates a runner. The plugin name is used for logging and metric
// labels only.
func NewRunner(pluginName string) *Runner {
	return &Runner{
		plugin: pluginName,
		logger: logger.Get().With(zap.String("component", "runner"), zap.String("plugin", pluginName)),
	}
}

// Run opens the read stage and drives the write stage with its records.
func (r *Runner) Run(ctx context.Context, read cdap.ReadStage, write cdap.WriteStage) (Stats, error) {
	runID := uuid.NewString()
	start := time.Now()
	log := r.logger.With(zap.String("run_id", runID))
	log.Info("run started")

	in, err := read.Open(ctx)
	if err != nil {
		log.Error("opening read stage failed", zap.Error(err))
		return Stats{RunID: runID}, err
	}

	throughput := metrics.NewThroughputTracker()
	counted, count := countStream(ctx, in, r.plugin, throughput)
	if err := write.Write(ctx, counted); err != nil {
		log.Error("write stage failed", zap.Error(err))
		return Stats{RunID: runID, Records: count.Load()}, err
	}

	stats := Stats{RunID: runID, Records: count.Load(), Duration: time.Since(start)}
	log.Info("run finished",
		zap.Int64("records", stats.Records),
		zap.Duration("duration", stats.Duration),
		zap.Float64("records_per_sec", throughput.GetAndReset()))
	return stats, nil
}

// countStream tees a stream through a counter, updating the records-moved
// metric as records pass.
func countStream(ctx context.Context, in *record.Stream, pluginName string, throughput *metrics.ThroughputTracker) (*record.Stream, *atomic.Int64) {
	out := make(chan record.KV, 64)
	errs := make(chan error, 1)
	count := new(atomic.Int64)

	go func() {
		defer close(out)
		defer close(errs)

		for kv := range in.Records {
			select {
			case out <- kv:
				count.Add(1)
				throughput.Increment(1)
				metrics.RecordsMoved.WithLabelValues(pluginName, "read").Inc()
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err, ok := <-in.Errors; ok && err != nil {
			errs <- err
		}
	}()

	return &record.Stream{Records: out, Errors: errs}, count
}
