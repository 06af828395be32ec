// Package lock provides the directory-scoped synchronization gate handed to
// the format engine's write path.
//
// Concurrent write tasks produced from the same write stage serialize their
// output commits through a Gate: acquisition blocks until the gate is free,
// and the returned release function must be called unconditionally, success
// or failure. The gate is an injected capability so tests can substitute an
// in-memory implementation for the filesystem one.
package lock

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/logger"
	"github.com/andoni-guzman/cdapio/pkg/metrics"
)

// Gate is a mutual-exclusion capability scoped to a shared resource.
// Acquire blocks until the gate is available or ctx is done. The returned
// release function is idempotent.
type Gate interface {
	Acquire(ctx context.Context) (release func(), err error)
}

const (
	lockFileName    = ".lock"
	defaultInterval = 50 * time.Millisecond
)

// DirGate is a Gate backed by an exclusive lock file inside a directory.
// The directory must differ from any directory used as a data output path;
// reusing the output directory risks the lock file being swept up with
// committed output. That distinctness is the caller's responsibility.
type DirGate struct {
	dir      string
	interval time.Duration
	logger   *zap.Logger
}

// NewDirGate creates a gate scoped to dir. The directory is created on first
// acquisition if it does not exist.
func NewDirGate(dir string) *DirGate {
	return &DirGate{
		dir:      dir,
		interval: defaultInterval,
		logger:   logger.Get().With(zap.String("component", "dir_gate"), zap.String("dir", dir)),
	}
}

// Dir returns the directory the gate is scoped to.
func (g *DirGate) Dir() string {
	return g.dir
}

// Acquire blocks until the lock file can be created exclusively. Contention
// is handled by a timer, not a busy spin.
func (g *DirGate) Acquire(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "creating lock directory")
	}

	path := filepath.Join(g.dir, lockFileName)
	timer := metrics.NewTimer("gate_acquire")

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_ = f.Close()
			metrics.GateWaitSeconds.Observe(timer.Stop().Seconds())
			metrics.GateHolders.WithLabelValues(g.dir).Inc()
			g.logger.Debug("gate acquired")

			var released atomic.Bool
			return func() {
				if !released.CompareAndSwap(false, true) {
					return
				}
				if rmErr := os.Remove(path); rmErr != nil {
					g.logger.Warn("failed to remove lock file", zap.Error(rmErr))
				}
				metrics.GateHolders.WithLabelValues(g.dir).Dec()
				g.logger.Debug("gate released")
			}, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "creating lock file")
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "waiting for gate")
		case <-time.After(g.interval):
		}
	}
}

// MemoryGate is an in-memory Gate for tests. It records the maximum number of
// concurrent holders observed, which a correct gate keeps at one.
type MemoryGate struct {
	sem        chan struct{}
	holders    atomic.Int32
	maxHolders atomic.Int32
	acquires   atomic.Int64
}

// NewMemoryGate creates an in-memory gate.
func NewMemoryGate() *MemoryGate {
	return &MemoryGate{sem: make(chan struct{}, 1)}
}

// Acquire blocks on an internal semaphore until the gate is free or ctx is
// done.
func (g *MemoryGate) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "waiting for gate")
	}

	g.acquires.Add(1)
	holders := g.holders.Add(1)
	for {
		max := g.maxHolders.Load()
		if holders <= max || g.maxHolders.CompareAndSwap(max, holders) {
			break
		}
	}

	var released atomic.Bool
	return func() {
		if !released.CompareAndSwap(false, true) {
			return
		}
		g.holders.Add(-1)
		<-g.sem
	}, nil
}

// MaxHolders returns the maximum number of concurrent holders observed.
func (g *MemoryGate) MaxHolders() int32 {
	return g.maxHolders.Load()
}

// Acquires returns the total number of successful acquisitions.
func (g *MemoryGate) Acquires() int64 {
	return g.acquires.Load()
}
