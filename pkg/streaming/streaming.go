// Package streaming defines the unbounded, receiver-based backend boundary.
//
// An unbounded read stage is parameterized by two functions: a
// ReceiverBuilder that constructs the push-based receiver and an OffsetFn
// that extracts a monotonic offset from each received value. The receiver is
// neither built nor started until the host engine opens the stage.
package streaming

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/logger"
	"github.com/andoni-guzman/cdapio/pkg/record"
)

// EmitFunc pushes one received value into the stage.
type EmitFunc func(value interface{}) error

// Receiver is a push-based unbounded source. Start blocks, calling emit for
// each value, until ctx is done or the receiver fails.
type Receiver interface {
	Start(ctx context.Context, emit EmitFunc) error
}

// ReceiverBuilder constructs a receiver. Called at stage execution, never at
// stage construction.
type ReceiverBuilder func() (Receiver, error)

// OffsetFn extracts the offset of a received value.
type OffsetFn func(value interface{}) int64

// Read is an unbounded read stage producing bare values.
type Read struct {
	offsetFn   OffsetFn
	builder    ReceiverBuilder
	buffer     int
	lastOffset atomic.Int64
	logger     *zap.Logger
}

// NewRead constructs an unbounded read stage from the offset-extraction and
// receiver-construction functions.
func NewRead(offsetFn OffsetFn, builder ReceiverBuilder) (*Read, error) {
	if offsetFn == nil {
		return nil, errors.NewMissingConfiguration("offset function")
	}
	if builder == nil {
		return nil, errors.NewMissingConfiguration("receiver builder")
	}
	r := &Read{
		offsetFn: offsetFn,
		builder:  builder,
		buffer:   64,
		logger:   logger.Get().With(zap.String("component", "streaming_read")),
	}
	r.lastOffset.Store(-1)
	return r, nil
}

// Open builds and starts the receiver, returning the value stream. The
// stream ends when ctx is canceled or the receiver stops on its own.
func (r *Read) Open(ctx context.Context) (*record.ValueStream, error) {
	receiver, err := r.builder()
	if err != nil {
		return nil, err
	}

	out := make(chan interface{}, r.buffer)
	errs := make(chan error, 1)

	emit := func(value interface{}) error {
		select {
		case out <- value:
			r.lastOffset.Store(r.offsetFn(value))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(out)
		defer close(errs)

		if err := receiver.Start(ctx, emit); err != nil && ctx.Err() == nil {
			errs <- err
		}
		r.logger.Debug("receiver stopped", zap.Int64("last_offset", r.lastOffset.Load()))
	}()

	return &record.ValueStream{Values: out, Errors: errs}, nil
}

// LastOffset returns the offset of the most recently emitted value, or -1
// when nothing has been emitted.
func (r *Read) LastOffset() int64 {
	return r.lastOffset.Load()
}
