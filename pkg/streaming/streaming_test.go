package streaming

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andoni-guzman/cdapio/pkg/errors"
)

// sliceReceiver pushes a fixed set of values and stops.
type sliceReceiver struct {
	values []interface{}
	err    error
}

func (r *sliceReceiver) Start(ctx context.Context, emit EmitFunc) error {
	for _, v := range r.values {
		if err := emit(v); err != nil {
			return err
		}
	}
	return r.err
}

func identityOffset(value interface{}) int64 {
	n, _ := value.(int64)
	return n
}

func TestNewReadValidatesFunctions(t *testing.T) {
	builder := func() (Receiver, error) { return &sliceReceiver{}, nil }

	_, err := NewRead(nil, builder)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingConfiguration))
	field, _ := errors.Field(err)
	assert.Equal(t, "offset function", field)

	_, err = NewRead(identityOffset, nil)
	require.Error(t, err)
	field, _ = errors.Field(err)
	assert.Equal(t, "receiver builder", field)
}

func TestReadEmitsValuesAndTracksOffset(t *testing.T) {
	read, err := NewRead(identityOffset, func() (Receiver, error) {
		return &sliceReceiver{values: []interface{}{int64(10), int64(20), int64(30)}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), read.LastOffset())

	stream, err := read.Open(context.Background())
	require.NoError(t, err)

	var got []interface{}
	for v := range stream.Values {
		got = append(got, v)
	}
	assert.Equal(t, []interface{}{int64(10), int64(20), int64(30)}, got)

	if err, ok := <-stream.Errors; ok {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(30), read.LastOffset())
}

func TestReadBuilderFailurePropagates(t *testing.T) {
	buildErr := errors.New(errors.ErrorTypeConnection, "broker unreachable")
	read, err := NewRead(identityOffset, func() (Receiver, error) {
		return nil, buildErr
	})
	require.NoError(t, err)

	_, err = read.Open(context.Background())
	assert.ErrorIs(t, err, buildErr)
}

func TestReadReceiverFailurePropagates(t *testing.T) {
	recvErr := errors.New(errors.ErrorTypeConnection, "stream reset")
	read, err := NewRead(identityOffset, func() (Receiver, error) {
		return &sliceReceiver{values: []interface{}{int64(1)}, err: recvErr}, nil
	})
	require.NoError(t, err)

	stream, err := read.Open(context.Background())
	require.NoError(t, err)

	for range stream.Values {
	}
	got, ok := <-stream.Errors
	require.True(t, ok)
	assert.ErrorIs(t, got, recvErr)
}

// tickReceiver emits forever until its context is done.
type tickReceiver struct{}

func (tickReceiver) Start(ctx context.Context, emit EmitFunc) error {
	var n int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := emit(n); err != nil {
			return err
		}
		n++
	}
}

func TestReadStopsOnContextCancel(t *testing.T) {
	read, err := NewRead(identityOffset, func() (Receiver, error) {
		return tickReceiver{}, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := read.Open(ctx)
	require.NoError(t, err)

	// Take a few values, then cancel.
	for i := 0; i < 5; i++ {
		select {
		case <-stream.Values:
		case <-time.After(time.Second):
			t.Fatal("receiver did not emit")
		}
	}
	cancel()

	// The stream must terminate without reporting the cancellation as a
	// receiver failure.
	for range stream.Values {
	}
	if err, ok := <-stream.Errors; ok {
		assert.NoError(t, err)
	}
}
