// Package format defines the bounded, format-based I/O backend boundary and
// a reference text-file engine.
//
// The adapter never moves data itself: it derives a Configuration from a
// plugin descriptor and asks an Engine for a read or write stage. Engines
// must keep stage construction free of data-source side effects; all I/O
// happens when the host pipeline engine executes the returned Source or
// Sink.
package format

import (
	"context"

	"github.com/andoni-guzman/cdapio/pkg/lock"
	"github.com/andoni-guzman/cdapio/pkg/record"
)

// Source is a bounded read stage. Open performs the actual read; it is
// invoked by the host engine, not by the adapter.
type Source interface {
	Open(ctx context.Context) (*record.Stream, error)
}

// Sink is a bounded write stage consuming a stream of key/value records.
type Sink interface {
	Write(ctx context.Context, in *record.Stream) error
}

// Engine is the format-based batch backend. Read and Write construct stages
// from a derived configuration and fail only on configuration problems;
// neither touches the underlying data.
type Engine interface {
	Read(conf *Configuration) (Source, error)
	Write(conf *Configuration, gate lock.Gate) (Sink, error)
}
