// Package sequence provides the reference unbounded plugin: a receiver that
// pushes a monotonically increasing int64 sequence at a fixed interval. The
// value doubles as its own offset, which keeps the offset-extraction
// contract easy to observe in tests.
package sequence

import (
	"context"
	"reflect"
	"time"

	"github.com/andoni-guzman/cdapio/pkg/config"
	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/plugin"
	"github.com/andoni-guzman/cdapio/pkg/streaming"
)

// Name is the registered plugin name.
const Name = "sequence"

// Config is the plugin configuration.
type Config struct {
	// Start is the first value emitted.
	Start int64 `config:"start"`
	// Interval is the delay between emitted values.
	Interval time.Duration `config:"interval"`
	// Limit caps the number of emitted values; zero means unbounded.
	Limit int64 `config:"limit"`
}

// Schema declares the plugin's parameters.
var Schema = config.Schema{
	Name: Name,
	Fields: []config.Field{
		{Name: "start", Kind: config.KindInt},
		{Name: "interval", Kind: config.KindDuration, Required: true},
		{Name: "limit", Kind: config.KindInt},
	},
}

var valueType = reflect.TypeOf(int64(0))

// NewPlugin creates a fresh unbounded descriptor for the plugin.
func NewPlugin() *plugin.Plugin {
	return plugin.NewStreaming(streamingSource{})
}

type streamingSource struct{}

func (streamingSource) Name() string { return Name }

// Binding resolves the plugin's offset and receiver functions.
type Binding struct{}

// OffsetFn returns the offset extractor. The emitted value is its own
// offset.
func (Binding) OffsetFn(vt reflect.Type) (streaming.OffsetFn, error) {
	if vt != valueType {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"sequence emits int64 values, got value type %s", vt)
	}
	return func(value interface{}) int64 {
		n, _ := value.(int64)
		return n
	}, nil
}

// ReceiverBuilder returns the receiver constructor for the attached
// configuration.
func (Binding) ReceiverBuilder(cfg plugin.Config, vt reflect.Type) (streaming.ReceiverBuilder, error) {
	if vt != valueType {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"sequence emits int64 values, got value type %s", vt)
	}
	c, ok := cfg.(*Config)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"sequence expects *sequence.Config, got %T", cfg)
	}
	if c.Interval <= 0 {
		return nil, errors.NewConfigMapping("interval", "must be positive")
	}

	return func() (streaming.Receiver, error) {
		return &receiver{start: c.Start, interval: c.Interval, limit: c.Limit}, nil
	}, nil
}

type receiver struct {
	start    int64
	interval time.Duration
	limit    int64
}

// Start pushes sequence values until ctx is done or the configured limit is
// reached.
func (r *receiver) Start(ctx context.Context, emit streaming.EmitFunc) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	next := r.start
	var emitted int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := emit(next); err != nil {
				return err
			}
			next++
			emitted++
			if r.limit > 0 && emitted >= r.limit {
				return nil
			}
		}
	}
}
