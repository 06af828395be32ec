package cdap

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/andoni-guzman/cdapio/pkg/coder"
	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/format"
	"github.com/andoni-guzman/cdapio/pkg/logger"
	"github.com/andoni-guzman/cdapio/pkg/metrics"
	"github.com/andoni-guzman/cdapio/pkg/plugin"
	"github.com/andoni-guzman/cdapio/pkg/record"
	"github.com/andoni-guzman/cdapio/pkg/streaming"
)

// Read builds a read stage from a plugin descriptor. Read is an immutable
// request value: every With setter returns a copy, and a request is discarded
// once the stage is built.
type Read struct {
	plugin    *plugin.Plugin
	cfg       plugin.Config
	keyType   reflect.Type
	valueType reflect.Type

	engine   format.Engine
	coders   *coder.Registry
	registry *plugin.Registry
}

// NewRead creates an empty read request.
func NewRead() Read {
	return Read{}
}

// WithPlugin sets the plugin descriptor.
func (r Read) WithPlugin(p *plugin.Plugin) Read {
	r.plugin = p
	return r
}

// WithPluginConfig sets the resolved plugin configuration.
func (r Read) WithPluginConfig(cfg plugin.Config) Read {
	r.cfg = cfg
	return r
}

// WithKeyType sets the key type witness. The witness must match the format's
// actual key class or the build fails with a configuration_mismatch error.
func (r Read) WithKeyType(t reflect.Type) Read {
	r.keyType = t
	return r
}

// WithValueType sets the value type witness.
func (r Read) WithValueType(t reflect.Type) Read {
	r.valueType = t
	return r
}

// WithEngine overrides the format engine used for bounded plugins. Defaults
// to the text engine.
func (r Read) WithEngine(e format.Engine) Read {
	r.engine = e
	return r
}

// WithCoders overrides the coder registry used to resolve the value coder of
// unbounded plugins. Defaults to the process-wide registry.
func (r Read) WithCoders(c *coder.Registry) Read {
	r.coders = c
	return r
}

// WithRegistry overrides the plugin registry used to resolve streaming
// bindings. Defaults to the global registry.
func (r Read) WithRegistry(reg *plugin.Registry) Read {
	r.registry = reg
	return r
}

// Build validates the request and constructs the read stage. No data is read
// during construction.
func (r Read) Build() (ReadStage, error) {
	stage, err := r.build()
	if err != nil {
		recordBuildFailure("read", err)
		return nil, err
	}
	metrics.StagesBuilt.WithLabelValues("read", string(r.plugin.Classification())).Inc()
	return stage, nil
}

func (r Read) build() (ReadStage, error) {
	if r.plugin == nil {
		return nil, errors.NewMissingConfiguration("plugin")
	}
	if r.cfg == nil {
		return nil, errors.NewMissingConfiguration("plugin config")
	}
	if r.keyType == nil {
		return nil, errors.NewMissingConfiguration("key type")
	}
	if r.valueType == nil {
		return nil, errors.NewMissingConfiguration("value type")
	}

	p := r.plugin.WithConfig(r.cfg)
	log := logger.Get().With(zap.String("plugin", p.Name()),
		zap.String("classification", string(p.Classification())))

	if p.IsUnbounded() {
		registry := r.registry
		if registry == nil {
			registry = plugin.GetRegistry()
		}
		binding, err := registry.BindingFor(p)
		if err != nil {
			return nil, err
		}

		offsetFn, err := binding.OffsetFn(r.valueType)
		if err != nil {
			return nil, err
		}
		receiverBuilder, err := binding.ReceiverBuilder(r.cfg, r.valueType)
		if err != nil {
			return nil, err
		}

		coders := r.coders
		if coders == nil {
			coders = coder.Default()
		}
		valueCoder, err := coders.CoderFor(r.valueType)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "could not get value coder")
		}

		read, err := streaming.NewRead(offsetFn, receiverBuilder)
		if err != nil {
			return nil, err
		}

		log.Debug("unbounded read stage built")
		return &unboundedReadStage{read: read, valueCoder: valueCoder}, nil
	}

	conf, err := p.FormatConfiguration(r.keyType, r.valueType)
	if err != nil {
		return nil, err
	}

	engine := r.engine
	if engine == nil {
		engine = format.NewTextEngine()
	}
	src, err := engine.Read(conf)
	if err != nil {
		return nil, err
	}

	log.Debug("bounded read stage built")
	return src, nil
}

// unboundedReadStage bridges the streaming backend's value stream into the
// key/value record model. The backend only carries a value, so records are
// synthesized as (nil-key, value) pairs; this narrowing is deliberate and
// visible to consumers.
type unboundedReadStage struct {
	read       *streaming.Read
	valueCoder coder.Coder
}

func (s *unboundedReadStage) Open(ctx context.Context) (*record.Stream, error) {
	values, err := s.read.Open(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan record.KV, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		for v := range values.Values {
			select {
			case out <- record.KV{Key: nil, Value: v}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err, ok := <-values.Errors; ok && err != nil {
			errs <- err
		}
	}()

	return &record.Stream{Records: out, Errors: errs}, nil
}

// ValueCoder returns the coder resolved for the declared value type, for the
// host engine to serialize values between tasks.
func (s *unboundedReadStage) ValueCoder() coder.Coder {
	return s.valueCoder
}
