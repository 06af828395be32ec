// Package plugin models descriptors for connector plugins and the registry
// that resolves them by name.
//
// A descriptor identifies which connector implementation a stage is built
// from and how it is classified. Bounded descriptors carry the triple of
// connector implementation, format, and format provider used by the
// format-based batch backend; unbounded descriptors carry a single receiver
// source served by the streaming backend. Classification is decided by which
// constructor built the descriptor and never changes afterwards.
package plugin

import (
	"reflect"

	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/format"
)

// Config is a plugin's typed configuration object, produced by the config
// resolver. The descriptor treats it as opaque.
type Config interface{}

// Classification tags a descriptor as bounded or unbounded.
type Classification string

const (
	// Bounded plugins read or write a finite data set through the format
	// engine.
	Bounded Classification = "bounded"
	// Unbounded plugins produce continuously through the receiver engine.
	Unbounded Classification = "unbounded"
)

// BatchPlugin is a bounded connector implementation.
type BatchPlugin interface {
	// Name identifies the connector implementation.
	Name() string
	// PrepareRun validates the attached configuration before a stage is
	// built. It must not touch the underlying data source.
	PrepareRun(cfg Config) error
}

// Format identifies the format implementation used by the batch backend and
// declares its actual element types.
type Format interface {
	Name() string
	KeyType() reflect.Type
	ValueType() reflect.Type
}

// FormatProvider supplies the format-specific configuration entries derived
// from a plugin configuration.
type FormatProvider interface {
	FormatProperties(cfg Config) (map[string]string, error)
}

// StreamingSource is an unbounded connector implementation. Its offset and
// receiver functions are resolved through the registry's streaming bindings.
type StreamingSource interface {
	Name() string
}

// Plugin is a descriptor for a connector plugin. A descriptor is
// single-owner: attaching configuration concurrently is not supported.
type Plugin struct {
	classification Classification

	batch    BatchPlugin
	format   Format
	provider FormatProvider

	streaming StreamingSource

	cfg Config
}

// NewBatch creates a bounded descriptor from the connector implementation,
// its format, and the format provider.
func NewBatch(p BatchPlugin, f Format, fp FormatProvider) *Plugin {
	return &Plugin{
		classification: Bounded,
		batch:          p,
		format:         f,
		provider:       fp,
	}
}

// NewStreaming creates an unbounded descriptor from a receiver source.
func NewStreaming(s StreamingSource) *Plugin {
	return &Plugin{
		classification: Unbounded,
		streaming:      s,
	}
}

// Name returns the connector implementation name.
func (p *Plugin) Name() string {
	if p.classification == Unbounded {
		return p.streaming.Name()
	}
	return p.batch.Name()
}

// Classification returns the descriptor's classification, fixed at
// construction.
func (p *Plugin) Classification() Classification {
	return p.classification
}

// IsUnbounded reports whether the descriptor was built for streaming.
func (p *Plugin) IsUnbounded() bool {
	return p.classification == Unbounded
}

// WithConfig attaches the plugin configuration. The configuration is meant
// to be set once before the descriptor is used to build a stage.
func (p *Plugin) WithConfig(cfg Config) *Plugin {
	p.cfg = cfg
	return p
}

// Config returns the attached configuration, or nil when none is attached.
func (p *Plugin) Config() Config {
	return p.cfg
}

// Streaming returns the receiver source of an unbounded descriptor.
func (p *Plugin) Streaming() StreamingSource {
	return p.streaming
}

// FormatConfiguration derives a fresh backend configuration scoped by the
// key/value type witnesses. Derivation is repeated on every call; the result
// is owned exclusively by the caller.
//
// Fails with configuration_mismatch when the witnesses disagree with the
// format's actual element types, and propagates provider and prepare-run
// failures.
func (p *Plugin) FormatConfiguration(keyType, valueType reflect.Type) (*format.Configuration, error) {
	if p.classification == Unbounded {
		return nil, errors.New(errors.ErrorTypeInternal,
			"format configuration is only defined for bounded plugins")
	}
	if p.cfg == nil {
		return nil, errors.NewMissingConfiguration("plugin config")
	}

	if actual := p.format.KeyType(); keyType != actual {
		return nil, errors.NewConfigurationMismatch("key",
			format.TypeName(keyType), format.TypeName(actual))
	}
	if actual := p.format.ValueType(); valueType != actual {
		return nil, errors.NewConfigurationMismatch("value",
			format.TypeName(valueType), format.TypeName(actual))
	}

	props, err := p.provider.FormatProperties(p.cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "resolving format properties")
	}

	if err := p.batch.PrepareRun(p.cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "plugin prepare run")
	}

	conf := format.NewConfiguration()
	conf.Set(format.PluginNameKey, p.batch.Name())
	conf.Set(format.FormatClassKey, p.format.Name())
	conf.Set(format.KeyClassKey, format.TypeName(keyType))
	conf.Set(format.ValueClassKey, format.TypeName(valueType))
	conf.SetAll(props)
	return conf, nil
}
