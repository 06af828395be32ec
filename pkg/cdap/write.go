package cdap

import (
	"path/filepath"
	"reflect"

	"go.uber.org/zap"

	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/format"
	"github.com/andoni-guzman/cdapio/pkg/lock"
	"github.com/andoni-guzman/cdapio/pkg/logger"
	"github.com/andoni-guzman/cdapio/pkg/metrics"
	"github.com/andoni-guzman/cdapio/pkg/plugin"
)

// Write builds a write stage from a plugin descriptor. Like Read it is an
// immutable request value. In addition to the read fields it requires a
// synchronization directory through which concurrent write tasks serialize
// their output commits. The directory must differ from any directory used as
// a data output path.
type Write struct {
	plugin    *plugin.Plugin
	cfg       plugin.Config
	keyType   reflect.Type
	valueType reflect.Type
	syncDir   string

	engine format.Engine
	gate   lock.Gate
}

// NewWrite creates an empty write request.
func NewWrite() Write {
	return Write{}
}

// WithPlugin sets the plugin descriptor.
func (w Write) WithPlugin(p *plugin.Plugin) Write {
	w.plugin = p
	return w
}

// WithPluginConfig sets the resolved plugin configuration.
func (w Write) WithPluginConfig(cfg plugin.Config) Write {
	w.cfg = cfg
	return w
}

// WithKeyType sets the key type witness.
func (w Write) WithKeyType(t reflect.Type) Write {
	w.keyType = t
	return w
}

// WithValueType sets the value type witness.
func (w Write) WithValueType(t reflect.Type) Write {
	w.valueType = t
	return w
}

// WithSyncDir sets the synchronization directory path.
func (w Write) WithSyncDir(dir string) Write {
	w.syncDir = dir
	return w
}

// WithEngine overrides the format engine. Defaults to the text engine.
func (w Write) WithEngine(e format.Engine) Write {
	w.engine = e
	return w
}

// WithGate overrides the synchronization gate, mainly so tests can inject an
// instrumented in-memory gate. Defaults to a directory gate scoped to the
// synchronization directory.
func (w Write) WithGate(g lock.Gate) Write {
	w.gate = g
	return w
}

// Build validates the request and constructs the write stage. Unbounded
// plugins fail with unsupported_operation regardless of configuration
// validity: streaming write is a permanent capability gap, not a transient
// failure, and callers must not retry it.
func (w Write) Build() (WriteStage, error) {
	stage, err := w.build()
	if err != nil {
		recordBuildFailure("write", err)
		return nil, err
	}
	metrics.StagesBuilt.WithLabelValues("write", string(w.plugin.Classification())).Inc()
	return stage, nil
}

func (w Write) build() (WriteStage, error) {
	if w.plugin == nil {
		return nil, errors.NewMissingConfiguration("plugin")
	}
	if w.cfg == nil {
		return nil, errors.NewMissingConfiguration("plugin config")
	}
	if w.keyType == nil {
		return nil, errors.NewMissingConfiguration("key type")
	}
	if w.valueType == nil {
		return nil, errors.NewMissingConfiguration("value type")
	}
	if w.syncDir == "" {
		return nil, errors.NewMissingConfiguration("synchronization directory")
	}

	p := w.plugin.WithConfig(w.cfg)

	if p.IsUnbounded() {
		return nil, errors.NewUnsupported("streaming write not supported")
	}

	conf, err := p.FormatConfiguration(w.keyType, w.valueType)
	if err != nil {
		return nil, err
	}
	conf.Set(format.PartitioningKey, "true")
	conf.Set(format.SyncDirKey, w.syncDir)

	if out := conf.Get(format.OutputDirKey); out != "" &&
		filepath.Clean(out) == filepath.Clean(w.syncDir) {
		return nil, errors.New(errors.ErrorTypeValidation,
			"synchronization directory must differ from the data output directory")
	}

	gate := w.gate
	if gate == nil {
		gate = lock.NewDirGate(w.syncDir)
	}

	engine := w.engine
	if engine == nil {
		engine = format.NewTextEngine()
	}
	sink, err := engine.Write(conf, gate)
	if err != nil {
		return nil, err
	}

	logger.Get().Debug("bounded write stage built",
		zap.String("plugin", p.Name()), zap.String("sync_dir", w.syncDir))
	return sink, nil
}
