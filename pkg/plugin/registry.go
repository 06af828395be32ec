package plugin

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/logger"
	"github.com/andoni-guzman/cdapio/pkg/streaming"
)

// Factory creates a fresh descriptor for a registered plugin. Each call must
// return a new instance; descriptors are single-owner.
type Factory func() *Plugin

// StreamingBinding resolves the offset-extraction and receiver-construction
// functions for an unbounded plugin, scoped by the declared value type.
type StreamingBinding interface {
	OffsetFn(valueType reflect.Type) (streaming.OffsetFn, error)
	ReceiverBuilder(cfg Config, valueType reflect.Type) (streaming.ReceiverBuilder, error)
}

// Registry manages plugin registration and lookup by name.
type Registry struct {
	mu       sync.RWMutex
	plugins  map[string]Factory
	bindings map[string]StreamingBinding
	logger   *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:  make(map[string]Factory),
		bindings: make(map[string]StreamingBinding),
		logger:   logger.Get().With(zap.String("component", "plugin_registry")),
	}
}

// Register registers a plugin descriptor factory.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("plugin %s already registered", name))
	}

	r.plugins[name] = factory
	r.logger.Info("plugin registered", zap.String("name", name))
	return nil
}

// RegisterStreaming registers the streaming binding for an unbounded plugin.
func (r *Registry) RegisterStreaming(name string, binding StreamingBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bindings[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("streaming binding for %s already registered", name))
	}

	r.bindings[name] = binding
	r.logger.Info("streaming binding registered", zap.String("name", name))
	return nil
}

// ByName creates a fresh descriptor for a registered plugin.
func (r *Registry) ByName(name string) (*Plugin, error) {
	r.mu.RLock()
	factory, exists := r.plugins[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("plugin %s not found", name))
	}
	return factory(), nil
}

// BindingFor returns the streaming binding for an unbounded descriptor.
func (r *Registry) BindingFor(p *Plugin) (StreamingBinding, error) {
	if !p.IsUnbounded() {
		return nil, errors.New(errors.ErrorTypeInternal,
			"streaming bindings are only defined for unbounded plugins")
	}

	r.mu.RLock()
	binding, exists := r.bindings[p.Name()]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig,
			fmt.Sprintf("no streaming binding registered for plugin %s", p.Name()))
	}
	return binding, nil
}

// List returns the names of all registered plugins.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	return names
}

// Has reports whether a plugin is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.plugins[name]
	return exists
}

// Clear removes all registered plugins and bindings (mainly for testing).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plugins = make(map[string]Factory)
	r.bindings = make(map[string]StreamingBinding)
}

// Global registry functions

// Register registers a plugin factory in the global registry.
func Register(name string, factory Factory) error {
	return globalRegistry.Register(name, factory)
}

// RegisterStreaming registers a streaming binding in the global registry.
func RegisterStreaming(name string, binding StreamingBinding) error {
	return globalRegistry.RegisterStreaming(name, binding)
}

// ByName creates a descriptor from the global registry.
func ByName(name string) (*Plugin, error) {
	return globalRegistry.ByName(name)
}

// BindingFor resolves a streaming binding from the global registry.
func BindingFor(p *Plugin) (StreamingBinding, error) {
	return globalRegistry.BindingFor(p)
}

// List returns registered plugin names from the global registry.
func List() []string {
	return globalRegistry.List()
}

// Has checks the global registry for a plugin.
func Has(name string) bool {
	return globalRegistry.Has(name)
}

// GetRegistry returns the global registry instance.
func GetRegistry() *Registry {
	return globalRegistry
}
