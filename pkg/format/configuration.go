package format

import (
	"reflect"
	"sort"
)

// Well-known configuration keys consumed by format engines.
const (
	// KeyClassKey names the record key type the format produces or consumes.
	KeyClassKey = "key.class"
	// ValueClassKey names the record value type.
	ValueClassKey = "value.class"
	// FormatClassKey names the format implementation.
	FormatClassKey = "format.class"
	// PluginNameKey names the connector implementation the configuration was
	// derived from.
	PluginNameKey = "plugin.name"
	// OutputDirKey, when set by a format provider, names the directory the
	// write path commits output into.
	OutputDirKey = "output.dir"
	// PartitioningKey enables partitioned output on the write path.
	PartitioningKey = "partitioning.enabled"
	// SyncDirKey names the directory the synchronization gate is scoped to.
	SyncDirKey = "synchronization.dir"
)

// Configuration is the key/value configuration a format engine is driven by,
// equivalent to {"key.class": K, "value.class": V, ...plugin-specific...}.
// Each derivation produces a fresh instance owned by a single stage build;
// instances are never shared between descriptors.
type Configuration struct {
	values map[string]string
}

// NewConfiguration creates an empty configuration.
func NewConfiguration() *Configuration {
	return &Configuration{values: make(map[string]string)}
}

// Set stores a key/value entry.
func (c *Configuration) Set(key, value string) {
	c.values[key] = value
}

// SetAll stores every entry of m.
func (c *Configuration) SetAll(m map[string]string) {
	for k, v := range m {
		c.values[k] = v
	}
}

// Get returns the value for key, or the empty string when absent.
func (c *Configuration) Get(key string) string {
	return c.values[key]
}

// Has reports whether key is present.
func (c *Configuration) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Keys returns all keys in sorted order.
func (c *Configuration) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (c *Configuration) Clone() *Configuration {
	out := NewConfiguration()
	out.SetAll(c.values)
	return out
}

// TypeName returns the class-name representation of a type witness used in
// key.class / value.class entries.
func TypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}
