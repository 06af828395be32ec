// Package coder provides serialization coders keyed by element type.
//
// The streaming backend hands the host engine bare values; the engine needs a
// coder for the declared value type to move those values between tasks. The
// registry resolves a coder from a type witness at stage build time so an
// unserializable value type fails fast instead of during data movement.
package coder

import (
	"encoding/binary"
	"math"
	"reflect"
	"sync"

	"github.com/goccy/go-json"

	"github.com/andoni-guzman/cdapio/pkg/errors"
)

// Coder encodes and decodes values of a single element type.
type Coder interface {
	Encode(v interface{}) ([]byte, error)
	Decode(b []byte) (interface{}, error)
}

// Registry resolves coders from element type witnesses.
type Registry struct {
	mu     sync.RWMutex
	coders map[reflect.Type]Coder
}

// NewRegistry creates a registry pre-populated with coders for the common
// element types: string, []byte, int64, float64 and bool.
func NewRegistry() *Registry {
	r := &Registry{coders: make(map[reflect.Type]Coder)}
	r.Register(reflect.TypeOf(""), stringCoder{})
	r.Register(reflect.TypeOf([]byte(nil)), bytesCoder{})
	r.Register(reflect.TypeOf(int64(0)), int64Coder{})
	r.Register(reflect.TypeOf(float64(0)), float64Coder{})
	r.Register(reflect.TypeOf(false), boolCoder{})
	return r
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register binds a coder to an element type, replacing any previous binding.
func (r *Registry) Register(t reflect.Type, c Coder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coders[t] = c
}

// CoderFor resolves the coder for an element type. Types without an explicit
// binding fall back to a JSON coder; kinds JSON cannot represent (func, chan,
// unsafe pointer) fail with an internal error.
func (r *Registry) CoderFor(t reflect.Type) (Coder, error) {
	if t == nil {
		return nil, errors.New(errors.ErrorTypeInternal, "coder lookup requires a type")
	}

	r.mu.RLock()
	c, ok := r.coders[t]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, errors.Newf(errors.ErrorTypeInternal, "could not get coder for type %s", t)
	}

	return jsonCoder{typ: t}, nil
}

type stringCoder struct{}

func (stringCoder) Encode(v interface{}) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInternal, "string coder got %T", v)
	}
	return []byte(s), nil
}

func (stringCoder) Decode(b []byte) (interface{}, error) {
	return string(b), nil
}

type bytesCoder struct{}

func (bytesCoder) Encode(v interface{}) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInternal, "bytes coder got %T", v)
	}
	return b, nil
}

func (bytesCoder) Decode(b []byte) (interface{}, error) {
	return b, nil
}

type int64Coder struct{}

func (int64Coder) Encode(v interface{}) ([]byte, error) {
	n, ok := v.(int64)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInternal, "int64 coder got %T", v)
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b, nil
}

func (int64Coder) Decode(b []byte) (interface{}, error) {
	if len(b) != 8 {
		return nil, errors.Newf(errors.ErrorTypeInternal, "int64 coder got %d bytes", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

type float64Coder struct{}

func (float64Coder) Encode(v interface{}) ([]byte, error) {
	f, ok := v.(float64)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInternal, "float64 coder got %T", v)
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(f))
	return b, nil
}

func (float64Coder) Decode(b []byte) (interface{}, error) {
	if len(b) != 8 {
		return nil, errors.Newf(errors.ErrorTypeInternal, "float64 coder got %d bytes", len(b))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

type boolCoder struct{}

func (boolCoder) Encode(v interface{}) ([]byte, error) {
	t, ok := v.(bool)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInternal, "bool coder got %T", v)
	}
	if t {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (boolCoder) Decode(b []byte) (interface{}, error) {
	if len(b) != 1 {
		return nil, errors.Newf(errors.ErrorTypeInternal, "bool coder got %d bytes", len(b))
	}
	return b[0] == 1, nil
}

// jsonCoder handles structured element types without an explicit binding.
type jsonCoder struct {
	typ reflect.Type
}

func (c jsonCoder) Encode(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "json encode")
	}
	return b, nil
}

func (c jsonCoder) Decode(b []byte) (interface{}, error) {
	out := reflect.New(c.typ)
	if err := json.Unmarshal(b, out.Interface()); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "json decode")
	}
	return out.Elem().Interface(), nil
}
