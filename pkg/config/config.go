// Package config resolves flat string parameter maps into typed plugin
// configuration structs.
//
// Plugins declare a Schema: for each field a name, an expected kind, whether
// the parameter is required, and optionally an enum of accepted values.
// Resolution coerces each parameter explicitly by kind and then populates the
// target struct by field name (mapstructure, tag "config"). Failures are
// config_mapping errors naming the offending field, raised before any stage
// is built.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/andoni-guzman/cdapio/pkg/errors"
)

// Params is a flat mapping from parameter name to its raw string value.
type Params map[string]string

// Kind is the declared type of a configuration field.
type Kind string

const (
	KindString   Kind = "string"
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindBool     Kind = "bool"
	KindDuration Kind = "duration"
	KindEnum     Kind = "enum"
)

// Field describes a single configuration field.
type Field struct {
	// Name is the parameter name, matched against struct fields via the
	// "config" tag.
	Name string
	// Kind selects the coercion applied to the raw parameter value.
	Kind Kind
	// Required fields with no corresponding parameter fail resolution.
	Required bool
	// Enum lists accepted values for KindEnum fields.
	Enum []string
}

// Schema is the declared shape of a plugin configuration.
type Schema struct {
	Name   string
	Fields []Field
}

// Resolve coerces params against the schema and populates target, which must
// be a pointer to a struct tagged with `config:"<name>"` tags. Parameters not
// declared in the schema are ignored.
func (s Schema) Resolve(params Params, target interface{}) error {
	coerced := make(map[string]interface{}, len(s.Fields))

	for _, f := range s.Fields {
		raw, ok := params[f.Name]
		if !ok {
			if f.Required {
				return errors.NewConfigMapping(f.Name, "required parameter missing")
			}
			continue
		}

		v, err := coerce(f, raw)
		if err != nil {
			return err
		}
		coerced[f.Name] = v
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "config",
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "building config decoder")
	}
	if err := dec.Decode(coerced); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfigMapping, "populating configuration")
	}
	return nil
}

// Resolve builds a configuration value of type T from params using the
// schema.
func Resolve[T any](s Schema, params Params) (*T, error) {
	target := new(T)
	if err := s.Resolve(params, target); err != nil {
		return nil, err
	}
	return target, nil
}

func coerce(f Field, raw string) (interface{}, error) {
	switch f.Kind {
	case KindString:
		return raw, nil
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.NewConfigMapping(f.Name, "cannot parse "+strconv.Quote(raw)+" as int")
		}
		return n, nil
	case KindFloat:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.NewConfigMapping(f.Name, "cannot parse "+strconv.Quote(raw)+" as float")
		}
		return x, nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.NewConfigMapping(f.Name, "cannot parse "+strconv.Quote(raw)+" as bool")
		}
		return b, nil
	case KindDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.NewConfigMapping(f.Name, "cannot parse "+strconv.Quote(raw)+" as duration")
		}
		return d, nil
	case KindEnum:
		for _, allowed := range f.Enum {
			if raw == allowed {
				return raw, nil
			}
		}
		return nil, errors.NewConfigMapping(f.Name,
			"value "+strconv.Quote(raw)+" not one of ["+strings.Join(f.Enum, ", ")+"]")
	default:
		return nil, errors.NewConfigMapping(f.Name, "unknown field kind "+string(f.Kind))
	}
}
