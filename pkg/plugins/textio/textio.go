// Package textio provides the reference bounded plugin over the text format
// engine. Reads produce (byte offset, line) records from a single input
// file; writes commit line-oriented part files into an output directory.
package textio

import (
	"reflect"

	"github.com/andoni-guzman/cdapio/pkg/config"
	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/format"
	"github.com/andoni-guzman/cdapio/pkg/plugin"
)

// Name is the registered plugin name.
const Name = "textio"

// Config is the plugin configuration.
type Config struct {
	// Path is the input file for read stages.
	Path string `config:"path"`
	// OutputDir is the directory write stages commit part files into.
	OutputDir string `config:"outputDir"`
}

// Schema declares the plugin's parameters.
var Schema = config.Schema{
	Name: Name,
	Fields: []config.Field{
		{Name: "path", Kind: config.KindString},
		{Name: "outputDir", Kind: config.KindString},
	},
}

// NewPlugin creates a fresh bounded descriptor for the plugin.
func NewPlugin() *plugin.Plugin {
	return plugin.NewBatch(source{}, textFormat{}, provider{})
}

type source struct{}

func (source) Name() string { return Name }

func (source) PrepareRun(cfg plugin.Config) error {
	c, err := asConfig(cfg)
	if err != nil {
		return err
	}
	if c.Path == "" && c.OutputDir == "" {
		return errors.New(errors.ErrorTypeValidation,
			"either path or outputDir must be configured")
	}
	return nil
}

type textFormat struct{}

func (textFormat) Name() string            { return format.TextFormatName }
func (textFormat) KeyType() reflect.Type   { return format.TextKeyType }
func (textFormat) ValueType() reflect.Type { return format.TextValueType }

type provider struct{}

func (provider) FormatProperties(cfg plugin.Config) (map[string]string, error) {
	c, err := asConfig(cfg)
	if err != nil {
		return nil, err
	}

	props := make(map[string]string)
	if c.Path != "" {
		props[format.TextPathKey] = c.Path
	}
	if c.OutputDir != "" {
		props[format.OutputDirKey] = c.OutputDir
	}
	return props, nil
}

func asConfig(cfg plugin.Config) (*Config, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"textio expects *textio.Config, got %T", cfg)
	}
	return c, nil
}
