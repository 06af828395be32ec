package plugin

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/format"
)

type fakeBatch struct {
	prepareErr error
	prepared   int
}

func (b *fakeBatch) Name() string { return "fake" }

func (b *fakeBatch) PrepareRun(cfg Config) error {
	b.prepared++
	return b.prepareErr
}

type fakeFormat struct {
	keyType   reflect.Type
	valueType reflect.Type
}

func (fakeFormat) Name() string              { return "fakefmt" }
func (f fakeFormat) KeyType() reflect.Type   { return f.keyType }
func (f fakeFormat) ValueType() reflect.Type { return f.valueType }

type fakeProvider struct {
	props map[string]string
	err   error
}

func (p fakeProvider) FormatProperties(cfg Config) (map[string]string, error) {
	return p.props, p.err
}

type fakeStreaming struct{}

func (fakeStreaming) Name() string { return "faucet" }

var (
	int64Type  = reflect.TypeOf(int64(0))
	stringType = reflect.TypeOf("")
)

func newFakeBounded(batch *fakeBatch, provider fakeProvider) *Plugin {
	return NewBatch(batch, fakeFormat{keyType: int64Type, valueType: stringType}, provider)
}

func TestClassificationFixedByConstructor(t *testing.T) {
	bounded := newFakeBounded(&fakeBatch{}, fakeProvider{})
	assert.Equal(t, Bounded, bounded.Classification())
	assert.False(t, bounded.IsUnbounded())
	assert.Equal(t, "fake", bounded.Name())

	unbounded := NewStreaming(fakeStreaming{})
	assert.Equal(t, Unbounded, unbounded.Classification())
	assert.True(t, unbounded.IsUnbounded())
	assert.Equal(t, "faucet", unbounded.Name())
}

func TestWithConfig(t *testing.T) {
	p := newFakeBounded(&fakeBatch{}, fakeProvider{})
	assert.Nil(t, p.Config())

	cfg := struct{ Path string }{Path: "in.txt"}
	p.WithConfig(&cfg)
	assert.Equal(t, &cfg, p.Config())
}

func TestFormatConfigurationDerivesEntries(t *testing.T) {
	batch := &fakeBatch{}
	p := newFakeBounded(batch, fakeProvider{props: map[string]string{
		"custom.entry": "custom-value",
	}})
	p.WithConfig(struct{}{})

	conf, err := p.FormatConfiguration(int64Type, stringType)
	require.NoError(t, err)

	assert.Equal(t, "fake", conf.Get(format.PluginNameKey))
	assert.Equal(t, "fakefmt", conf.Get(format.FormatClassKey))
	assert.Equal(t, "int64", conf.Get(format.KeyClassKey))
	assert.Equal(t, "string", conf.Get(format.ValueClassKey))
	assert.Equal(t, "custom-value", conf.Get("custom.entry"))
	assert.Equal(t, 1, batch.prepared)
}

func TestFormatConfigurationFreshPerCall(t *testing.T) {
	p := newFakeBounded(&fakeBatch{}, fakeProvider{})
	p.WithConfig(struct{}{})

	first, err := p.FormatConfiguration(int64Type, stringType)
	require.NoError(t, err)
	first.Set("scratch", "dirty")

	second, err := p.FormatConfiguration(int64Type, stringType)
	require.NoError(t, err)
	assert.False(t, second.Has("scratch"))
}

func TestFormatConfigurationKeyMismatch(t *testing.T) {
	p := newFakeBounded(&fakeBatch{}, fakeProvider{})
	p.WithConfig(struct{}{})

	_, err := p.FormatConfiguration(stringType, stringType)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfigurationMismatch))
	assert.Contains(t, err.Error(), "declared key class string")
}

func TestFormatConfigurationValueMismatch(t *testing.T) {
	p := newFakeBounded(&fakeBatch{}, fakeProvider{})
	p.WithConfig(struct{}{})

	_, err := p.FormatConfiguration(int64Type, int64Type)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfigurationMismatch))
}

func TestFormatConfigurationRequiresConfig(t *testing.T) {
	p := newFakeBounded(&fakeBatch{}, fakeProvider{})

	_, err := p.FormatConfiguration(int64Type, stringType)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingConfiguration))

	field, ok := errors.Field(err)
	require.True(t, ok)
	assert.Equal(t, "plugin config", field)
}

func TestFormatConfigurationUndefinedForUnbounded(t *testing.T) {
	p := NewStreaming(fakeStreaming{})
	p.WithConfig(struct{}{})

	_, err := p.FormatConfiguration(int64Type, stringType)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestFormatConfigurationProviderFailure(t *testing.T) {
	provErr := errors.New(errors.ErrorTypeConfig, "no properties")
	p := newFakeBounded(&fakeBatch{}, fakeProvider{err: provErr})
	p.WithConfig(struct{}{})

	_, err := p.FormatConfiguration(int64Type, stringType)
	require.Error(t, err)
	assert.ErrorIs(t, err, provErr)
}

func TestFormatConfigurationPrepareRunFailure(t *testing.T) {
	prepErr := errors.New(errors.ErrorTypeValidation, "path missing")
	p := newFakeBounded(&fakeBatch{prepareErr: prepErr}, fakeProvider{})
	p.WithConfig(struct{}{})

	_, err := p.FormatConfiguration(int64Type, stringType)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.ErrorIs(t, err, prepErr)
}
