package textio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andoni-guzman/cdapio/pkg/cdap"
	"github.com/andoni-guzman/cdapio/pkg/config"
	"github.com/andoni-guzman/cdapio/pkg/format"
	"github.com/andoni-guzman/cdapio/pkg/plugin"
)

func TestPluginIsBounded(t *testing.T) {
	p := NewPlugin()
	assert.Equal(t, plugin.Bounded, p.Classification())
	assert.Equal(t, Name, p.Name())
}

func TestPluginRegistered(t *testing.T) {
	assert.True(t, plugin.Has(Name))

	first, err := plugin.ByName(Name)
	require.NoError(t, err)
	second, err := plugin.ByName(Name)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestSchemaResolve(t *testing.T) {
	cfg, err := config.Resolve[Config](Schema, config.Params{
		"path":      "in.txt",
		"outputDir": "out",
	})
	require.NoError(t, err)
	assert.Equal(t, "in.txt", cfg.Path)
	assert.Equal(t, "out", cfg.OutputDir)
}

func TestPrepareRunRequiresPathOrOutputDir(t *testing.T) {
	p := NewPlugin().WithConfig(&Config{})

	_, err := p.FormatConfiguration(format.TextKeyType, format.TextValueType)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either path or outputDir")
}

func TestFormatConfigurationForRead(t *testing.T) {
	p := NewPlugin().WithConfig(&Config{Path: "in.txt"})

	conf, err := p.FormatConfiguration(cdap.TypeOf[int64](), cdap.TypeOf[string]())
	require.NoError(t, err)

	assert.Equal(t, Name, conf.Get(format.PluginNameKey))
	assert.Equal(t, format.TextFormatName, conf.Get(format.FormatClassKey))
	assert.Equal(t, "in.txt", conf.Get(format.TextPathKey))
	assert.False(t, conf.Has(format.OutputDirKey))
}

func TestFormatConfigurationForWrite(t *testing.T) {
	p := NewPlugin().WithConfig(&Config{OutputDir: "out"})

	conf, err := p.FormatConfiguration(cdap.TypeOf[int64](), cdap.TypeOf[string]())
	require.NoError(t, err)

	assert.Equal(t, "out", conf.Get(format.OutputDirKey))
	assert.False(t, conf.Has(format.TextPathKey))
}

func TestRejectsForeignConfigType(t *testing.T) {
	p := NewPlugin().WithConfig(struct{ Path string }{Path: "in.txt"})

	_, err := p.FormatConfiguration(cdap.TypeOf[int64](), cdap.TypeOf[string]())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects *textio.Config")
}
