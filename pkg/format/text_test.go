package format

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andoni-guzman/cdapio/pkg/errors"
	"github.com/andoni-guzman/cdapio/pkg/lock"
	"github.com/andoni-guzman/cdapio/pkg/record"
)

func textConf() *Configuration {
	conf := NewConfiguration()
	conf.Set(FormatClassKey, TextFormatName)
	conf.Set(KeyClassKey, TypeName(TextKeyType))
	conf.Set(ValueClassKey, TypeName(TextValueType))
	return conf
}

func TestTextEngineReadRequiresPath(t *testing.T) {
	_, err := NewTextEngine().Read(textConf())
	require.Error(t, err)
	assert.Contains(t, err.Error(), TextPathKey)
}

func TestTextEngineRejectsForeignFormat(t *testing.T) {
	conf := textConf()
	conf.Set(FormatClassKey, "avro")

	_, err := NewTextEngine().Read(conf)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestTextEngineRejectsClassMismatch(t *testing.T) {
	conf := textConf()
	conf.Set(KeyClassKey, "string")
	conf.Set(TextPathKey, "unused.txt")

	_, err := NewTextEngine().Read(conf)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfigurationMismatch))
}

func TestTextSourceReadsOffsetsAndLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\nbeta\ngamma\n"), 0o644))

	conf := textConf()
	conf.Set(TextPathKey, path)

	src, err := NewTextEngine().Read(conf)
	require.NoError(t, err)

	stream, err := src.Open(context.Background())
	require.NoError(t, err)

	records, err := record.Collect(stream)
	require.NoError(t, err)

	want := []record.KV{
		{Key: int64(0), Value: "alpha"},
		{Key: int64(6), Value: "beta"},
		{Key: int64(11), Value: "gamma"},
	}
	assert.Equal(t, want, records)
}

func TestTextSourceOpenFailsForMissingFile(t *testing.T) {
	conf := textConf()
	conf.Set(TextPathKey, filepath.Join(t.TempDir(), "absent.txt"))

	src, err := NewTextEngine().Read(conf)
	require.NoError(t, err)

	_, err = src.Open(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestTextEngineWriteRequiresOutputDirAndGate(t *testing.T) {
	engine := NewTextEngine()

	_, err := engine.Write(textConf(), lock.NewMemoryGate())
	require.Error(t, err)
	assert.Contains(t, err.Error(), OutputDirKey)

	conf := textConf()
	conf.Set(OutputDirKey, t.TempDir())
	_, err = engine.Write(conf, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synchronization gate")
}

func TestTextSinkCommitsPartFileUnderGate(t *testing.T) {
	dir := t.TempDir()
	conf := textConf()
	conf.Set(OutputDirKey, dir)
	conf.Set(PartitioningKey, "true")

	gate := lock.NewMemoryGate()
	sink, err := NewTextEngine().Write(conf, gate)
	require.NoError(t, err)

	in := record.FromSlice([]record.KV{
		{Key: int64(0), Value: "first"},
		{Key: int64(6), Value: "second"},
	})
	require.NoError(t, sink.Write(context.Background(), in))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "part-"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".txt"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))

	assert.Equal(t, int64(1), gate.Acquires())
	assert.Equal(t, int32(1), gate.MaxHolders())
}

func TestTextSinkRejectsNonStringValues(t *testing.T) {
	dir := t.TempDir()
	conf := textConf()
	conf.Set(OutputDirKey, dir)

	sink, err := NewTextEngine().Write(conf, lock.NewMemoryGate())
	require.NoError(t, err)

	in := record.FromSlice([]record.KV{{Key: int64(0), Value: 42}})
	err = sink.Write(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	// No temporary or committed files left behind.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
