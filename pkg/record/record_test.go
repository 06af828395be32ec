package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andoni-guzman/cdapio/pkg/errors"
)

func TestFromSliceAndCollect(t *testing.T) {
	in := []KV{
		{Key: int64(0), Value: "a"},
		{Key: int64(2), Value: "b"},
	}

	out, err := Collect(FromSlice(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFromSliceEmpty(t *testing.T) {
	out, err := Collect(FromSlice(nil))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCollectReturnsStreamError(t *testing.T) {
	records := make(chan KV, 1)
	errs := make(chan error, 1)
	records <- KV{Key: int64(0), Value: "partial"}
	errs <- errors.New(errors.ErrorTypeIO, "stream broke")
	close(records)
	close(errs)

	out, err := Collect(&Stream{Records: records, Errors: errs})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
	assert.Len(t, out, 1)
}
