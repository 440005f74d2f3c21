package compressor

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

var sample = []byte(strings.Repeat(`{"id":1,"tags":["a","b"]}`, 200))

func TestNopCompressor(t *testing.T) {
	c := NopCompressor{}
	out, err := c.Compress(nil, sample)
	require.NoError(t, err)
	assert.Equal(t, sample, out)
	out, err = c.Decompress(nil, out)
	require.NoError(t, err)
	assert.Equal(t, sample, out)

	r, err := c.NewReader(bytes.NewReader(sample))
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, data)
	assert.NoError(t, r.Close())
}

func TestZstdCompressor(t *testing.T) {
	c, err := NewZstdCompressorWithConcurrency(2)
	require.NoError(t, err)
	defer c.Close()

	packed, err := c.Compress(nil, sample)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(sample))

	plain, err := c.Decompress(make([]byte, 0, 16), packed)
	require.NoError(t, err)
	assert.Equal(t, sample, plain)

	_, err = c.Decompress(nil, []byte("not zstd"))
	assert.Error(t, err)

	c.SetMinCompressSize(-5)
	assert.Zero(t, c.MinCompressSize())
	c.SetMinCompressSize(1 << 20)
	out, err := c.Compress(nil, sample)
	require.NoError(t, err)
	assert.Equal(t, sample, out)
}

func TestZstdCompressor_Stream(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	var buf bytes.Buffer
	w, err := c.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(sample)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := c.NewReader(&buf)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, data)
}

func TestZstdCompressor_Closed(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	c.Close()
	c.Close()

	_, err = c.Compress(nil, sample)
	assert.ErrorIs(t, err, zstd.ErrEncoderClosed)
	_, err = c.Decompress(nil, sample)
	assert.ErrorIs(t, err, zstd.ErrDecoderClosed)
}

func TestByName(t *testing.T) {
	c, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, NameNop, c.Name())

	c, err = ByName(NameZstd)
	require.NoError(t, err)
	assert.Equal(t, NameZstd, c.Name())
	c.(*ZstdCompressor).Close()

	_, err = ByName("lz4")
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}
