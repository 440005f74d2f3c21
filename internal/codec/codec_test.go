package codec

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/stackjson-go/internal/compressor"
	"github.com/lk2023060901/stackjson-go/internal/framer"
	"github.com/lk2023060901/stackjson-go/internal/serializer"
	"github.com/lk2023060901/stackjson-go/pkg/stackjson"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

type chatMessage struct {
	Room   string   `json:"room"`
	Seq    uint64   `json:"seq"`
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

func newCodec(t *testing.T, compress bool) Codec {
	t.Helper()
	s, err := serializer.NewStackJSON()
	require.NoError(t, err)
	z, err := compressor.NewZstdCompressorWithConcurrency(1)
	require.NoError(t, err)
	t.Cleanup(z.Close)

	c, err := New(Options{
		Framer:            framer.NewLengthPrefixedFramer(0),
		Serializer:        s,
		Compressor:        z,
		EnableCompression: compress,
	})
	require.NoError(t, err)
	return c
}

func messages() []*chatMessage {
	return []*chatMessage{
		{Room: "lobby", Seq: 1, Text: "hi"},
		{Room: "lobby", Seq: 2, Text: strings.Repeat("long text ", 100), Labels: []string{"a", "b"}},
		{Room: "vip", Seq: 3, Labels: []string{}},
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		c := newCodec(t, compress)
		var stream bytes.Buffer
		for _, m := range messages() {
			require.NoError(t, c.Encode(&stream, m))
		}

		for _, want := range messages() {
			var got chatMessage
			require.NoError(t, c.Decode(&stream, &got))
			assert.Equal(t, *want, got)
		}
		assert.Equal(t, io.EOF, c.Decode(&stream, &chatMessage{}))
	}
}

func TestCodec_CompressedIsSmaller(t *testing.T) {
	var plain, packed bytes.Buffer
	m := messages()[1]
	require.NoError(t, newCodec(t, false).Encode(&plain, m))
	require.NoError(t, newCodec(t, true).Encode(&packed, m))
	assert.Less(t, packed.Len(), plain.Len())

	raw, err := newCodec(t, true).DecodeRaw(&packed)
	require.NoError(t, err)
	assert.JSONEq(t, string(plain.Bytes()[5:]), string(raw))
}

func TestCodec_Errors(t *testing.T) {
	_, err := New(Options{Serializer: serializer.SonicSerializer{}})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
	_, err = New(Options{Framer: framer.NewLengthPrefixedFramer(0)})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	c := newCodec(t, false)
	assert.ErrorIs(t, c.Encode(nil, &chatMessage{}), merr.ErrParameterInvalid)
	assert.ErrorIs(t, c.Encode(io.Discard, nil), merr.ErrParameterInvalid)
	assert.ErrorIs(t, c.Decode(nil, nil), merr.ErrParameterInvalid)

	var packed bytes.Buffer
	require.NoError(t, newCodec(t, true).Encode(&packed, messages()[0]))
	assert.ErrorIs(t, c.Decode(&packed, &chatMessage{}), merr.ErrParameterInvalid)

	var bad bytes.Buffer
	require.NoError(t, framer.NewLengthPrefixedFramer(0).WriteFrame(&bad, framer.Frame{Payload: []byte(`{"room":1}`)}))
	assert.ErrorIs(t, c.Decode(&bad, &chatMessage{}), merr.ErrTypeMismatch)

	bad.Reset()
	require.NoError(t, framer.NewLengthPrefixedFramer(0).WriteFrame(&bad, framer.Frame{Payload: []byte{}}))
	got := chatMessage{Room: "keep"}
	assert.ErrorIs(t, c.Decode(&bad, &got), merr.ErrIncompleteDocument)
	assert.Equal(t, "keep", got.Room)

	bad.Reset()
	require.NoError(t, framer.NewLengthPrefixedFramer(0).WriteFrame(&bad, framer.Frame{Payload: []byte{}}))
	assert.NoError(t, c.Decode(&bad, nil))
}

func TestCodec_SerializersInterop(t *testing.T) {
	var stream bytes.Buffer
	f := framer.NewLengthPrefixedFramer(0)
	for _, name := range serializer.Names() {
		s, err := serializer.ByName(name)
		require.NoError(t, err)
		c, err := New(Options{Framer: f, Serializer: s})
		require.NoError(t, err)
		require.NoError(t, c.Encode(&stream, messages()[1]))
	}

	reader, err := New(Options{Framer: f, Serializer: serializer.SonicSerializer{}})
	require.NoError(t, err)
	for range serializer.Names() {
		var got chatMessage
		require.NoError(t, reader.Decode(&stream, &got))
		assert.Equal(t, *messages()[1], got)
	}
}

func TestStream_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := stackjson.MustNew(stackjson.WithBufferSize(16), stackjson.WithFlushThreshold(32))
	z, err := compressor.NewZstdCompressor()
	require.NoError(t, err)
	defer z.Close()

	for _, c := range []compressor.Compressor{nil, compressor.NopCompressor{}, z} {
		var stream bytes.Buffer
		enc, err := NewStreamEncoder(&stream, c, s)
		require.NoError(t, err)
		for _, m := range messages() {
			require.NoError(t, enc.Encode(ctx, m))
		}
		require.NoError(t, enc.Close())

		dec, err := NewStreamDecoder(&stream, c, s)
		require.NoError(t, err)
		for _, want := range messages() {
			var got chatMessage
			require.NoError(t, dec.Decode(ctx, &got))
			assert.Equal(t, *want, got)
		}
		assert.Equal(t, io.EOF, dec.Decode(ctx, &chatMessage{}))
		assert.NoError(t, dec.Close())
	}
}

func TestNewWriter_Plain(t *testing.T) {
	var out bytes.Buffer
	w, err := NewWriter(&out, compressor.NopCompressor{})
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"room":"lobby"}`))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, `{"room":"lobby"}`, out.String())

	r, err := NewReader(&out, nil)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, `{"room":"lobby"}`, string(data))
	assert.NoError(t, r.Close())
}
