package framer

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/stackjson-go/internal/pool/bytebuffer"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

func TestLengthPrefixedFramer_RoundTrip(t *testing.T) {
	f := NewLengthPrefixedFramer(0)
	var stream bytes.Buffer
	frames := []Frame{
		{Payload: []byte(`{"id":1}`)},
		{Flags: FlagCompressed, Payload: []byte{0x28, 0xb5, 0x2f, 0xfd}},
		{},
	}
	for _, fr := range frames {
		require.NoError(t, f.WriteFrame(&stream, fr))
	}
	assert.Equal(t, 3*headerSize+8+4, stream.Len())

	buf := bytebuffer.Get()
	defer bytebuffer.Put(buf)
	for _, want := range frames {
		got, err := f.ReadFrame(&stream, buf)
		require.NoError(t, err)
		assert.Equal(t, want.Flags, got.Flags)
		assert.Equal(t, len(want.Payload), len(got.Payload))
		assert.Equal(t, string(want.Payload), string(got.Payload))
	}
	_, err := f.ReadFrame(&stream, buf)
	assert.Equal(t, io.EOF, err)
}

func TestLengthPrefixedFramer_Errors(t *testing.T) {
	f := NewLengthPrefixedFramer(4)
	buf := &bytebuffer.Buffer{}

	err := f.WriteFrame(io.Discard, Frame{Payload: []byte("12345")})
	assert.ErrorIs(t, err, merr.ErrBufferLimitExceeded)

	_, err = f.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 9, 0}), buf)
	assert.ErrorIs(t, err, merr.ErrBufferLimitExceeded)

	_, err = f.ReadFrame(bytes.NewReader([]byte{0, 0}), buf)
	assert.ErrorIs(t, err, merr.ErrIoFailed)

	_, err = f.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 3, 0, 'a'}), buf)
	assert.ErrorIs(t, err, merr.ErrIoFailed)

	var nilFramer *LengthPrefixedFramer
	assert.Equal(t, defaultMaxFrameSize, nilFramer.effectiveMaxSize())
}
