package stackjson

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
	"github.com/lk2023060901/stackjson-go/pkg/util/retry"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

// flakyReader 每读出一段数据后先返回 failures 次错误。
type flakyReader struct {
	src      io.Reader
	err      error
	failures int
	left     int
}

func (f *flakyReader) Read(p []byte) (int, error) {
	if f.left > 0 {
		f.left--
		return 0, f.err
	}
	f.left = f.failures
	if len(p) > 3 {
		p = p[:3]
	}
	return f.src.Read(p)
}

func TestRetryReader_Transient(t *testing.T) {
	ctx := context.Background()
	src := &flakyReader{src: strings.NewReader(streamDoc), err: timeoutErr{}, failures: 2}
	r := NewRetryReader(ctx, src, retry.Attempts(5), retry.Sleep(time.Millisecond), retry.MaxSleepTime(2*time.Millisecond))

	got, err := Decode[item](ctx, MustNew(WithBufferSize(8)), r)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Child.Child.ID)
	assert.Positive(t, r.Retries())
}

func TestRetryReader_Permanent(t *testing.T) {
	ctx := context.Background()
	errBroken := errors.New("broken pipe")
	src := &flakyReader{src: strings.NewReader(streamDoc), err: errBroken, failures: 1}
	r := NewRetryReader(ctx, src, retry.Attempts(5), retry.Sleep(time.Millisecond))

	_, err := Decode[item](ctx, MustNew(), r)
	assert.ErrorIs(t, err, merr.ErrIoFailed)
	assert.ErrorContains(t, err, errBroken.Error())
	assert.Zero(t, r.Retries())
}

func TestRetryReader_GiveUp(t *testing.T) {
	ctx := context.Background()
	src := &flakyReader{src: strings.NewReader(streamDoc), err: timeoutErr{}, failures: 100}
	r := NewRetryReader(ctx, src, retry.Attempts(3), retry.Sleep(time.Millisecond), retry.MaxSleepTime(time.Millisecond))

	_, err := Decode[item](ctx, MustNew(), r)
	assert.ErrorIs(t, err, merr.ErrIoFailed)
	assert.EqualValues(t, 3, r.Retries())
}
