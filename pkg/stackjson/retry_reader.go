package stackjson

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"

	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
	"github.com/lk2023060901/stackjson-go/pkg/util/retry"
)

// RetryReader 在数据源返回超时等临时错误时按指数退避重试读取，
// 其它错误与 io.EOF 原样返回。
type RetryReader struct {
	ctx     context.Context
	src     io.Reader
	opts    []retry.Option
	retries atomic.Int64
}

func NewRetryReader(ctx context.Context, r io.Reader, opts ...retry.Option) *RetryReader {
	return &RetryReader{
		ctx:  ctx,
		src:  r,
		opts: opts,
	}
}

func (r *RetryReader) Read(p []byte) (int, error) {
	var (
		n       int
		readErr error
	)
	err := retry.Handle(r.ctx, func() (bool, error) {
		n, readErr = r.src.Read(p)
		if n > 0 || readErr == nil || errors.Is(readErr, io.EOF) {
			return false, nil
		}
		if !isTransient(readErr) {
			return false, readErr
		}
		r.retries.Inc()
		return true, readErr
	}, r.opts...)
	if err != nil {
		return 0, err
	}
	if n > 0 && readErr != nil && !errors.Is(readErr, io.EOF) {
		// 已读到的数据先交给调用方，错误留给下一次 Read
		return n, nil
	}
	return n, readErr
}

// Retries 返回因临时错误而重试的次数。
func (r *RetryReader) Retries() int64 {
	return r.retries.Load()
}

func isTransient(err error) bool {
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}
	return merr.IsRetryableErr(err)
}
