package stackjson

import (
	"context"
	"io"
	"reflect"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/stackjson-go/pkg/jsontoken"
	"github.com/lk2023060901/stackjson-go/pkg/log"
	"github.com/lk2023060901/stackjson-go/pkg/metrics"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// Decoder 从 io.Reader 中依次读取 JSON 文档。
//
// 缓冲区在多次 Decode 之间保留，因此首尾相接或以换行分隔的多个文档可以逐个解码。
// 未消费数据超过缓冲区一半时缓冲区加倍（不超过最大值），否则将未消费数据平移到头部。
// 解码失败时通过绑定的 Logger 记录，未绑定时使用全局 Logger。
type Decoder struct {
	s     *Serializer
	src   io.Reader
	buf   []byte
	start int
	end   int
	eof   bool
	state jsontoken.State

	bytesRead atomic.Int64

	log.Binder
}

// NewDecoder 创建一个从 r 读取的 Decoder。
func (s *Serializer) NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		s:     s,
		src:   r,
		state: jsontoken.NewState(s.cfg.maxDepth),
	}
}

// BytesRead 返回已经从数据源读取的字节数。
func (d *Decoder) BytesRead() int64 {
	return d.bytesRead.Load()
}

// Buffered 返回已读取但尚未消费的数据，切片在下一次 Decode 前有效。
func (d *Decoder) Buffered() []byte {
	return d.buf[d.start:d.end]
}

// Decode 读取下一个文档到 dst 指向的值。数据源在文档开始前结束时返回 io.EOF。
func (d *Decoder) Decode(ctx context.Context, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return merr.WrapErrParameterInvalidMsg("decode target must be a non-nil pointer, got %T", dst)
	}
	err := d.decodeValue(ctx, rv.Elem())
	if err != nil && !errors.Is(err, io.EOF) {
		d.Logger().Warn("decode json stream failed", zap.Int64("offset", d.state.Offset()), zap.Error(err))
	}
	return err
}

func (d *Decoder) decodeValue(ctx context.Context, root reflect.Value) (err error) {
	start := d.state.Offset()
	defer func() {
		if !errors.Is(err, io.EOF) {
			observe(metrics.DecodeLabel, int(d.state.Offset()-start), err)
		}
	}()

	info, ptr, err := d.s.resolve(root.Type())
	if err != nil {
		return err
	}
	if d.buf == nil {
		d.buf = make([]byte, d.s.cfg.bufferSize)
	}

	eng := newReadEngine(&d.s.cfg, info, ptr, root)
	state := d.state.Next()
	for {
		pending := d.buf[d.start:d.end]
		if !state.Started() && d.eof && jsontoken.IsWhitespace(pending) {
			d.start = d.end
			return io.EOF
		}
		if len(pending) > 0 || d.eof {
			r := jsontoken.NewReader(pending, d.eof, state)
			done, err := eng.feed(r)
			d.start += r.Consumed()
			state = r.State()
			d.state = state
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			if d.eof {
				return merr.WrapErrIncompleteDocument(state.Depth())
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.fill(); err != nil {
			return err
		}
	}
}

// fill 为未消费数据腾出空间并从数据源读取一次。
func (d *Decoder) fill() error {
	if d.end == len(d.buf) {
		if err := d.makeRoom(); err != nil {
			return err
		}
	}
	n, err := d.src.Read(d.buf[d.end:])
	d.end += n
	d.bytesRead.Add(int64(n))
	metrics.BytesRead.Add(float64(n))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		d.eof = true
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return merr.WrapErrIoFailed(err, "read json stream")
	}
}

func (d *Decoder) makeRoom() error {
	remaining := d.end - d.start
	maxSize := d.s.cfg.maxBufferSize
	if remaining > len(d.buf)/2 && len(d.buf) < maxSize {
		size := len(d.buf) * 2
		if size > maxSize {
			size = maxSize
		}
		grown := make([]byte, size)
		copy(grown, d.buf[d.start:d.end])
		d.buf = grown
		d.start, d.end = 0, remaining
		metrics.BufferGrows.Inc()
		log.RatedDebug(1, "json stream buffer grown", zap.Int("size", size), zap.Int("pending", remaining))
		return nil
	}
	if d.start == 0 {
		return merr.WrapErrBufferLimitExceeded(len(d.buf), maxSize)
	}
	copy(d.buf, d.buf[d.start:d.end])
	d.start, d.end = 0, remaining
	metrics.BufferShifts.Inc()
	return nil
}

// finish 确认文档之后的数据源只剩空白。
func (d *Decoder) finish(ctx context.Context) error {
	offset := d.state.Offset()
	for {
		pending := d.buf[d.start:d.end]
		if !jsontoken.IsWhitespace(pending) {
			return merr.WrapErrMalformedInput(trailingOffset(offset, pending), "unexpected data after top-level value")
		}
		offset += int64(len(pending))
		d.start = d.end
		if d.eof {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.fill(); err != nil {
			return err
		}
	}
}

// ChanReader 将一个数据块 channel 适配为 io.Reader，channel 关闭表示数据结束。
// 等待数据块时响应 ctx 的取消。
type ChanReader struct {
	ctx     context.Context
	ch      <-chan []byte
	pending []byte
	chunks  atomic.Int64
}

func NewChanReader(ctx context.Context, ch <-chan []byte) *ChanReader {
	return &ChanReader{
		ctx: ctx,
		ch:  ch,
	}
}

func (c *ChanReader) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		select {
		case <-c.ctx.Done():
			return 0, c.ctx.Err()
		case chunk, ok := <-c.ch:
			if !ok {
				return 0, io.EOF
			}
			c.chunks.Inc()
			c.pending = chunk
		}
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Chunks 返回已接收的数据块数量。
func (c *ChanReader) Chunks() int64 {
	return c.chunks.Load()
}

// Decode 从 r 读取恰好一个文档并解析为 T，文档之后只允许空白。
func Decode[T any](ctx context.Context, s *Serializer, r io.Reader) (T, error) {
	var out T
	d := orDefault(s).NewDecoder(r)
	if err := d.decodeValue(ctx, reflect.ValueOf(&out).Elem()); err != nil {
		if errors.Is(err, io.EOF) {
			err = merr.WrapErrIncompleteDocument(0, "empty input")
		}
		return out, err
	}
	return out, d.finish(ctx)
}

// DecodeChan 从数据块 channel 读取恰好一个文档并解析为 T。
func DecodeChan[T any](ctx context.Context, s *Serializer, ch <-chan []byte) (T, error) {
	return Decode[T](ctx, s, NewChanReader(ctx, ch))
}
