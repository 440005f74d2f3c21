package codec

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/stackjson-go/internal/compressor"
	"github.com/lk2023060901/stackjson-go/pkg/stackjson"
)

// StreamDecoder 从（可能经过压缩的）字节流中依次解码 JSON 文档。
//
// 解压后的明文直接交给 stackjson.Decoder 的缓冲区，不需要先解压出完整数据。
type StreamDecoder struct {
	src io.ReadCloser
	dec *stackjson.Decoder
}

// NewStreamDecoder 创建流式解码器，c 为 nil 时按明文读取。
func NewStreamDecoder(r io.Reader, c compressor.Compressor, s *stackjson.Serializer) (*StreamDecoder, error) {
	if s == nil {
		s = stackjson.Default()
	}
	src, err := NewReader(r, c)
	if err != nil {
		return nil, err
	}
	return &StreamDecoder{
		src: src,
		dec: s.NewDecoder(src),
	}, nil
}

// Decode 读取下一个文档，流结束时返回 io.EOF。
func (d *StreamDecoder) Decode(ctx context.Context, dst any) error {
	return d.dec.Decode(ctx, dst)
}

func (d *StreamDecoder) Close() error {
	return d.src.Close()
}

type streamCompressor interface {
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewReader 返回读取 r 解压后明文的 ReadCloser，c 为 nil 时按明文读取。
func NewReader(r io.Reader, c compressor.Compressor) (io.ReadCloser, error) {
	if c == nil {
		c = compressor.NopCompressor{}
	}
	return c.NewReader(r)
}

// NewWriter 返回将明文压缩后写入 w 的 WriteCloser。
// c 不支持流式压缩或为 nil 时按明文写出，Close 不关闭 w。
func NewWriter(w io.Writer, c compressor.Compressor) (io.WriteCloser, error) {
	sc, ok := c.(streamCompressor)
	if !ok {
		return nopWriteCloser{w}, nil
	}
	return sc.NewWriter(w)
}

// StreamEncoder 将文档依次编码并写入（可能经过压缩的）字节流。
type StreamEncoder struct {
	dst io.WriteCloser
	enc *stackjson.Encoder
}

// NewStreamEncoder 创建流式编码器。c 不支持流式压缩或为 nil 时按明文写出。
func NewStreamEncoder(w io.Writer, c compressor.Compressor, s *stackjson.Serializer) (*StreamEncoder, error) {
	if s == nil {
		s = stackjson.Default()
	}
	dst, err := NewWriter(w, c)
	if err != nil {
		return nil, err
	}
	return &StreamEncoder{
		dst: dst,
		enc: s.NewEncoder(dst),
	}, nil
}

func (e *StreamEncoder) Encode(ctx context.Context, v any) error {
	return e.enc.Encode(ctx, v)
}

// Close 写出压缩流的结尾，不关闭底层 Writer。
func (e *StreamEncoder) Close() error {
	return errors.Wrap(e.dst.Close(), "close stream encoder")
}
