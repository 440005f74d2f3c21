package codec

import (
	"io"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/stackjson-go/internal/compressor"
	"github.com/lk2023060901/stackjson-go/internal/framer"
	"github.com/lk2023060901/stackjson-go/internal/pool/bytebuffer"
	"github.com/lk2023060901/stackjson-go/internal/serializer"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// Codec 抽象了“从业务对象到帧，以及从帧回到业务对象”的完整编解码流程。
//
// Pipeline（写出 Encode）：
//
//	msg --> serializer --> [compress?] --> framer.WriteFrame
//
// Pipeline（读入 Decode）：
//
//	framer.ReadFrame --> [decompress?] --> serializer --> msg
type Codec interface {
	// Encode 将业务对象编码并写入到底层流。
	Encode(w io.Writer, msg any) error

	// Decode 从底层流中读取一帧并解码到 msg 中，msg 为 nil 时只消费该帧。
	// 数据源在帧开始前结束时返回 io.EOF。
	Decode(r io.Reader, msg any) error

	// DecodeRaw 从底层流中读取一帧，返回已完成解压的业务字节。
	DecodeRaw(r io.Reader) ([]byte, error)
}

// Options 用于构造 Codec 的依赖注入参数。
type Options struct {
	Framer     framer.Framer
	Serializer serializer.Serializer
	Compressor compressor.Compressor // 允许为 nil（内部会用 NopCompressor）

	EnableCompression bool // 是否启用压缩（影响压缩行为与 Flag）
}

type codec struct {
	framer     framer.Framer
	serializer serializer.Serializer
	compressor compressor.Compressor

	compress bool
}

var _ Codec = (*codec)(nil)

// New 创建一个基于给定依赖的 Codec。
func New(opts Options) (Codec, error) {
	if opts.Framer == nil {
		return nil, merr.WrapErrParameterInvalidMsg("codec: framer is nil")
	}
	if opts.Serializer == nil {
		return nil, merr.WrapErrParameterInvalidMsg("codec: serializer is nil")
	}

	c := &codec{
		framer:     opts.Framer,
		serializer: opts.Serializer,
		compressor: opts.Compressor,
		compress:   opts.EnableCompression,
	}
	if c.compressor == nil {
		c.compressor = compressor.NopCompressor{}
	}
	return c, nil
}

func (c *codec) Encode(w io.Writer, msg any) error {
	if w == nil {
		return merr.WrapErrParameterInvalidMsg("codec: writer is nil")
	}
	if msg == nil {
		return merr.WrapErrParameterInvalidMsg("codec: msg is nil")
	}

	body, err := c.serializer.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "codec: marshal failed")
	}

	frame := framer.Frame{Payload: body}
	if c.compress && len(body) > 0 {
		buf := bytebuffer.Get()
		defer bytebuffer.Put(buf)

		packed, err := c.compressor.Compress(buf.B, body)
		if err != nil {
			return errors.Wrap(err, "codec: compress failed")
		}
		buf.B = packed
		frame = framer.Frame{Flags: framer.FlagCompressed, Payload: packed}
	}

	if err := c.framer.WriteFrame(w, frame); err != nil {
		return errors.Wrap(err, "codec: write frame failed")
	}
	return nil
}

// decodeFrame 读取一帧并交给 fn 处理明文，明文只在 fn 内有效。
func (c *codec) decodeFrame(r io.Reader, fn func(plain []byte) error) error {
	if r == nil {
		return merr.WrapErrParameterInvalidMsg("codec: reader is nil")
	}

	raw := bytebuffer.Get()
	defer bytebuffer.Put(raw)

	frame, err := c.framer.ReadFrame(r, raw)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return errors.Wrap(err, "codec: read frame failed")
	}

	data := frame.Payload
	if frame.Flags&framer.FlagCompressed != 0 {
		if !c.compress {
			return merr.WrapErrParameterInvalidMsg("codec: compressed payload but compression disabled")
		}
		if len(data) == 0 {
			return merr.WrapErrMalformedInput(0, "compressed payload is empty")
		}

		plain := bytebuffer.Get()
		defer bytebuffer.Put(plain)

		out, err := c.compressor.Decompress(plain.B, data)
		if err != nil {
			return errors.Wrap(err, "codec: decompress failed")
		}
		plain.B = out
		data = out
	}
	return fn(data)
}

func (c *codec) DecodeRaw(r io.Reader) ([]byte, error) {
	var out []byte
	err := c.decodeFrame(r, func(plain []byte) error {
		out = slices.Clone(plain)
		return nil
	})
	return out, err
}

func (c *codec) Decode(r io.Reader, msg any) error {
	return c.decodeFrame(r, func(plain []byte) error {
		if msg == nil {
			return nil
		}
		if len(plain) == 0 {
			return merr.WrapErrIncompleteDocument(0, "codec: frame payload is empty")
		}
		if err := c.serializer.Unmarshal(plain, msg); err != nil {
			return errors.Wrap(err, "codec: unmarshal failed")
		}
		return nil
	})
}
