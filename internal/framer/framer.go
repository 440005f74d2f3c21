package framer

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/stackjson-go/internal/pool/bytebuffer"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// Flag 描述帧负载的处理方式。
type Flag uint8

const (
	// FlagCompressed 表示负载经过压缩。
	FlagCompressed Flag = 1 << iota
)

// Frame 是一帧数据。
type Frame struct {
	Flags   Flag
	Payload []byte
}

// Framer 抽象了帧的打包/解包能力。
//
// 一帧数据的格式为：4 字节大端无符号整型（负载长度）+ 1 字节 Flag + 负载。
type Framer interface {
	// WriteFrame 将 f 打包为一帧并写入到 w 中。
	WriteFrame(w io.Writer, f Frame) error

	// ReadFrame 从 r 中读取一帧数据，负载写入 buf 并与 buf.B 共享底层内存。
	// 数据源在帧开始前结束时返回 io.EOF。
	ReadFrame(r io.Reader, buf *bytebuffer.Buffer) (Frame, error)
}

const (
	headerSize                 = 5
	defaultMaxFrameSize uint32 = 16 * 1024 * 1024 // 16MB
)

// LengthPrefixedFramer 使用长度前缀（4 字节大端）作为帧边界，适用于基于流的连接与文件。
type LengthPrefixedFramer struct {
	// MaxFrameSize 为允许的最大负载长度，为 0 时使用默认值 16MB。
	MaxFrameSize uint32
}

// 编译期断言：确保 LengthPrefixedFramer 实现了 Framer 接口。
var _ Framer = (*LengthPrefixedFramer)(nil)

// NewLengthPrefixedFramer 创建一个长度前缀帧编码器，maxFrameSize 为 0 时使用默认值。
func NewLengthPrefixedFramer(maxFrameSize uint32) *LengthPrefixedFramer {
	if maxFrameSize == 0 {
		maxFrameSize = defaultMaxFrameSize
	}
	return &LengthPrefixedFramer{
		MaxFrameSize: maxFrameSize,
	}
}

func (f *LengthPrefixedFramer) WriteFrame(w io.Writer, frame Frame) error {
	length := len(frame.Payload)
	if uint64(length) > uint64(f.effectiveMaxSize()) {
		return merr.WrapErrBufferLimitExceeded(length, int(f.effectiveMaxSize()), "frame payload")
	}

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:4], uint32(length))
	header[4] = byte(frame.Flags)

	if _, err := w.Write(header[:]); err != nil {
		return merr.WrapErrIoFailed(err, "write frame header")
	}
	if length == 0 {
		return nil
	}
	if _, err := w.Write(frame.Payload); err != nil {
		return merr.WrapErrIoFailed(err, "write frame body")
	}
	return nil
}

func (f *LengthPrefixedFramer) ReadFrame(r io.Reader, buf *bytebuffer.Buffer) (Frame, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, merr.WrapErrIoFailed(err, "read frame header")
	}

	length := binary.BigEndian.Uint32(header[:4])
	if length > f.effectiveMaxSize() {
		return Frame{}, merr.WrapErrBufferLimitExceeded(int(length), int(f.effectiveMaxSize()), "frame payload")
	}

	payload := buf.Grow(int(length))
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, merr.WrapErrIoFailed(err, "read frame body")
		}
	}
	return Frame{
		Flags:   Flag(header[4]),
		Payload: payload,
	}, nil
}

func (f *LengthPrefixedFramer) effectiveMaxSize() uint32 {
	if f == nil || f.MaxFrameSize == 0 {
		return defaultMaxFrameSize
	}
	return f.MaxFrameSize
}
