package compressor

import (
	"io"

	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// Compressor 抽象了“单次压缩/解压”以及流式解压能力。
//
// 不做全局单例，调用方按需创建具体实现的实例。
type Compressor interface {
	// Name 返回算法名称。
	Name() string

	// Compress 将 src 压缩后追加到 dst[:0]，返回压缩后的完整数据。
	Compress(dst, src []byte) ([]byte, error)

	// Decompress 将 Compress 的输出 src 解压后追加到 dst[:0]。
	Decompress(dst, src []byte) ([]byte, error)

	// NewReader 返回一个从 r 中读取压缩流并输出明文的 Reader。
	NewReader(r io.Reader) (io.ReadCloser, error)
}

const (
	NameNop  = "none"
	NameZstd = "zstd"
)

// ByName 按名称创建压缩器，空名称等同于 NameNop。
func ByName(name string) (Compressor, error) {
	switch name {
	case "", NameNop:
		return NopCompressor{}, nil
	case NameZstd:
		return NewZstdCompressor()
	default:
		return nil, merr.WrapErrParameterInvalidMsg("unknown compressor %q", name)
	}
}

// NopCompressor 是一个空实现：不做任何压缩/解压，直接返回输入内容。
type NopCompressor struct{}

// 编译期断言：确保 NopCompressor 实现了 Compressor 接口。
var _ Compressor = NopCompressor{}

func (NopCompressor) Name() string { return NameNop }

func (NopCompressor) Compress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Decompress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}
