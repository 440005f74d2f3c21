package jsontoken

import (
	"encoding/base64"
	"io"
	"math"
	"strconv"

	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// Writer 是追加式的 JSON 写入器，自动在同层元素之间插入逗号。
// Writer 不校验调用顺序，结构正确性由调用方保证。
type Writer struct {
	buf       []byte
	first     []bool
	afterName bool
}

// NewWriter 创建一个以 buf 为初始缓冲区的 Writer。
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0]}
}

// EncodeName 返回属性名的预编码形式 `"name":`。
func EncodeName(name string) []byte {
	b := AppendQuoted(make([]byte, 0, len(name)+3), name)
	return append(b, ':')
}

func (w *Writer) separator() {
	if w.afterName {
		w.afterName = false
		return
	}
	if n := len(w.first); n > 0 {
		if w.first[n-1] {
			w.first[n-1] = false
		} else {
			w.buf = append(w.buf, ',')
		}
	}
}

func (w *Writer) open(c byte) {
	w.separator()
	w.buf = append(w.buf, c)
	w.first = append(w.first, true)
}

func (w *Writer) close(c byte) {
	if n := len(w.first); n > 0 {
		w.first = w.first[:n-1]
	}
	w.buf = append(w.buf, c)
}

func (w *Writer) StartObject() { w.open('{') }
func (w *Writer) EndObject()   { w.close('}') }
func (w *Writer) StartArray()  { w.open('[') }
func (w *Writer) EndArray()    { w.close(']') }

// Name 写入 EncodeName 生成的预编码属性名。
func (w *Writer) Name(encoded []byte) {
	w.separator()
	w.buf = append(w.buf, encoded...)
	w.afterName = true
}

// NameString 编码并写入属性名。
func (w *Writer) NameString(name string) {
	w.separator()
	w.buf = AppendQuoted(w.buf, name)
	w.buf = append(w.buf, ':')
	w.afterName = true
}

func (w *Writer) String(s string) {
	w.separator()
	w.buf = AppendQuoted(w.buf, s)
}

// Base64 以标准 base64 编码写入字节串。
func (w *Writer) Base64(b []byte) {
	w.separator()
	w.buf = append(w.buf, '"')
	w.buf = base64.StdEncoding.AppendEncode(w.buf, b)
	w.buf = append(w.buf, '"')
}

func (w *Writer) Int(v int64) {
	w.separator()
	w.buf = strconv.AppendInt(w.buf, v, 10)
}

func (w *Writer) Uint(v uint64) {
	w.separator()
	w.buf = strconv.AppendUint(w.buf, v, 10)
}

// Float 写入浮点数，NaN 与无穷大无法表示为 JSON 数字。
func (w *Writer) Float(f float64, bits int) error {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return merr.WrapErrParameterInvalidMsg("unsupported float value %v", f)
	}
	w.separator()
	w.buf, _ = AppendFloat(w.buf, f, bits)
	return nil
}

func (w *Writer) Bool(v bool) {
	w.separator()
	w.buf = strconv.AppendBool(w.buf, v)
}

func (w *Writer) Null() {
	w.separator()
	w.buf = append(w.buf, literalNull...)
}

// Raw 写入一个已编码的值，例如数字原文。
func (w *Writer) Raw(v []byte) {
	w.separator()
	w.buf = append(w.buf, v...)
}

// Len 返回缓冲区中尚未取走的字节数。
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes 返回缓冲区内容，切片在下一次写入前有效。
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Depth 返回当前打开的容器层数。
func (w *Writer) Depth() int {
	return len(w.first)
}

// Drain 清空缓冲区但保留结构状态，用于分块输出。
func (w *Writer) Drain() {
	w.buf = w.buf[:0]
}

// Flush 将缓冲区写入 out 并清空。
func (w *Writer) Flush(out io.Writer) error {
	if len(w.buf) == 0 {
		return nil
	}
	_, err := out.Write(w.buf)
	w.buf = w.buf[:0]
	if err != nil {
		return merr.WrapErrIoFailed(err, "flush json output")
	}
	return nil
}

// Reset 清空缓冲区与结构状态。
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.first = w.first[:0]
	w.afterName = false
}
