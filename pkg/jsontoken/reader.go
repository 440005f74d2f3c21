package jsontoken

import (
	"bytes"
	"unicode/utf8"

	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

type scanStatus uint8

const (
	scanOK scanStatus = iota
	scanMore
	scanIncomplete
	scanBad
)

var (
	literalTrue  = []byte("true")
	literalFalse = []byte("false")
	literalNull  = []byte("null")
)

// Reader 是工作在单个缓冲区上的可恢复分词器。
//
// 每次 Read 要么完整读出一个 token 并推进 Consumed，要么在缓冲区末尾遇到
// 截断的 token 时不推进并返回 false。Value 返回的切片引用缓冲区本身，
// 调用方需要在缓冲区被复用之前拷贝。
type Reader struct {
	buf   []byte
	final bool
	pos   int
	base  int64
	state State

	kind    Kind
	value   []byte
	escaped bool
}

// NewReader 创建一个从 state 恢复的 Reader。
// final 为 true 表示 buf 之后不再有数据，截断的 token 将报告为不完整文档。
func NewReader(buf []byte, final bool, state State) *Reader {
	if state.maxDepth <= 0 {
		state.maxDepth = DefaultMaxDepth
	}
	return &Reader{
		buf:   buf,
		final: final,
		state: state,
		base:  state.offset,
	}
}

// Kind 返回最近一次读出的 token 类型。
func (r *Reader) Kind() Kind {
	return r.kind
}

// Value 返回最近一次 token 的原始字节：字符串与属性名不含引号且未反转义，
// 数字与字面量为原文。
func (r *Reader) Value() []byte {
	return r.value
}

// ValueEscaped 判断字符串 token 是否包含转义序列。
func (r *Reader) ValueEscaped() bool {
	return r.escaped
}

// AppendString 将字符串 token 反转义后追加到 dst。
func (r *Reader) AppendString(dst []byte) []byte {
	if !r.escaped {
		return append(dst, r.value...)
	}
	return Unescape(dst, r.value)
}

// Consumed 返回已经完整消费的字节数。
func (r *Reader) Consumed() int {
	return r.pos
}

// Depth 返回当前嵌套深度。
func (r *Reader) Depth() int {
	return len(r.state.containers)
}

// Done 判断根值是否已完整读出。
func (r *Reader) Done() bool {
	return r.state.expect == expectDone
}

// Offset 返回下一个待读字节在整个流中的偏移。
func (r *Reader) Offset() int64 {
	return r.base + int64(r.pos)
}

// State 返回从 Consumed 处继续读取所需的状态。
func (r *Reader) State() State {
	s := r.state
	s.offset = r.base + int64(r.pos)
	return s
}

// Read 读取下一个 token。
// 返回 true 表示读到 token；返回 false 且 err 为 nil 表示需要更多数据，
// 或根值已经结束（Done 为 true）。
func (r *Reader) Read() (bool, error) {
	r.kind = None
	r.value = nil
	r.escaped = false
	if r.state.expect == expectDone {
		return false, nil
	}

	i := skipWhitespace(r.buf, r.pos)
	if i >= len(r.buf) {
		// 仅有空白时可以安全地推进
		r.pos = i
		return r.starve(i)
	}

	switch r.state.expect {
	case expectCommaOrEnd:
		switch c := r.buf[i]; c {
		case ',':
			i = skipWhitespace(r.buf, i+1)
			if r.state.inObject() {
				return r.readName(i)
			}
			return r.readValue(i)
		case '}', ']':
			return r.readEnd(i, c)
		default:
			return false, r.syntaxError(i, "expected ',' or end of container, found "+quoteChar(c))
		}
	case expectNameOrEnd:
		if r.buf[i] == '}' {
			return r.readEnd(i, '}')
		}
		return r.readName(i)
	case expectName:
		return r.readName(i)
	case expectValueOrEnd:
		if r.buf[i] == ']' {
			return r.readEnd(i, ']')
		}
		return r.readValue(i)
	default:
		return r.readValue(i)
	}
}

func (r *Reader) starve(i int) (bool, error) {
	if r.final {
		return false, merr.WrapErrIncompleteDocument(len(r.state.containers),
			"input ended at offset "+itoa(r.base+int64(i)))
	}
	return false, nil
}

func (r *Reader) status(st scanStatus, i int, reason string) (bool, error) {
	switch st {
	case scanMore:
		return r.starve(i)
	case scanIncomplete:
		return false, merr.WrapErrIncompleteDocument(len(r.state.containers),
			"input ended inside a value at offset "+itoa(r.base+int64(i)))
	default:
		return false, r.syntaxError(i, reason)
	}
}

func (r *Reader) readEnd(i int, c byte) (bool, error) {
	n := len(r.state.containers)
	open := byte('{')
	kind := EndObject
	if c == ']' {
		open = '['
		kind = EndArray
	}
	if n == 0 || r.state.containers[n-1] != open {
		return false, r.syntaxError(i, "unexpected "+quoteChar(c))
	}
	r.state.containers = r.state.containers[:n-1]
	r.kind = kind
	r.pos = i + 1
	r.afterValue()
	return true, nil
}

func (r *Reader) readName(i int) (bool, error) {
	if i >= len(r.buf) {
		return r.starve(i)
	}
	if r.buf[i] != '"' {
		return false, r.syntaxError(i, "expected property name, found "+quoteChar(r.buf[i]))
	}
	end, escaped, st := scanString(r.buf, i+1, r.final)
	if st != scanOK {
		return r.status(st, i, "invalid property name")
	}
	j := skipWhitespace(r.buf, end+1)
	if j >= len(r.buf) {
		return r.starve(j)
	}
	if r.buf[j] != ':' {
		return false, r.syntaxError(j, "expected ':' after property name, found "+quoteChar(r.buf[j]))
	}
	r.kind = PropertyName
	r.value = r.buf[i+1 : end]
	r.escaped = escaped
	r.pos = j + 1
	r.state.expect = expectValue
	return true, nil
}

func (r *Reader) readValue(i int) (bool, error) {
	if i >= len(r.buf) {
		return r.starve(i)
	}
	switch c := r.buf[i]; c {
	case '{', '[':
		if len(r.state.containers) >= r.state.limit() {
			return false, merr.WrapErrMaxDepthExceeded(len(r.state.containers)+1, r.state.limit())
		}
		r.state.containers = append(r.state.containers, c)
		r.pos = i + 1
		if c == '{' {
			r.kind = StartObject
			r.state.expect = expectNameOrEnd
		} else {
			r.kind = StartArray
			r.state.expect = expectValueOrEnd
		}
		return true, nil
	case '"':
		end, escaped, st := scanString(r.buf, i+1, r.final)
		if st != scanOK {
			return r.status(st, i, "invalid string")
		}
		r.kind = String
		r.value = r.buf[i+1 : end]
		r.escaped = escaped
		r.pos = end + 1
	case 't':
		if ok, err := r.readLiteral(i, literalTrue, True); !ok {
			return false, err
		}
	case 'f':
		if ok, err := r.readLiteral(i, literalFalse, False); !ok {
			return false, err
		}
	case 'n':
		if ok, err := r.readLiteral(i, literalNull, Null); !ok {
			return false, err
		}
	default:
		if c != '-' && !isDigit(c) {
			return false, r.syntaxError(i, "unexpected character "+quoteChar(c))
		}
		end, st := scanNumber(r.buf, i, r.final)
		if st != scanOK {
			return r.status(st, i, "invalid number")
		}
		r.kind = Number
		r.value = r.buf[i:end]
		r.pos = end
	}
	r.afterValue()
	return true, nil
}

func (r *Reader) readLiteral(i int, want []byte, kind Kind) (bool, error) {
	have := r.buf[i:]
	if len(have) < len(want) {
		if !bytes.HasPrefix(want, have) {
			return false, r.syntaxError(i, "invalid literal")
		}
		return r.starve(i)
	}
	end := i + len(want)
	if !bytes.Equal(have[:len(want)], want) || (end < len(r.buf) && !isDelimiter(r.buf[end])) {
		return false, r.syntaxError(i, "invalid literal")
	}
	r.kind = kind
	r.value = r.buf[i:end]
	r.pos = end
	return true, nil
}

func (r *Reader) afterValue() {
	if len(r.state.containers) == 0 {
		r.state.expect = expectDone
		return
	}
	r.state.expect = expectCommaOrEnd
}

func (r *Reader) syntaxError(i int, reason string) error {
	return merr.WrapErrMalformedInput(r.base+int64(i), reason)
}

// scanString 从开引号之后的 i 开始扫描，返回闭引号的位置。
func scanString(b []byte, i int, final bool) (int, bool, scanStatus) {
	more := scanMore
	if final {
		more = scanIncomplete
	}
	escaped := false
	nonASCII := false
	for j := i; j < len(b); {
		c := b[j]
		switch {
		case c == '"':
			if nonASCII && !utf8.Valid(b[i:j]) {
				return j, escaped, scanBad
			}
			return j, escaped, scanOK
		case c == '\\':
			escaped = true
			if j+1 >= len(b) {
				return j, escaped, more
			}
			switch b[j+1] {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				j += 2
			case 'u':
				if j+6 > len(b) {
					return j, escaped, more
				}
				for k := j + 2; k < j+6; k++ {
					if !isHex(b[k]) {
						return j, escaped, scanBad
					}
				}
				j += 6
			default:
				return j, escaped, scanBad
			}
		case c < 0x20:
			return j, escaped, scanBad
		default:
			if c >= utf8.RuneSelf {
				nonASCII = true
			}
			j++
		}
	}
	return len(b), escaped, more
}

// scanNumber 按 JSON 数字语法扫描，非 final 时位于缓冲区末尾的数字视为可能未完结。
func scanNumber(b []byte, i int, final bool) (int, scanStatus) {
	n := len(b)
	more := scanMore
	ended := scanMore
	if final {
		more = scanIncomplete
		ended = scanOK
	}

	j := i
	if b[j] == '-' {
		j++
		if j == n {
			return j, more
		}
	}
	switch {
	case b[j] == '0':
		j++
	case b[j] >= '1' && b[j] <= '9':
		j++
		for j < n && isDigit(b[j]) {
			j++
		}
	default:
		return j, scanBad
	}
	if j == n {
		return j, ended
	}

	if b[j] == '.' {
		j++
		if j == n {
			return j, more
		}
		if !isDigit(b[j]) {
			return j, scanBad
		}
		for j < n && isDigit(b[j]) {
			j++
		}
		if j == n {
			return j, ended
		}
	}

	if b[j] == 'e' || b[j] == 'E' {
		j++
		if j == n {
			return j, more
		}
		if b[j] == '+' || b[j] == '-' {
			j++
			if j == n {
				return j, more
			}
		}
		if !isDigit(b[j]) {
			return j, scanBad
		}
		for j < n && isDigit(b[j]) {
			j++
		}
		if j == n {
			return j, ended
		}
	}

	if !isDelimiter(b[j]) {
		return j, scanBad
	}
	return j, scanOK
}

func skipWhitespace(b []byte, i int) int {
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// IsWhitespace 判断 b 是否全部由 JSON 空白字符组成。
func IsWhitespace(b []byte) bool {
	return skipWhitespace(b, 0) == len(b)
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', ',', ']', '}':
		return true
	default:
		return false
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func quoteChar(c byte) string {
	if c < 0x20 || c >= utf8.RuneSelf {
		return "byte 0x" + string(hexDigits[c>>4]) + string(hexDigits[c&0xf])
	}
	return "'" + string(c) + "'"
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	neg := v < 0
	if neg {
		v = -v
	}
	for v > 0 {
		i--
		b[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
