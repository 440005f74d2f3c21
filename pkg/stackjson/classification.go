// Package stackjson 在 JSON 字节流与 Go 类型化值之间直接映射，不构建中间树。
//
// 读写两台状态机都使用按深度索引的显式帧栈，解析状态保存在调用栈之外，
// 因此同一份文档既可以一次性解析，也可以跨越多次部分读取增量解析。
package stackjson

// Classification 描述类型在 JSON 中的形态。
type Classification uint8

const (
	Scalar Classification = iota
	Object
	Sequence
)

func (c Classification) String() string {
	switch c {
	case Scalar:
		return "scalar"
	case Object:
		return "object"
	case Sequence:
		return "sequence"
	default:
		return "unknown"
	}
}
