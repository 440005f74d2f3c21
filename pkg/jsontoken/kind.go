// Package jsontoken 提供可恢复的 JSON 分词器与追加式写入器。
//
// Reader 工作在一段字节切片上，切片末尾可能截断在任意 token 中间：
// 非 final 模式下遇到不完整的 token 时 Read 返回 false，调用方补充数据后
// 用 State 构造新的 Reader 从 Consumed 处继续。
package jsontoken

// Kind 表示 token 类型。
type Kind uint8

const (
	None Kind = iota
	StartObject
	EndObject
	StartArray
	EndArray
	PropertyName
	String
	Number
	True
	False
	Null
)

var kindNames = [...]string{
	None:         "none",
	StartObject:  "start-object",
	EndObject:    "end-object",
	StartArray:   "start-array",
	EndArray:     "end-array",
	PropertyName: "property-name",
	String:       "string",
	Number:       "number",
	True:         "true",
	False:        "false",
	Null:         "null",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsScalar 判断 token 是否为非 null 的标量值。
func (k Kind) IsScalar() bool {
	switch k {
	case String, Number, True, False:
		return true
	default:
		return false
	}
}
