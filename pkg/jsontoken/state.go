package jsontoken

const DefaultMaxDepth = 64

type expect uint8

const (
	expectValue      expect = iota // 文档开头、冒号之后、数组逗号之后
	expectValueOrEnd               // '[' 之后
	expectNameOrEnd                // '{' 之后
	expectName                     // 对象内逗号之后
	expectCommaOrEnd               // 容器内一个值之后
	expectDone                     // 根值已结束
)

// State 保存跨缓冲区恢复分词所需的全部信息。
// 零值表示一个全新文档的起点，最大深度为 DefaultMaxDepth。
type State struct {
	containers []byte // 每层一个字节：'{' 或 '['
	expect     expect
	maxDepth   int
	offset     int64 // 当前缓冲区首字节在整个流中的偏移
}

// NewState 创建一个指定最大嵌套深度的初始状态，maxDepth <= 0 时使用 DefaultMaxDepth。
func NewState(maxDepth int) State {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return State{maxDepth: maxDepth}
}

// Depth 返回当前打开的容器层数。
func (s State) Depth() int {
	return len(s.containers)
}

// Done 判断根值是否已经完整读出。
func (s State) Done() bool {
	return s.expect == expectDone
}

// Started 判断是否已经读出过任何 token。
func (s State) Started() bool {
	return s.expect != expectValue || len(s.containers) > 0
}

// Offset 返回下一个待读字节在整个流中的偏移。
func (s State) Offset() int64 {
	return s.offset
}

// Next 返回用于读取同一流中下一个根值的状态，保留深度限制与偏移。
func (s State) Next() State {
	return State{
		containers: s.containers[:0],
		maxDepth:   s.maxDepth,
		offset:     s.offset,
	}
}

func (s State) limit() int {
	if s.maxDepth <= 0 {
		return DefaultMaxDepth
	}
	return s.maxDepth
}

func (s State) inObject() bool {
	n := len(s.containers)
	return n > 0 && s.containers[n-1] == '{'
}
