package serializer

import (
	"github.com/lk2023060901/stackjson-go/pkg/stackjson"
)

// StackJSONSerializer 使用 pkg/stackjson 实现 JSON 编解码。
type StackJSONSerializer struct {
	s *stackjson.Serializer
}

// 编译期断言：确保 StackJSONSerializer 实现了 Serializer 接口。
var _ Serializer = (*StackJSONSerializer)(nil)

func NewStackJSON(opts ...stackjson.Option) (*StackJSONSerializer, error) {
	s, err := stackjson.New(opts...)
	if err != nil {
		return nil, err
	}
	return &StackJSONSerializer{s: s}, nil
}

// Inner 返回底层的 stackjson.Serializer，供流式接口使用。
func (j *StackJSONSerializer) Inner() *stackjson.Serializer {
	return j.s
}

func (j *StackJSONSerializer) Name() string {
	return NameStackJSON
}

func (j *StackJSONSerializer) Marshal(v any) ([]byte, error) {
	return j.s.Marshal(v)
}

func (j *StackJSONSerializer) Unmarshal(data []byte, v any) error {
	return j.s.Unmarshal(data, v)
}
