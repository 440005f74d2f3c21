package stackjson

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// SequenceAdapter 描述一个无法直接追加元素的容器类型。
// 读取时元素先收集到 []Elem 临时列表，结束时由 FromList 构建容器；
// 写出时 ToList 返回容器元素组成的 []Elem。
type SequenceAdapter struct {
	Type     reflect.Type
	Elem     reflect.Type
	FromList func(list reflect.Value) (reflect.Value, error)
	ToList   func(container reflect.Value) reflect.Value
}

// NewSequenceAdapter 基于类型化的转换函数构建 SequenceAdapter。
func NewSequenceAdapter[C any, E any](from func([]E) (C, error), to func(C) []E) SequenceAdapter {
	return SequenceAdapter{
		Type: reflect.TypeOf((*C)(nil)).Elem(),
		Elem: reflect.TypeOf((*E)(nil)).Elem(),
		FromList: func(list reflect.Value) (reflect.Value, error) {
			c, err := from(list.Interface().([]E))
			if err != nil {
				return reflect.Value{}, errors.Wrap(err, "build sequence from list")
			}
			return reflect.ValueOf(&c).Elem(), nil
		},
		ToList: func(container reflect.Value) reflect.Value {
			return reflect.ValueOf(to(container.Interface().(C)))
		},
	}
}

type sequenceKind uint8

const (
	sequenceSlice sequenceKind = iota
	sequenceArray
	sequenceAdapter
)
