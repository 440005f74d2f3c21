package stackjson

import (
	"reflect"
	"unsafe"
)

// fieldAccessor 定位结构体中的一个（可能经由内嵌结构体提升的）字段。
type fieldAccessor struct {
	index  []int
	offset uintptr
	typ    reflect.Type
}

// Materializer 创建实例并访问属性字段。
type Materializer interface {
	Kind() MaterializerKind
	// New 返回 t 的一个可寻址零值。
	New(t reflect.Type) reflect.Value
	// Field 返回 owner 中 acc 指向的字段，owner 必须可寻址。
	Field(owner reflect.Value, acc *fieldAccessor) reflect.Value
}

type reflectMaterializer struct{}

func (reflectMaterializer) Kind() MaterializerKind {
	return MaterializerReflect
}

func (reflectMaterializer) New(t reflect.Type) reflect.Value {
	return reflect.New(t).Elem()
}

func (reflectMaterializer) Field(owner reflect.Value, acc *fieldAccessor) reflect.Value {
	if len(acc.index) == 1 {
		return owner.Field(acc.index[0])
	}
	return owner.FieldByIndex(acc.index)
}

// compiledMaterializer 直接按字段偏移计算地址，要求 owner 可寻址。
type compiledMaterializer struct{}

func (compiledMaterializer) Kind() MaterializerKind {
	return MaterializerCompiled
}

func (compiledMaterializer) New(t reflect.Type) reflect.Value {
	return reflect.New(t).Elem()
}

func (compiledMaterializer) Field(owner reflect.Value, acc *fieldAccessor) reflect.Value {
	if !owner.CanAddr() {
		return reflectMaterializer{}.Field(owner, acc)
	}
	ptr := unsafe.Add(owner.Addr().UnsafePointer(), acc.offset)
	return reflect.NewAt(acc.typ, ptr).Elem()
}

// probeCompiled 检查每个字段按偏移得到的地址与反射访问得到的地址一致。
func probeCompiled(t reflect.Type, accessors []*fieldAccessor) bool {
	sample := reflect.New(t).Elem()
	base := sample.Addr().Pointer()
	for _, acc := range accessors {
		field := sample.FieldByIndex(acc.index)
		if field.UnsafeAddr() != base+acc.offset || field.Type() != acc.typ {
			return false
		}
	}
	return true
}

// chooseMaterializer 按配置为结构体类型选择访问方式。
func chooseMaterializer(kind MaterializerKind, t reflect.Type, accessors []*fieldAccessor) Materializer {
	switch kind {
	case MaterializerReflect:
		return reflectMaterializer{}
	case MaterializerCompiled:
		return compiledMaterializer{}
	default:
		if probeCompiled(t, accessors) {
			return compiledMaterializer{}
		}
		return reflectMaterializer{}
	}
}
