package stackjson

import "reflect"

// NullPolicy 是三态的 null 处理策略，Default 表示沿用上一级的设置。
type NullPolicy uint8

const (
	NullPolicyDefault NullPolicy = iota
	NullPolicySkip
	NullPolicyAssign
)

func (p NullPolicy) resolve(parent bool) bool {
	switch p {
	case NullPolicySkip:
		return true
	case NullPolicyAssign:
		return false
	default:
		return parent
	}
}

// Access 限制属性参与的方向。
type Access uint8

const (
	AccessReadWrite Access = iota
	// AccessReadOnly 属性只会被写出，读取时忽略其值。
	AccessReadOnly
	// AccessWriteOnly 属性只会被读入，写出时省略。
	AccessWriteOnly
)

// TypePolicy 是类型级别的策略。
type TypePolicy struct {
	Converter       ValueConverter
	SkipNullOnRead  NullPolicy
	SkipNullOnWrite NullPolicy
}

// PropertyPolicy 是属性级别的策略，非零字段覆盖类型与全局设置。
type PropertyPolicy struct {
	// Name 覆盖属性名，优先级高于 json 标签。
	Name            string
	Ignore          bool
	Access          Access
	Converter       ValueConverter
	SkipNullOnRead  NullPolicy
	SkipNullOnWrite NullPolicy
}

// PolicyProvider 在构建类型描述时提供类型与属性策略。
// 配置了 PolicyProvider 的 Serializer 使用私有的类型注册表。
type PolicyProvider interface {
	TypePolicy(t reflect.Type) TypePolicy
	PropertyPolicy(owner reflect.Type, field reflect.StructField) PropertyPolicy
}

// PolicyFuncs 用函数实现 PolicyProvider，未设置的函数返回零值策略。
type PolicyFuncs struct {
	Type     func(t reflect.Type) TypePolicy
	Property func(owner reflect.Type, field reflect.StructField) PropertyPolicy
}

func (p PolicyFuncs) TypePolicy(t reflect.Type) TypePolicy {
	if p.Type == nil {
		return TypePolicy{}
	}
	return p.Type(t)
}

func (p PolicyFuncs) PropertyPolicy(owner reflect.Type, field reflect.StructField) PropertyPolicy {
	if p.Property == nil {
		return PropertyPolicy{}
	}
	return p.Property(owner, field)
}
