package stackjson

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"

	"github.com/lk2023060901/stackjson-go/pkg/jsontoken"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// ValueConverter 负责一个类型与 JSON 标量之间的转换，被转换的类型按标量处理。
//
// ReadJSON 收到的 text 对字符串已反转义，仅在调用期间有效。
// null 由引擎处理，不会传给转换器。
type ValueConverter interface {
	Type() reflect.Type
	ReadJSON(kind jsontoken.Kind, text []byte, dst reflect.Value) error
	WriteJSON(w *jsontoken.Writer, src reflect.Value) error
}

var (
	timeType            = reflect.TypeOf(time.Time{})
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

type timeConverter struct {
	layout string
}

// TimeConverter 按 layout 以字符串读写 time.Time。
func TimeConverter(layout string) ValueConverter {
	return timeConverter{layout: layout}
}

func (c timeConverter) Type() reflect.Type {
	return timeType
}

func (c timeConverter) ReadJSON(kind jsontoken.Kind, text []byte, dst reflect.Value) error {
	if kind != jsontoken.String {
		return merr.WrapErrTypeMismatch(timeType.String(), kind.String())
	}
	t, err := time.Parse(c.layout, string(text))
	if err != nil {
		return merr.WrapErrTypeMismatch(timeType.String(), kind.String(), err.Error())
	}
	dst.Set(reflect.ValueOf(t))
	return nil
}

func (c timeConverter) WriteJSON(w *jsontoken.Writer, src reflect.Value) error {
	t := src.Interface().(time.Time)
	w.String(t.Format(c.layout))
	return nil
}

type enumConverter[T constraints.Integer] struct {
	names  map[T]string
	values map[string]T
}

// NewEnumConverter 以名称字符串读写整数枚举，读取时同时接受名称与数字。
// 未登记的值写出为数字。
func NewEnumConverter[T constraints.Integer](names map[T]string) ValueConverter {
	c := &enumConverter[T]{
		names:  make(map[T]string, len(names)),
		values: make(map[string]T, len(names)),
	}
	for v, name := range names {
		c.names[v] = name
		c.values[name] = v
	}
	return c
}

func (c *enumConverter[T]) Type() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (c *enumConverter[T]) ReadJSON(kind jsontoken.Kind, text []byte, dst reflect.Value) error {
	var value T
	switch kind {
	case jsontoken.String:
		v, ok := c.values[string(text)]
		if !ok {
			return merr.WrapErrTypeMismatch(c.Type().String(), kind.String(), "unknown enum name "+strconv.Quote(string(text)))
		}
		value = v
	case jsontoken.Number:
		v, ok := parseInteger[T](text)
		if !ok {
			return merr.WrapErrTypeMismatch(c.Type().String(), kind.String(), "invalid enum value "+string(text))
		}
		value = v
	default:
		return merr.WrapErrTypeMismatch(c.Type().String(), kind.String())
	}
	dst.Set(reflect.ValueOf(value))
	return nil
}

func (c *enumConverter[T]) WriteJSON(w *jsontoken.Writer, src reflect.Value) error {
	v := src.Interface().(T)
	if name, ok := c.names[v]; ok {
		w.String(name)
		return nil
	}
	w.Raw([]byte(fmt.Sprint(v)))
	return nil
}

func parseInteger[T constraints.Integer](text []byte) (T, bool) {
	var zero T
	if zero-1 < 0 {
		n, err := strconv.ParseInt(string(text), 10, 64)
		if err != nil || int64(T(n)) != n {
			return 0, false
		}
		return T(n), true
	}
	n, err := strconv.ParseUint(string(text), 10, 64)
	if err != nil || uint64(T(n)) != n {
		return 0, false
	}
	return T(n), true
}

// textConverter 处理同时实现 encoding.TextMarshaler 与 encoding.TextUnmarshaler 的类型。
type textConverter struct {
	typ reflect.Type
}

func isTextType(t reflect.Type) bool {
	marshal := t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType)
	return marshal && reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// TextConverter 返回 t 的文本转换器，t 未实现文本编解码接口时返回 false。
func TextConverter(t reflect.Type) (ValueConverter, bool) {
	if !isTextType(t) {
		return nil, false
	}
	return textConverter{typ: t}, true
}

func (c textConverter) Type() reflect.Type {
	return c.typ
}

func (c textConverter) ReadJSON(kind jsontoken.Kind, text []byte, dst reflect.Value) error {
	if kind != jsontoken.String {
		return merr.WrapErrTypeMismatch(c.typ.String(), kind.String())
	}
	u := dst.Addr().Interface().(encoding.TextUnmarshaler)
	if err := u.UnmarshalText(text); err != nil {
		return merr.WrapErrTypeMismatch(c.typ.String(), kind.String(), err.Error())
	}
	return nil
}

func (c textConverter) WriteJSON(w *jsontoken.Writer, src reflect.Value) error {
	var m encoding.TextMarshaler
	if c.typ.Implements(textMarshalerType) {
		m = src.Interface().(encoding.TextMarshaler)
	} else {
		p := reflect.New(c.typ)
		p.Elem().Set(src)
		m = p.Interface().(encoding.TextMarshaler)
	}
	text, err := m.MarshalText()
	if err != nil {
		return errors.Wrapf(err, "marshal %s as text", c.typ)
	}
	w.String(string(text))
	return nil
}

// defaultConverter 返回内置的转换器：time.Time 使用 RFC 3339，文本类型使用 TextConverter。
func defaultConverter(t reflect.Type) ValueConverter {
	if t == timeType {
		return TimeConverter(time.RFC3339Nano)
	}
	if c, ok := TextConverter(t); ok {
		return c
	}
	return nil
}
