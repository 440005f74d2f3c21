package stackjson

import (
	"encoding/base64"
	"reflect"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/stackjson-go/pkg/jsontoken"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// decodeScalar 按目标类型解码一个标量 token，text 对字符串已反转义。
// 不做字符串与数字之间的隐式转换，整数不接受小数或指数形式。
func decodeScalar(info *ClassInfo, conv ValueConverter, kind jsontoken.Kind, text []byte, dst reflect.Value) error {
	if conv != nil {
		return conv.ReadJSON(kind, text, dst)
	}
	t := dst.Type()
	switch info.scalar {
	case scalarBool:
		switch kind {
		case jsontoken.True:
			dst.SetBool(true)
		case jsontoken.False:
			dst.SetBool(false)
		default:
			return mismatch(t, kind)
		}
	case scalarInt:
		if kind != jsontoken.Number {
			return mismatch(t, kind)
		}
		n, err := strconv.ParseInt(string(text), 10, t.Bits())
		if err != nil {
			return numberError(t, kind, text, err)
		}
		dst.SetInt(n)
	case scalarUint:
		if kind != jsontoken.Number {
			return mismatch(t, kind)
		}
		n, err := strconv.ParseUint(string(text), 10, t.Bits())
		if err != nil {
			return numberError(t, kind, text, err)
		}
		dst.SetUint(n)
	case scalarFloat:
		if kind != jsontoken.Number {
			return mismatch(t, kind)
		}
		f, err := strconv.ParseFloat(string(text), t.Bits())
		if err != nil {
			return numberError(t, kind, text, err)
		}
		dst.SetFloat(f)
	case scalarString:
		if kind != jsontoken.String {
			return mismatch(t, kind)
		}
		dst.SetString(string(text))
	case scalarBytes:
		if kind != jsontoken.String {
			return mismatch(t, kind)
		}
		b := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
		n, err := base64.StdEncoding.Decode(b, text)
		if err != nil {
			return merr.WrapErrTypeMismatch(t.String(), kind.String(), "invalid base64: "+err.Error())
		}
		dst.SetBytes(b[:n])
	case scalarAny:
		var v any
		switch kind {
		case jsontoken.String:
			v = string(text)
		case jsontoken.Number:
			f, err := strconv.ParseFloat(string(text), 64)
			if err != nil {
				return numberError(t, kind, text, err)
			}
			v = f
		case jsontoken.True:
			v = true
		case jsontoken.False:
			v = false
		default:
			return mismatch(t, kind)
		}
		dst.Set(reflect.ValueOf(v))
	default:
		return mismatch(t, kind)
	}
	return nil
}

func mismatch(t reflect.Type, kind jsontoken.Kind) error {
	return merr.WrapErrTypeMismatch(t.String(), kind.String())
}

func numberError(t reflect.Type, kind jsontoken.Kind, text []byte, err error) error {
	reason := "invalid number " + string(text)
	if errors.Is(err, strconv.ErrRange) {
		reason = "number " + string(text) + " overflows"
	}
	return merr.WrapErrTypeMismatch(t.String(), kind.String(), reason)
}

// encodeScalar 写出一个非 null 的标量值。
func encodeScalar(w *jsontoken.Writer, info *ClassInfo, conv ValueConverter, v reflect.Value) error {
	if conv != nil {
		return conv.WriteJSON(w, v)
	}
	switch info.scalar {
	case scalarBool:
		w.Bool(v.Bool())
	case scalarInt:
		w.Int(v.Int())
	case scalarUint:
		w.Uint(v.Uint())
	case scalarFloat:
		return w.Float(v.Float(), v.Type().Bits())
	case scalarString:
		w.String(v.String())
	case scalarBytes:
		if v.IsNil() {
			w.Null()
			return nil
		}
		w.Base64(v.Bytes())
	case scalarAny:
		return encodeDynamic(w, v)
	default:
		return merr.WrapErrUnsupportedType(v.Type().String(), "not a scalar")
	}
	return nil
}

// encodeDynamic 写出 any 中保存的标量，非标量的动态值不受支持。
func encodeDynamic(w *jsontoken.Writer, v reflect.Value) error {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			w.Null()
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Bool:
		w.Bool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		w.Int(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		w.Uint(v.Uint())
	case reflect.Float32, reflect.Float64:
		return w.Float(v.Float(), v.Type().Bits())
	case reflect.String:
		w.String(v.String())
	default:
		return merr.WrapErrUnsupportedType(v.Type().String(), "dynamic value in any must be a scalar")
	}
	return nil
}
