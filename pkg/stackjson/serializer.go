package stackjson

import (
	"reflect"
	"sync"

	"github.com/lk2023060901/stackjson-go/pkg/jsontoken"
	"github.com/lk2023060901/stackjson-go/pkg/metrics"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// Serializer 保存一组配置及其对应的类型注册表，可被多个 goroutine 并发使用。
type Serializer struct {
	cfg      config
	registry *Registry
}

// New 创建一个 Serializer。没有自定义策略的配置共享同一组全局注册表。
func New(opts ...Option) (*Serializer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Serializer{
		cfg:      cfg,
		registry: registryFor(&cfg),
	}, nil
}

// MustNew 与 New 相同，配置非法时 panic。
func MustNew(opts ...Option) *Serializer {
	s, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

var defaultSerializer = sync.OnceValue(func() *Serializer {
	return MustNew()
})

// Default 返回使用默认配置的 Serializer。
func Default() *Serializer {
	return defaultSerializer()
}

func orDefault(s *Serializer) *Serializer {
	if s == nil {
		return Default()
	}
	return s
}

// Registry 返回 Serializer 使用的类型注册表。
func (s *Serializer) Registry() *Registry {
	return s.registry
}

// resolve 返回 t 的描述，t 为一层指针时剥离并返回 true。
func (s *Serializer) resolve(t reflect.Type) (*ClassInfo, bool, error) {
	ptr := false
	if t.Kind() == reflect.Pointer {
		if t.Elem().Kind() == reflect.Pointer {
			return nil, false, merr.WrapErrUnsupportedType(t.String(), "multi-level pointer")
		}
		t = t.Elem()
		ptr = true
	}
	info, err := s.registry.GetOrCreate(t)
	return info, ptr, err
}

// Unmarshal 将 data 中的单个 JSON 文档解析到 dst 指向的值，dst 必须是非 nil 指针。
func (s *Serializer) Unmarshal(data []byte, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return merr.WrapErrParameterInvalidMsg("unmarshal target must be a non-nil pointer, got %T", dst)
	}
	return s.unmarshalValue(data, rv.Elem())
}

func (s *Serializer) unmarshalValue(data []byte, root reflect.Value) (err error) {
	defer func() {
		observe(metrics.DecodeLabel, len(data), err)
	}()

	info, ptr, err := s.resolve(root.Type())
	if err != nil {
		return err
	}
	eng := newReadEngine(&s.cfg, info, ptr, root)
	r := jsontoken.NewReader(data, true, jsontoken.NewState(s.cfg.maxDepth))
	done, err := eng.feed(r)
	if err != nil {
		return err
	}
	if !done {
		return merr.WrapErrIncompleteDocument(r.Depth())
	}
	if rest := data[r.Consumed():]; !jsontoken.IsWhitespace(rest) {
		return merr.WrapErrMalformedInput(trailingOffset(r.Offset(), rest), "unexpected data after top-level value")
	}
	return nil
}

func trailingOffset(base int64, rest []byte) int64 {
	for i, c := range rest {
		switch c {
		case ' ', '\t', '\n', '\r':
		default:
			return base + int64(i)
		}
	}
	return base + int64(len(rest))
}

// Marshal 将 v 编码为 JSON。
func (s *Serializer) Marshal(v any) ([]byte, error) {
	return s.AppendMarshal(nil, v)
}

// AppendMarshal 将 v 编码后追加到 dst。
func (s *Serializer) AppendMarshal(dst []byte, v any) (out []byte, err error) {
	defer func() {
		observe(metrics.EncodeLabel, len(out)-len(dst), err)
	}()

	eng, err := s.newWriteEngine(v)
	if err != nil {
		return dst, err
	}
	w := jsontoken.NewWriter(dst[len(dst):])
	if _, err := eng.write(w, 0); err != nil {
		return dst, err
	}
	return append(dst, w.Bytes()...), nil
}

func (s *Serializer) newWriteEngine(v any) (*writeEngine, error) {
	if v == nil {
		return nil, merr.WrapErrParameterInvalidMsg("cannot marshal untyped nil")
	}
	rv := reflect.ValueOf(v)
	info, ptr, err := s.resolve(rv.Type())
	if err != nil {
		return nil, err
	}
	return newWriteEngine(&s.cfg, info, ptr, rv), nil
}

func observe(operation string, size int, err error) {
	status := metrics.SuccessLabel
	if err != nil {
		status = metrics.FailLabel
	}
	metrics.Documents.WithLabelValues(operation, status).Inc()
	if err == nil {
		metrics.DocumentSize.WithLabelValues(operation).Observe(float64(size))
	}
}

// Unmarshal 将 data 解析为 T。s 为 nil 时使用 Default()。
func Unmarshal[T any](s *Serializer, data []byte) (T, error) {
	var out T
	err := orDefault(s).unmarshalValue(data, reflect.ValueOf(&out).Elem())
	return out, err
}

// UnmarshalString 与 Unmarshal 相同，输入为字符串。
func UnmarshalString[T any](s *Serializer, data string) (T, error) {
	return Unmarshal[T](s, []byte(data))
}

// Marshal 将 v 编码为 JSON。s 为 nil 时使用 Default()。
func Marshal(s *Serializer, v any) ([]byte, error) {
	return orDefault(s).Marshal(v)
}

// MarshalString 与 Marshal 相同，返回字符串。
func MarshalString(s *Serializer, v any) (string, error) {
	b, err := orDefault(s).Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
