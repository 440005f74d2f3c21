package stackjson

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

const (
	DefaultBufferSize     = 16 << 10
	DefaultMaxBufferSize  = 16 << 20
	DefaultMaxDepth       = 64
	DefaultFlushThreshold = 16 << 10
)

type namingKind uint8

const (
	namingIdentity namingKind = iota
	namingCamel
	namingFunc
)

// NamingPolicy 将 Go 字段名转换为 JSON 属性名。通过 json 标签显式指定的名称不受影响。
type NamingPolicy struct {
	kind namingKind
	fn   func(string) string
}

var (
	IdentityNaming  = NamingPolicy{kind: namingIdentity}
	CamelCaseNaming = NamingPolicy{kind: namingCamel}
)

// NamingFunc 使用自定义函数转换属性名。
func NamingFunc(fn func(string) string) NamingPolicy {
	if fn == nil {
		return IdentityNaming
	}
	return NamingPolicy{kind: namingFunc, fn: fn}
}

// Apply 返回转换后的属性名。
func (p NamingPolicy) Apply(name string) string {
	switch p.kind {
	case namingCamel:
		return camelCase(name)
	case namingFunc:
		return p.fn(name)
	default:
		return name
	}
}

func (p NamingPolicy) String() string {
	switch p.kind {
	case namingCamel:
		return "camel"
	case namingFunc:
		return "func"
	default:
		return "identity"
	}
}

// camelCase 将开头的大写字母串转为小写，大写串后紧跟小写字母时保留最后一个大写字母，
// 例如 ID => id，URLValue => urlValue，Name => name。
func camelCase(name string) string {
	if name == "" {
		return name
	}
	if r, _ := utf8.DecodeRuneInString(name); !unicode.IsUpper(r) {
		return name
	}
	runes := []rune(name)
	for i := range runes {
		if i == 1 && !unicode.IsUpper(runes[i]) {
			break
		}
		if i > 0 && i+1 < len(runes) && !unicode.IsUpper(runes[i+1]) {
			if unicode.IsSpace(runes[i+1]) {
				runes[i] = unicode.ToLower(runes[i])
			}
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// UnknownPropertyPolicy 决定读取到未声明的属性时的行为。
type UnknownPropertyPolicy uint8

const (
	UnknownPropertyError UnknownPropertyPolicy = iota
	UnknownPropertyIgnore
)

// MaterializerKind 选择属性访问的实现方式。
type MaterializerKind uint8

const (
	// MaterializerDefault 优先使用基于偏移的访问，探测失败时回退到反射。
	MaterializerDefault MaterializerKind = iota
	MaterializerReflect
	MaterializerCompiled
)

func (k MaterializerKind) String() string {
	switch k {
	case MaterializerReflect:
		return "reflect"
	case MaterializerCompiled:
		return "compiled"
	default:
		return "default"
	}
}

type config struct {
	bufferSize      int
	maxBufferSize   int
	maxDepth        int
	flushThreshold  int
	naming          NamingPolicy
	unknown         UnknownPropertyPolicy
	skipNullOnRead  bool
	skipNullOnWrite bool
	materializer    MaterializerKind
	policy          PolicyProvider
	converters      map[reflect.Type]ValueConverter
	adapters        map[reflect.Type]SequenceAdapter
}

func defaultConfig() config {
	return config{
		bufferSize:    DefaultBufferSize,
		maxBufferSize: DefaultMaxBufferSize,
		maxDepth:      DefaultMaxDepth,
		naming:        IdentityNaming,
	}
}

func (c *config) validate() error {
	if c.bufferSize <= 0 {
		return merr.WrapErrParameterInvalidMsg("buffer size must be positive, got %d", c.bufferSize)
	}
	if c.maxBufferSize < c.bufferSize {
		return merr.WrapErrParameterInvalidMsg("max buffer size %d is smaller than buffer size %d",
			c.maxBufferSize, c.bufferSize)
	}
	if c.maxDepth <= 0 {
		return merr.WrapErrParameterInvalidMsg("max depth must be positive, got %d", c.maxDepth)
	}
	if c.flushThreshold < 0 {
		return merr.WrapErrParameterInvalidMsg("flush threshold must not be negative, got %d", c.flushThreshold)
	}
	return nil
}

// customized 判断配置是否包含无法在全局作用域间共享的策略。
func (c *config) customized() bool {
	return c.policy != nil || c.naming.kind == namingFunc || len(c.converters) > 0 || len(c.adapters) > 0
}

// Option 配置 Serializer。
type Option func(*config)

func WithBufferSize(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

func WithMaxBufferSize(size int) Option {
	return func(c *config) {
		c.maxBufferSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = depth
	}
}

// WithFlushThreshold 设置写引擎暂停并交出已缓冲数据的字节阈值，0 表示不暂停。
func WithFlushThreshold(threshold int) Option {
	return func(c *config) {
		c.flushThreshold = threshold
	}
}

func WithNamingPolicy(policy NamingPolicy) Option {
	return func(c *config) {
		c.naming = policy
	}
}

func WithUnknownPropertyPolicy(policy UnknownPropertyPolicy) Option {
	return func(c *config) {
		c.unknown = policy
	}
}

// WithSkipNullOnRead 读取到 null 时保留属性原值。
func WithSkipNullOnRead(skip bool) Option {
	return func(c *config) {
		c.skipNullOnRead = skip
	}
}

// WithSkipNullOnWrite 写出时省略值为 null 的属性。
func WithSkipNullOnWrite(skip bool) Option {
	return func(c *config) {
		c.skipNullOnWrite = skip
	}
}

// WithPolicyProvider 提供类型与属性级别的策略。
func WithPolicyProvider(provider PolicyProvider) Option {
	return func(c *config) {
		c.policy = provider
	}
}

// WithConverter 为 converter.Type() 注册值转换器。
func WithConverter(converter ValueConverter) Option {
	return func(c *config) {
		if c.converters == nil {
			c.converters = make(map[reflect.Type]ValueConverter)
		}
		c.converters[converter.Type()] = converter
	}
}

// WithSequenceAdapter 注册不可直接追加元素的容器类型。
func WithSequenceAdapter(adapter SequenceAdapter) Option {
	return func(c *config) {
		if c.adapters == nil {
			c.adapters = make(map[reflect.Type]SequenceAdapter)
		}
		c.adapters[adapter.Type] = adapter
	}
}

func WithMaterializer(kind MaterializerKind) Option {
	return func(c *config) {
		c.materializer = kind
	}
}

// ParseNaming 解析配置文件中的命名策略名称。
func ParseNaming(name string) (NamingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "identity":
		return IdentityNaming, nil
	case "camel", "camelcase":
		return CamelCaseNaming, nil
	default:
		return IdentityNaming, merr.WrapErrParameterInvalid("identity|camel", name, "naming policy")
	}
}

func ParseUnknownPropertyPolicy(name string) (UnknownPropertyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "error":
		return UnknownPropertyError, nil
	case "ignore":
		return UnknownPropertyIgnore, nil
	default:
		return UnknownPropertyError, merr.WrapErrParameterInvalid("error|ignore", name, "unknown property policy")
	}
}

func ParseMaterializer(name string) (MaterializerKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return MaterializerDefault, nil
	case "reflect":
		return MaterializerReflect, nil
	case "compiled":
		return MaterializerCompiled, nil
	default:
		return MaterializerDefault, merr.WrapErrParameterInvalid("default|reflect|compiled", name, "materializer")
	}
}
