package stackjson

import (
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/stackjson-go/pkg/jsontoken"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
	"github.com/lk2023060901/stackjson-go/pkg/util/typeutil"
)

type scalarKind uint8

const (
	scalarNone scalarKind = iota
	scalarBool
	scalarInt
	scalarUint
	scalarFloat
	scalarString
	scalarBytes
	scalarAny
	scalarConverter
)

// ClassInfo 描述一个 Go 类型如何映射到 JSON，发布后不可变。
// 指针类型不单独描述：一层指针由 PropertyInfo.Pointer 与 ClassInfo.ElementPointer 表示。
type ClassInfo struct {
	Type           reflect.Type
	Classification Classification
	// Nullable 表示该类型自身的值可以为 null，例如切片与 any。
	Nullable bool

	// Object
	Properties   []*PropertyInfo
	index        *propertyIndex
	materializer Materializer

	// Sequence
	Element        *ClassInfo
	ElementPointer bool
	seqKind        sequenceKind
	arrayLen       int
	adapter        *SequenceAdapter
	listType       reflect.Type

	// Scalar
	Converter ValueConverter
	scalar    scalarKind
}

// Lookup 按 JSON 属性名查找属性，hint 是上一个属性在命中列表中的位置加一。
func (c *ClassInfo) Lookup(name []byte, hint int) (*PropertyInfo, int, bool) {
	if c.index == nil {
		return nil, 0, false
	}
	return c.index.lookup(name, hint)
}

// Materializer 返回结构体属性的访问方式，非结构体返回 nil。
func (c *ClassInfo) Materializer() Materializer {
	return c.materializer
}

func (c *ClassInfo) newValue() reflect.Value {
	if c.materializer != nil {
		return c.materializer.New(c.Type)
	}
	return reflect.New(c.Type).Elem()
}

// elementType 返回序列元素在容器中的实际类型，T 或 *T。
func (c *ClassInfo) elementType() reflect.Type {
	return c.listType.Elem()
}

// PropertyInfo 描述结构体的一个属性。
type PropertyInfo struct {
	Name        string
	NameBytes   []byte
	EncodedName []byte
	// Type 是字段声明的类型。
	Type           reflect.Type
	Info           *ClassInfo
	Classification Classification
	Pointer        bool
	Nullable       bool
	HasGetter      bool
	HasSetter      bool
	// Converter 是属性级别的转换器，优先于类型上的转换器。
	Converter       ValueConverter
	SkipNullOnRead  bool
	SkipNullOnWrite bool

	accessor *fieldAccessor
}

func (p *PropertyInfo) converter() ValueConverter {
	if p.Converter != nil {
		return p.Converter
	}
	if p.Info != nil {
		return p.Info.Converter
	}
	return nil
}

// builder 在注册表的构建锁内工作，pending 保存本轮构建中尚未发布的描述，
// 使循环引用的类型图能够解析到同一个 ClassInfo。
type builder struct {
	r       *Registry
	pending map[reflect.Type]*ClassInfo
	order   []*ClassInfo
}

func newBuilder(r *Registry) *builder {
	return &builder{
		r:       r,
		pending: make(map[reflect.Type]*ClassInfo),
	}
}

func (b *builder) build(t reflect.Type) (*ClassInfo, error) {
	if info, ok := b.r.load(t); ok {
		return info, nil
	}
	if info, ok := b.pending[t]; ok {
		return info, nil
	}
	info := &ClassInfo{Type: t}
	b.pending[t] = info
	b.order = append(b.order, info)
	if err := b.fill(info); err != nil {
		return nil, err
	}
	return info, nil
}

// slot 解析属性或元素的类型，剥离一层指针。
func (b *builder) slot(t reflect.Type) (*ClassInfo, bool, error) {
	ptr := false
	if t.Kind() == reflect.Pointer {
		if t.Elem().Kind() == reflect.Pointer {
			return nil, false, merr.WrapErrUnsupportedType(t.String(), "multi-level pointer")
		}
		t = t.Elem()
		ptr = true
	}
	info, err := b.build(t)
	return info, ptr, err
}

func (b *builder) typeConverter(t reflect.Type) ValueConverter {
	if b.r.cfg.policy != nil {
		if c := b.r.cfg.policy.TypePolicy(t).Converter; c != nil {
			return c
		}
	}
	if c, ok := b.r.cfg.converters[t]; ok {
		return c
	}
	return defaultConverter(t)
}

func (b *builder) fill(info *ClassInfo) error {
	t := info.Type
	if c := b.typeConverter(t); c != nil {
		info.Classification = Scalar
		info.Converter = c
		info.scalar = scalarConverter
		info.Nullable = isNilable(t)
		return nil
	}
	if adapter, ok := b.r.cfg.adapters[t]; ok {
		info.Classification = Sequence
		info.seqKind = sequenceAdapter
		info.adapter = &adapter
		info.Nullable = isNilable(t)
		return b.fillElement(info, adapter.Elem)
	}

	switch t.Kind() {
	case reflect.Bool:
		info.scalar = scalarBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		info.scalar = scalarInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		info.scalar = scalarUint
	case reflect.Float32, reflect.Float64:
		info.scalar = scalarFloat
	case reflect.String:
		info.scalar = scalarString
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return merr.WrapErrUnsupportedType(t.String(), "non-empty interface")
		}
		info.scalar = scalarAny
		info.Nullable = true
	case reflect.Slice:
		info.Nullable = true
		if t.Elem().Kind() == reflect.Uint8 && b.typeConverter(t.Elem()) == nil {
			info.scalar = scalarBytes
			break
		}
		info.Classification = Sequence
		info.seqKind = sequenceSlice
		return b.fillElement(info, t.Elem())
	case reflect.Array:
		info.Classification = Sequence
		info.seqKind = sequenceArray
		info.arrayLen = t.Len()
		return b.fillElement(info, t.Elem())
	case reflect.Struct:
		info.Classification = Object
		return b.fillProperties(info)
	default:
		return merr.WrapErrUnsupportedType(t.String(), t.Kind().String()+" is not representable")
	}
	info.Classification = Scalar
	return nil
}

func (b *builder) fillElement(info *ClassInfo, elem reflect.Type) error {
	elemInfo, ptr, err := b.slot(elem)
	if err != nil {
		return err
	}
	info.Element = elemInfo
	info.ElementPointer = ptr
	if info.seqKind == sequenceSlice {
		info.listType = info.Type
	} else {
		info.listType = reflect.SliceOf(elem)
	}
	return nil
}

type fieldCandidate struct {
	field  reflect.StructField
	name   string
	tagged bool
	depth  int
	acc    *fieldAccessor
	policy PropertyPolicy
}

func (b *builder) fillProperties(info *ClassInfo) error {
	t := info.Type
	var typePolicy TypePolicy
	if b.r.cfg.policy != nil {
		typePolicy = b.r.cfg.policy.TypePolicy(t)
	}

	candidates := b.collectFields(t, t, nil, 0, 0, typeutil.NewSet[reflect.Type](t))
	// 同名时浅层优先，同层时带标签的优先，其余按声明顺序保留第一个
	chosen := make(map[string]int, len(candidates))
	for i, c := range candidates {
		j, ok := chosen[c.name]
		if !ok {
			chosen[c.name] = i
			continue
		}
		prev := candidates[j]
		if c.depth < prev.depth || (c.depth == prev.depth && c.tagged && !prev.tagged) {
			chosen[c.name] = i
		}
	}

	accessors := make([]*fieldAccessor, 0, len(chosen))
	for i, c := range candidates {
		if chosen[c.name] != i {
			continue
		}
		prop, err := b.newProperty(t, c, typePolicy)
		if err != nil {
			return err
		}
		info.Properties = append(info.Properties, prop)
		accessors = append(accessors, c.acc)
	}
	info.index = newPropertyIndex(info.Properties)
	info.materializer = chooseMaterializer(b.r.cfg.materializer, t, accessors)
	return nil
}

// collectFields 按声明顺序展开字段，非指针的内嵌结构体被平铺。
func (b *builder) collectFields(owner, t reflect.Type, index []int, offset uintptr, depth int, visiting typeutil.Set[reflect.Type]) []fieldCandidate {
	var out []fieldCandidate
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		var policy PropertyPolicy
		if b.r.cfg.policy != nil {
			policy = b.r.cfg.policy.PropertyPolicy(owner, f)
		}
		if policy.Ignore {
			continue
		}
		tagName, opts, ignored := parseTag(f.Tag.Get("json"))
		if ignored {
			continue
		}
		fieldIndex := append(append(make([]int, 0, len(index)+1), index...), i)

		if f.Anonymous && tagName == "" && policy.Name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Struct && b.typeConverter(ft) == nil {
				if visiting.Contain(ft) {
					continue
				}
				visiting.Insert(ft)
				out = append(out, b.collectFields(owner, ft, fieldIndex, offset+f.Offset, depth+1, visiting)...)
				visiting.Remove(ft)
				continue
			}
			if !f.IsExported() {
				continue
			}
		} else if !f.IsExported() {
			continue
		}

		name := b.r.cfg.naming.Apply(f.Name)
		tagged := false
		if tagName != "" {
			name, tagged = tagName, true
		}
		if policy.Name != "" {
			name, tagged = policy.Name, true
		}
		if opts.Contain("omitempty") && policy.SkipNullOnWrite == NullPolicyDefault {
			policy.SkipNullOnWrite = NullPolicySkip
		}
		out = append(out, fieldCandidate{
			field:  f,
			name:   name,
			tagged: tagged,
			depth:  depth,
			acc:    &fieldAccessor{index: fieldIndex, offset: offset + f.Offset, typ: f.Type},
			policy: policy,
		})
	}
	return out
}

func (b *builder) newProperty(owner reflect.Type, c fieldCandidate, typePolicy TypePolicy) (*PropertyInfo, error) {
	ft := c.field.Type
	prop := &PropertyInfo{
		Name:        c.name,
		NameBytes:   []byte(c.name),
		EncodedName: jsontoken.EncodeName(c.name),
		Type:        ft,
		HasGetter:   c.policy.Access != AccessWriteOnly,
		HasSetter:   c.policy.Access != AccessReadOnly,
		Converter:   c.policy.Converter,
		accessor:    c.acc,
	}
	prop.SkipNullOnRead = c.policy.SkipNullOnRead.resolve(typePolicy.SkipNullOnRead.resolve(b.r.cfg.skipNullOnRead))
	prop.SkipNullOnWrite = c.policy.SkipNullOnWrite.resolve(typePolicy.SkipNullOnWrite.resolve(b.r.cfg.skipNullOnWrite))

	if prop.Converter != nil {
		prop.Classification = Scalar
		prop.Pointer = ft.Kind() == reflect.Pointer && prop.Converter.Type() != ft
		prop.Nullable = prop.Pointer || isNilable(ft)
		return prop, nil
	}

	info, ptr, err := b.slot(ft)
	if err != nil {
		return nil, errors.Wrapf(err, "property %s.%s", owner, c.field.Name)
	}
	prop.Info = info
	prop.Pointer = ptr
	prop.Classification = info.Classification
	prop.Nullable = ptr || info.Nullable
	return prop, nil
}

func isNilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	default:
		return false
	}
}

// parseTag 解析 json 标签，返回名称、选项以及字段是否被忽略。
func parseTag(tag string) (string, typeutil.Set[string], bool) {
	if tag == "-" {
		return "", nil, true
	}
	parts := strings.Split(tag, ",")
	return parts[0], typeutil.NewSet(parts[1:]...), false
}
