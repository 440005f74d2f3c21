package stackjson

import (
	"reflect"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/stackjson-go/pkg/jsontoken"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// readFrame 是读引擎的一层。对象模式下 obj 与 value 有效，prop 是正在读取值的属性；
// 属性值为数组时同一帧进入序列模式，seq 与 list 有效。嵌套数组与对象元素各自压入新帧。
type readFrame struct {
	obj   *ClassInfo
	value reflect.Value
	prop  *PropertyInfo
	hint  int

	seq     *ClassInfo
	list    reflect.Value
	dest    reflect.Value
	destPtr bool
	// nested 表示该帧只为一个数组元素存在，数组结束时弹出
	nested bool

	// elem 表示帧的结果追加到父帧的序列中
	elem    bool
	elemPtr bool
}

func (f *readFrame) appendValue(v reflect.Value) {
	f.list = reflect.Append(f.list, v)
}

func (f *readFrame) leaveSequence() {
	f.seq = nil
	f.list = reflect.Value{}
	f.dest = reflect.Value{}
	f.destPtr = false
	f.prop = nil
}

// readTarget 描述一个值将被写入的位置。dest 无效时值追加到当前帧的序列。
type readTarget struct {
	info     *ClassInfo
	conv     ValueConverter
	typ      reflect.Type
	ptr      bool
	nullable bool
	skipNull bool
	dest     reflect.Value
}

func (t *readTarget) classification() Classification {
	if t.conv != nil {
		return Scalar
	}
	return t.info.Classification
}

// valueType 返回剥离指针之后的值类型。
func (t *readTarget) valueType() reflect.Type {
	if t.info != nil {
		return t.info.Type
	}
	if t.ptr {
		return t.typ.Elem()
	}
	return t.typ
}

// readEngine 由 token 驱动，帧栈保存在堆上，可以在任意 token 边界暂停并继续。
type readEngine struct {
	cfg      *config
	frames   []readFrame
	depth    int
	started  bool
	done     bool
	root     reflect.Value
	rootInfo *ClassInfo
	rootPtr  bool

	skipping bool
	skip     int
	scratch  []byte
}

func newReadEngine(cfg *config, info *ClassInfo, ptr bool, root reflect.Value) *readEngine {
	return &readEngine{
		cfg:      cfg,
		frames:   make([]readFrame, 1, 8),
		root:     root,
		rootInfo: info,
		rootPtr:  ptr,
	}
}

// feed 消费 r 中的 token，返回根值是否已经完整读出。
// 返回 false 且没有错误时，调用方需要补充数据后用 r.State() 继续。
func (e *readEngine) feed(r *jsontoken.Reader) (bool, error) {
	for !e.done {
		ok, err := r.Read()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if err := e.token(r); err != nil {
			return false, errors.Wrapf(err, "near offset %d", r.Offset())
		}
	}
	return true, nil
}

func (e *readEngine) token(r *jsontoken.Reader) error {
	kind := r.Kind()
	if e.skipping {
		switch kind {
		case jsontoken.StartObject, jsontoken.StartArray:
			e.skip++
		case jsontoken.EndObject, jsontoken.EndArray:
			e.skip--
		}
		if e.skip == 0 {
			e.skipping = false
		}
		return nil
	}

	f := &e.frames[e.depth]
	switch kind {
	case jsontoken.PropertyName:
		return e.property(f, r)
	case jsontoken.EndObject:
		return e.endObject()
	case jsontoken.EndArray:
		return e.endArray()
	}

	target, err := e.target(f)
	if err != nil {
		return err
	}
	switch kind {
	case jsontoken.Null:
		return e.null(f, target)
	case jsontoken.StartObject:
		return e.startObject(f, target)
	case jsontoken.StartArray:
		return e.startArray(f, target)
	default:
		return e.scalar(f, target, r)
	}
}

func (e *readEngine) target(f *readFrame) (*readTarget, error) {
	switch {
	case f.seq != nil:
		elem := f.seq.Element
		return &readTarget{
			info:     elem,
			conv:     elem.Converter,
			typ:      f.seq.elementType(),
			ptr:      f.seq.ElementPointer,
			nullable: f.seq.ElementPointer || elem.Nullable,
		}, nil
	case f.prop != nil:
		p := f.prop
		return &readTarget{
			info:     p.Info,
			conv:     p.converter(),
			typ:      p.Type,
			ptr:      p.Pointer,
			nullable: p.Nullable,
			skipNull: p.SkipNullOnRead,
			dest:     f.obj.materializer.Field(f.value, p.accessor),
		}, nil
	case !e.started:
		e.started = true
		typ := e.rootInfo.Type
		if e.rootPtr {
			typ = reflect.PointerTo(typ)
		}
		return &readTarget{
			info:     e.rootInfo,
			conv:     e.rootInfo.Converter,
			typ:      typ,
			ptr:      e.rootPtr,
			nullable: e.rootPtr || e.rootInfo.Nullable,
			dest:     e.root,
		}, nil
	default:
		return nil, merr.WrapErrMalformedInput(0, "value without property name")
	}
}

// finish 在一个值写入目标之后更新帧状态。
func (e *readEngine) finish(f *readFrame) {
	if f.seq == nil {
		f.prop = nil
	}
	if e.depth == 0 && f.obj == nil && f.seq == nil {
		e.done = true
	}
}

func (e *readEngine) property(f *readFrame, r *jsontoken.Reader) error {
	name := r.Value()
	if r.ValueEscaped() {
		e.scratch = r.AppendString(e.scratch[:0])
		name = e.scratch
	}
	prop, pos, ok := f.obj.Lookup(name, f.hint)
	if !ok {
		if e.cfg.unknown == UnknownPropertyIgnore {
			e.skipping = true
			e.skip = 0
			return nil
		}
		return merr.WrapErrUnknownProperty(f.obj.Type.String(), string(name))
	}
	f.hint = pos + 1
	if !prop.HasSetter {
		e.skipping = true
		e.skip = 0
		return nil
	}
	f.prop = prop
	return nil
}

func (e *readEngine) null(f *readFrame, t *readTarget) error {
	if !t.nullable {
		return merr.WrapErrNullNotAllowed(t.typ.String())
	}
	switch {
	case !t.dest.IsValid():
		f.appendValue(reflect.Zero(f.seq.elementType()))
	case !t.skipNull:
		t.dest.SetZero()
	}
	e.finish(f)
	return nil
}

func (e *readEngine) scalar(f *readFrame, t *readTarget, r *jsontoken.Reader) error {
	kind := r.Kind()
	if t.classification() != Scalar {
		return merr.WrapErrTypeMismatch(t.typ.String(), kind.String(), "expected "+t.classification().String())
	}
	text := r.Value()
	if kind == jsontoken.String {
		e.scratch = r.AppendString(e.scratch[:0])
		text = e.scratch
	}

	if t.dest.IsValid() && !t.ptr {
		if err := decodeScalar(t.info, t.conv, kind, text, t.dest); err != nil {
			return err
		}
		e.finish(f)
		return nil
	}
	p := reflect.New(t.valueType())
	if err := decodeScalar(t.info, t.conv, kind, text, p.Elem()); err != nil {
		return err
	}
	e.deliver(f, t, p)
	e.finish(f)
	return nil
}

// deliver 将 p 指向的新值写入目标，p 的类型为 *T。
func (e *readEngine) deliver(f *readFrame, t *readTarget, p reflect.Value) {
	v := p.Elem()
	if t.ptr {
		v = p
	}
	if t.dest.IsValid() {
		t.dest.Set(v)
		return
	}
	f.appendValue(v)
}

func (e *readEngine) push() *readFrame {
	e.depth++
	if e.depth == len(e.frames) {
		e.frames = append(e.frames, readFrame{})
	} else {
		e.frames[e.depth] = readFrame{}
	}
	return &e.frames[e.depth]
}

func (e *readEngine) pop() *readFrame {
	e.frames[e.depth] = readFrame{}
	e.depth--
	return &e.frames[e.depth]
}

func (e *readEngine) startObject(f *readFrame, t *readTarget) error {
	if t.classification() != Object {
		return merr.WrapErrTypeMismatch(t.typ.String(), jsontoken.StartObject.String(), "expected "+t.classification().String())
	}

	var child reflect.Value
	elem := !t.dest.IsValid()
	switch {
	case elem:
		child = t.info.newValue()
	case t.ptr:
		p := reflect.New(t.info.Type)
		t.dest.Set(p)
		child = p.Elem()
	default:
		// 非指针的结构体就地填充，未出现的属性保留原值
		child = t.dest
	}

	if e.depth == 0 && f.obj == nil && f.seq == nil {
		// 根对象
		f.obj = t.info
		f.value = child
		return nil
	}
	next := e.push()
	next.obj = t.info
	next.value = child
	next.elem = elem
	next.elemPtr = t.ptr
	return nil
}

func (e *readEngine) endObject() error {
	if e.depth == 0 {
		e.done = true
		return nil
	}
	child := e.frames[e.depth]
	parent := e.pop()
	if child.elem {
		v := child.value
		if child.elemPtr {
			v = v.Addr()
		}
		parent.appendValue(v)
		return nil
	}
	parent.prop = nil
	return nil
}

func (e *readEngine) startArray(f *readFrame, t *readTarget) error {
	if t.classification() != Sequence {
		return merr.WrapErrTypeMismatch(t.typ.String(), jsontoken.StartArray.String(), "expected "+t.classification().String())
	}
	list := reflect.MakeSlice(t.info.listType, 0, 4)
	if t.dest.IsValid() {
		// 属性或根值：当前帧进入序列模式
		f.seq = t.info
		f.list = list
		f.dest = t.dest
		f.destPtr = t.ptr
		return nil
	}
	next := e.push()
	next.seq = t.info
	next.list = list
	next.nested = true
	next.elem = true
	next.elemPtr = t.ptr
	return nil
}

func (e *readEngine) endArray() error {
	f := &e.frames[e.depth]
	v, err := buildSequence(f.seq, f.list)
	if err != nil {
		return err
	}

	if f.nested {
		ptr := f.elemPtr
		parent := e.pop()
		if ptr {
			p := reflect.New(v.Type())
			p.Elem().Set(v)
			v = p
		}
		parent.appendValue(v)
		return nil
	}

	if f.destPtr {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		v = p
	}
	f.dest.Set(v)
	f.leaveSequence()
	e.finish(f)
	return nil
}

// buildSequence 将收集到的元素列表转换为序列类型的值。
func buildSequence(info *ClassInfo, list reflect.Value) (reflect.Value, error) {
	switch info.seqKind {
	case sequenceArray:
		if list.Len() > info.arrayLen {
			return reflect.Value{}, merr.WrapErrTypeMismatch(info.Type.String(), jsontoken.StartArray.String(),
				strconv.Itoa(list.Len())+" elements exceed array length "+strconv.Itoa(info.arrayLen))
		}
		arr := reflect.New(info.Type).Elem()
		reflect.Copy(arr.Slice(0, info.arrayLen), list)
		return arr, nil
	case sequenceAdapter:
		v, err := info.adapter.FromList(list)
		if err != nil {
			return reflect.Value{}, merr.WrapErrTypeMismatch(info.Type.String(), jsontoken.StartArray.String(), err.Error())
		}
		return v, nil
	default:
		if list.Type() != info.Type {
			return list.Convert(info.Type), nil
		}
		return list, nil
	}
}
