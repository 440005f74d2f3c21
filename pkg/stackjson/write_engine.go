package stackjson

import (
	"reflect"

	"github.com/lk2023060901/stackjson-go/pkg/jsontoken"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// writeFrame 是写引擎的一层。started 为 false 时容器的开括号（以及属性名）尚未写出。
type writeFrame struct {
	info    *ClassInfo
	value   reflect.Value
	list    reflect.Value
	index   int
	n       int
	name    []byte
	started bool
}

// writeEngine 与读引擎镜像，每写出一个单元后检查刷新阈值，达到阈值时返回以便调用方取走数据。
type writeEngine struct {
	cfg    *config
	frames []writeFrame
	depth  int
	begun  bool

	rootInfo *ClassInfo
	rootPtr  bool
	root     reflect.Value
}

func newWriteEngine(cfg *config, info *ClassInfo, ptr bool, root reflect.Value) *writeEngine {
	if !root.CanAddr() {
		// 偏移访问需要可寻址的值
		p := reflect.New(root.Type())
		p.Elem().Set(root)
		root = p.Elem()
	}
	return &writeEngine{
		cfg:      cfg,
		frames:   make([]writeFrame, 0, 8),
		depth:    -1,
		rootInfo: info,
		rootPtr:  ptr,
		root:     root,
	}
}

// write 写出直到文档完成或缓冲数据达到 threshold，threshold 为 0 时一次写完。
func (e *writeEngine) write(w *jsontoken.Writer, threshold int) (bool, error) {
	if !e.begun {
		e.begun = true
		if err := e.slot(w, nil, e.rootInfo, e.rootInfo.Converter, e.rootPtr, false, e.root); err != nil {
			return false, err
		}
		if e.full(w, threshold) {
			return e.depth < 0, nil
		}
	}

	for e.depth >= 0 {
		f := &e.frames[e.depth]
		var err error
		switch {
		case !f.started:
			if f.name != nil {
				w.Name(f.name)
			}
			if f.info.Classification == Object {
				w.StartObject()
			} else {
				w.StartArray()
			}
			f.started = true
		case f.info.Classification == Object:
			err = e.nextProperty(w, f)
		default:
			err = e.nextElement(w, f)
		}
		if err != nil {
			return false, err
		}
		if e.full(w, threshold) {
			break
		}
	}
	return e.depth < 0, nil
}

func (e *writeEngine) full(w *jsontoken.Writer, threshold int) bool {
	return threshold > 0 && w.Len() >= threshold
}

func (e *writeEngine) nextProperty(w *jsontoken.Writer, f *writeFrame) error {
	props := f.info.Properties
	for f.index < len(props) {
		p := props[f.index]
		f.index++
		if !p.HasGetter {
			continue
		}
		v := f.info.materializer.Field(f.value, p.accessor)
		return e.slot(w, p.EncodedName, p.Info, p.converter(), p.Pointer, p.SkipNullOnWrite, v)
	}
	w.EndObject()
	e.pop()
	return nil
}

func (e *writeEngine) nextElement(w *jsontoken.Writer, f *writeFrame) error {
	if f.index < f.n {
		v := f.list.Index(f.index)
		f.index++
		elem := f.info.Element
		return e.slot(w, nil, elem, elem.Converter, f.info.ElementPointer, false, v)
	}
	w.EndArray()
	e.pop()
	return nil
}

// slot 写出一个属性或元素：标量与 null 直接写出，对象与序列压入新帧。
func (e *writeEngine) slot(w *jsontoken.Writer, name []byte, info *ClassInfo, conv ValueConverter, ptr bool, skipNull bool, v reflect.Value) error {
	if isNullValue(v, ptr) {
		if skipNull {
			return nil
		}
		if name != nil {
			w.Name(name)
		}
		w.Null()
		return nil
	}
	if ptr {
		v = v.Elem()
	}
	if conv != nil || info.Classification == Scalar {
		if name != nil {
			w.Name(name)
		}
		return encodeScalar(w, info, conv, v)
	}

	if e.depth+2 > e.cfg.maxDepth {
		return merr.WrapErrMaxDepthExceeded(e.depth+2, e.cfg.maxDepth, "while writing "+info.Type.String())
	}
	f := e.push()
	f.info = info
	f.value = v
	f.name = name
	if info.Classification == Sequence {
		f.list = v
		if info.seqKind == sequenceAdapter {
			f.list = info.adapter.ToList(v)
		}
		f.n = f.list.Len()
	}
	return nil
}

func isNullValue(v reflect.Value, ptr bool) bool {
	if ptr {
		return v.IsNil()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Interface, reflect.Map, reflect.Pointer:
		return v.IsNil()
	default:
		return false
	}
}

func (e *writeEngine) push() *writeFrame {
	e.depth++
	if e.depth == len(e.frames) {
		e.frames = append(e.frames, writeFrame{})
	} else {
		e.frames[e.depth] = writeFrame{}
	}
	return &e.frames[e.depth]
}

func (e *writeEngine) pop() {
	e.frames[e.depth] = writeFrame{}
	e.depth--
}
