package stackjson

import (
	"bytes"
	"sync/atomic"
)

// fingerprint 将属性名的前 6 个字节按小端序放入 0..47 位，min(len, 255) 放入 48..55 位。
// 指纹相同仍需逐字节比较名称。
func fingerprint(name []byte) uint64 {
	var key uint64
	n := len(name)
	if n > 6 {
		n = 6
	}
	for i := 0; i < n; i++ {
		key |= uint64(name[i]) << (8 * i)
	}
	l := len(name)
	if l > 255 {
		l = 255
	}
	return key | uint64(l)<<48
}

// propertyIndex 按名称解析属性。
//
// hints 是按首次命中顺序排列的属性下标列表，查找从调用方给出的位置向两侧展开；
// 未命中时按声明顺序线性扫描，并把找到的属性以写时复制的方式追加到 hints。
// hints 不含重复项，长度不超过属性数。
type propertyIndex struct {
	props []*PropertyInfo
	keys  []uint64
	hints atomic.Pointer[[]int]
}

func newPropertyIndex(props []*PropertyInfo) *propertyIndex {
	idx := &propertyIndex{
		props: props,
		keys:  make([]uint64, len(props)),
	}
	for i, p := range props {
		idx.keys[i] = fingerprint(p.NameBytes)
	}
	empty := make([]int, 0, len(props))
	idx.hints.Store(&empty)
	return idx
}

func (idx *propertyIndex) match(i int, key uint64, name []byte) bool {
	return idx.keys[i] == key && bytes.Equal(idx.props[i].NameBytes, name)
}

// lookup 返回名称对应的属性以及它在 hints 中的位置。
func (idx *propertyIndex) lookup(name []byte, hint int) (*PropertyInfo, int, bool) {
	key := fingerprint(name)
	hints := *idx.hints.Load()
	n := len(hints)
	if n > 0 {
		if hint < 0 {
			hint = 0
		} else if hint >= n {
			hint = n - 1
		}
		// hint, hint+1, hint-1, hint+2, ...
		for step := 0; step < 2*n; step++ {
			pos := hint + (step+1)/2
			if step%2 == 0 {
				pos = hint - step/2
			}
			if pos < 0 || pos >= n {
				continue
			}
			if i := hints[pos]; idx.match(i, key, name) {
				return idx.props[i], pos, true
			}
		}
	}

	for i := range idx.props {
		if idx.match(i, key, name) {
			return idx.props[i], idx.remember(i), true
		}
	}
	return nil, 0, false
}

// remember 把属性下标追加到 hints，返回其位置。
func (idx *propertyIndex) remember(i int) int {
	for {
		cur := idx.hints.Load()
		for pos, v := range *cur {
			if v == i {
				return pos
			}
		}
		next := make([]int, len(*cur), len(*cur)+1)
		copy(next, *cur)
		next = append(next, i)
		if idx.hints.CompareAndSwap(cur, &next) {
			return len(next) - 1
		}
	}
}
