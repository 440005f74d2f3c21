package stackjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(names ...string) (*propertyIndex, []*PropertyInfo) {
	props := make([]*PropertyInfo, 0, len(names))
	for _, n := range names {
		props = append(props, &PropertyInfo{Name: n, NameBytes: []byte(n)})
	}
	return newPropertyIndex(props), props
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, uint64(0), fingerprint(nil))
	assert.Equal(t, uint64('a')|uint64('b')<<8|2<<48, fingerprint([]byte("ab")))
	// 只有前 6 个字节参与，长度区分同前缀的名称
	assert.NotEqual(t, fingerprint([]byte("abcdefX")), fingerprint([]byte("abcdefXY")))
	assert.Equal(t, fingerprint([]byte("abcdefX")), fingerprint([]byte("abcdefY")))
	long := make([]byte, 300)
	assert.Equal(t, uint64(255), fingerprint(long)>>48)
}

func TestPropertyIndex_Lookup(t *testing.T) {
	idx, props := newTestIndex("id", "name", "abcdefX", "abcdefY")

	p, pos, ok := idx.lookup([]byte("abcdefY"), 0)
	require.True(t, ok)
	assert.Same(t, props[3], p)
	assert.Equal(t, 0, pos)

	_, _, ok = idx.lookup([]byte("abcdefZ"), 0)
	assert.False(t, ok)
	_, _, ok = idx.lookup([]byte("Id"), 0)
	assert.False(t, ok)

	p, pos, ok = idx.lookup([]byte("id"), 1)
	require.True(t, ok)
	assert.Same(t, props[0], p)
	assert.Equal(t, 1, pos)

	// 已缓存的属性从 hint 附近命中，不会重复追加
	p, pos, ok = idx.lookup([]byte("abcdefY"), 5)
	require.True(t, ok)
	assert.Same(t, props[3], p)
	assert.Equal(t, 0, pos)
	assert.Len(t, *idx.hints.Load(), 2)
}

func TestPropertyIndex_HintsBounded(t *testing.T) {
	idx, _ := newTestIndex("a", "b", "c")
	for i := 0; i < 10; i++ {
		for _, n := range []string{"c", "a", "b", "a"} {
			_, _, ok := idx.lookup([]byte(n), i)
			require.True(t, ok)
		}
	}
	assert.Equal(t, []int{2, 0, 1}, *idx.hints.Load())
}

func TestPropertyIndex_SequentialHints(t *testing.T) {
	idx, props := newTestIndex("a", "b", "c", "d")
	hint := 0
	for round := 0; round < 2; round++ {
		hint = 0
		for i, n := range []string{"a", "b", "c", "d"} {
			p, pos, ok := idx.lookup([]byte(n), hint)
			require.True(t, ok)
			assert.Same(t, props[i], p)
			assert.Equal(t, i, pos)
			hint = pos + 1
		}
	}
	assert.Equal(t, 4, hint)
}
