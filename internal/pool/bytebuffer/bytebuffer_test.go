package bytebuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndex(t *testing.T) {
	assert.Equal(t, 0, index(0))
	assert.Equal(t, 0, index(minSize))
	assert.Equal(t, 1, index(minSize+1))
	assert.Equal(t, 2, index(4*minSize))
	assert.Equal(t, steps-1, index(1<<40))
}

func TestPool_GetPut(t *testing.T) {
	var p Pool
	b := p.Get()
	assert.Zero(t, b.Len())
	copy(b.Grow(100), "hello")
	assert.Equal(t, 100, b.Len())
	assert.Equal(t, "hello", string(b.B[:5]))
	p.Put(b)

	b = Get()
	assert.Zero(t, b.Len())
	Put(b)
}

func TestPool_Calibrate(t *testing.T) {
	var p Pool
	for i := 0; i < calibrateCallsThreshold+1; i++ {
		b := p.Get()
		b.Grow(1000)
		p.Put(b)
	}
	assert.Equal(t, uint64(1024), p.defaultSize)
	assert.GreaterOrEqual(t, p.maxSize, uint64(1024))

	b := p.Get()
	b.Grow(1 << 20)
	p.Put(b)
	assert.NotEqual(t, 1<<20, cap(p.Get().B))
}
