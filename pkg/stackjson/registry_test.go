package stackjson

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

func TestRegistry_ConcurrentGetOrCreate(t *testing.T) {
	r := newRegistry(defaultConfig(), "test")
	typ := reflect.TypeOf(derived{})

	const n = 32
	infos := make([]*ClassInfo, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := r.GetOrCreate(typ)
			assert.NoError(t, err)
			infos[i] = info
		}(i)
	}
	wg.Wait()
	for _, info := range infos {
		assert.Same(t, infos[0], info)
	}

	meta, ok := r.load(reflect.TypeOf(Meta{}))
	require.True(t, ok)
	var metaProp *PropertyInfo
	for _, p := range infos[0].Properties {
		if p.Name == "Meta" {
			metaProp = p
		}
	}
	require.NotNil(t, metaProp)
	assert.Same(t, meta, metaProp.Info)
}

func TestRegistry_CyclicPublish(t *testing.T) {
	r := newRegistry(defaultConfig(), "test")
	info, err := r.GetOrCreate(reflect.TypeOf(node{}))
	require.NoError(t, err)
	next, _, ok := info.Lookup([]byte("next"), 0)
	require.True(t, ok)
	assert.Same(t, info, next.Info)
	assert.True(t, next.Pointer)
}

func TestRegistry_Failure(t *testing.T) {
	r := newRegistry(defaultConfig(), "test")
	type bad struct {
		Ok  int
		Out chan int
	}
	_, err := r.GetOrCreate(reflect.TypeOf(bad{}))
	assert.ErrorIs(t, err, merr.ErrUnsupportedType)
	_, ok := r.load(reflect.TypeOf(bad{}))
	assert.False(t, ok)

	_, err = r.GetOrCreate(reflect.TypeOf(&item{}))
	assert.ErrorIs(t, err, merr.ErrUnsupportedType)
}

func TestRegistry_Scopes(t *testing.T) {
	a := MustNew()
	b := MustNew(WithBufferSize(128), WithUnknownPropertyPolicy(UnknownPropertyIgnore))
	assert.Same(t, a.Registry(), b.Registry())

	c := MustNew(WithNamingPolicy(CamelCaseNaming))
	assert.NotSame(t, a.Registry(), c.Registry())
	assert.Same(t, c.Registry(), MustNew(WithNamingPolicy(CamelCaseNaming)).Registry())

	d := MustNew(WithConverter(TimeConverter("2006-01-02")))
	e := MustNew(WithConverter(TimeConverter("2006-01-02")))
	assert.NotSame(t, d.Registry(), e.Registry())
	assert.Contains(t, d.Registry().Scope(), "private/")

	ia := classInfo(t, a, camel{})
	ic := classInfo(t, c, camel{})
	assert.NotEqual(t, propertyNames(ia), propertyNames(ic))
}

func TestRegistry_Preload(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(defaultConfig(), "test")
	require.NoError(t, r.Preload(ctx))
	require.NoError(t, r.Preload(ctx, reflect.TypeOf(item{}), reflect.TypeOf(&grid{}), reflect.TypeOf([]point{})))
	for _, v := range []any{item{}, grid{}, point{}, []point{}} {
		_, ok := r.load(reflect.TypeOf(v))
		assert.True(t, ok, "%T", v)
	}

	err := r.Preload(ctx, reflect.TypeOf(map[string]int{}), reflect.TypeOf(item{}), reflect.TypeOf(func() {}))
	assert.ErrorIs(t, err, merr.ErrUnsupportedType)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, r.Preload(cancelled, reflect.TypeOf(point{})), context.Canceled)
}
