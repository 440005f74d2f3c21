package stackjson

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/stackjson-go/pkg/util/conc"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

func TestDecodeBatch(t *testing.T) {
	ctx := context.Background()
	docs := make([][]byte, 0, 50)
	for i := 0; i < 50; i++ {
		docs = append(docs, []byte(fmt.Sprintf(`{"id":%d,"tags":["t%d"]}`, i, i)))
	}

	pool := conc.NewPool[item](4)
	defer pool.Release()
	for _, p := range []*conc.Pool[item]{pool, nil} {
		got, err := DecodeBatch[item](ctx, nil, p, docs)
		require.NoError(t, err)
		require.Len(t, got, len(docs))
		for i, v := range got {
			assert.Equal(t, i, v.ID)
			assert.Equal(t, []string{fmt.Sprintf("t%d", i)}, v.Tags)
		}
	}

	got, err := DecodeBatch[item](ctx, nil, pool, nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeBatch_Errors(t *testing.T) {
	ctx := context.Background()
	docs := [][]byte{[]byte(`{"id":1}`), []byte(`{"id":"x"}`), []byte(`{"id":3}`)}
	_, err := DecodeBatch[item](ctx, nil, nil, docs)
	assert.ErrorIs(t, err, merr.ErrTypeMismatch)
	assert.ErrorContains(t, err, "document 1")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = DecodeBatch[item](cancelled, nil, nil, docs)
	assert.ErrorIs(t, err, context.Canceled)
}
