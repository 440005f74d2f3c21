package stackjson

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/stackjson-go/pkg/util/conc"
)

// DecodeBatch 在协程池上并行解析一组互相独立的文档，结果与 docs 一一对应。
// pool 为 nil 时创建一个临时协程池。任一文档失败时返回第一个失败文档的错误。
func DecodeBatch[T any](ctx context.Context, s *Serializer, pool *conc.Pool[T], docs [][]byte) ([]T, error) {
	s = orDefault(s)
	if pool == nil {
		pool = conc.NewDefaultPool[T]()
		defer pool.Release()
	}

	futures := make([]*conc.Future[T], 0, len(docs))
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		futures = append(futures, pool.Submit(func() (T, error) {
			if err := ctx.Err(); err != nil {
				var zero T
				return zero, err
			}
			v, err := Unmarshal[T](s, doc)
			if err != nil {
				return v, errors.Wrapf(err, "document %d", i)
			}
			return v, nil
		}))
	}
	if err := conc.AwaitAll(futures...); err != nil {
		return nil, err
	}

	out := make([]T, len(futures))
	for i, f := range futures {
		out[i] = f.Value()
	}
	return out, nil
}
