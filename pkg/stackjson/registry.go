package stackjson

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/lk2023060901/stackjson-go/pkg/log"
	"github.com/lk2023060901/stackjson-go/pkg/metrics"
	"github.com/lk2023060901/stackjson-go/pkg/util/conc"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// Registry 缓存类型描述。
//
// 读取是无锁的；构建在注册表级别的互斥锁内进行，一次构建涉及的全部描述
// 在构建成功后统一发布，并发调用方只会看到同一个结果。
type Registry struct {
	cfg   config
	scope string
	infos sync.Map // reflect.Type => *ClassInfo
	mu    sync.Mutex
}

func newRegistry(cfg config, scope string) *Registry {
	return &Registry{
		cfg:   cfg,
		scope: scope,
	}
}

// Scope 返回注册表的作用域名称，用于日志与诊断。
func (r *Registry) Scope() string {
	return r.scope
}

func (r *Registry) load(t reflect.Type) (*ClassInfo, bool) {
	v, ok := r.infos.Load(t)
	if !ok {
		return nil, false
	}
	return v.(*ClassInfo), true
}

// GetOrCreate 返回 t 的类型描述，必要时构建并发布。t 不能是指针类型。
func (r *Registry) GetOrCreate(t reflect.Type) (*ClassInfo, error) {
	if info, ok := r.load(t); ok {
		metrics.RegistryLookups.WithLabelValues(metrics.HitLabel).Inc()
		return info, nil
	}
	metrics.RegistryLookups.WithLabelValues(metrics.MissLabel).Inc()
	if t.Kind() == reflect.Pointer {
		return nil, merr.WrapErrUnsupportedType(t.String(), "descriptor of pointer type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.load(t); ok {
		return info, nil
	}

	b := newBuilder(r)
	info, err := b.build(t)
	if err != nil {
		log.Debug("build class info failed", log.FieldType(t), zap.String("scope", r.scope), zap.Error(err))
		return nil, err
	}
	for _, built := range b.order {
		r.infos.Store(built.Type, built)
	}
	metrics.ClassInfoBuilt.Add(float64(len(b.order)))
	log.Debug("class info built", log.FieldType(t), zap.String("scope", r.scope), zap.Int("published", len(b.order)))
	return info, nil
}

// Preload 在协程池上并发预热一组类型的描述，返回所有失败的合并错误。
func (r *Registry) Preload(ctx context.Context, types ...reflect.Type) error {
	if len(types) == 0 {
		return nil
	}
	pool := conc.NewPool[*ClassInfo](len(types))
	defer pool.Release()

	futures := make([]*conc.Future[*ClassInfo], 0, len(types))
	for _, t := range types {
		if err := ctx.Err(); err != nil {
			return err
		}
		futures = append(futures, pool.Submit(func() (*ClassInfo, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for t.Kind() == reflect.Pointer {
				t = t.Elem()
			}
			return r.GetOrCreate(t)
		}))
	}

	var errs []error
	for _, f := range futures {
		if err := f.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return merr.Combine(errs...)
}

type scopeKey struct {
	naming          namingKind
	skipNullOnRead  bool
	skipNullOnWrite bool
	materializer    MaterializerKind
}

func (k scopeKey) String() string {
	return fmt.Sprintf("global/naming=%d/null-read=%t/null-write=%t/materializer=%s",
		k.naming, k.skipNullOnRead, k.skipNullOnWrite, k.materializer)
}

var (
	globalScopes sync.Map // scopeKey => *Registry
	scopeGroup   singleflight.Group
)

// registryFor 为没有自定义策略的配置返回共享的全局注册表，否则创建私有注册表。
func registryFor(cfg *config) *Registry {
	if cfg.customized() {
		return newRegistry(*cfg, fmt.Sprintf("private/%p", cfg))
	}

	key := scopeKey{
		naming:          cfg.naming.kind,
		skipNullOnRead:  cfg.skipNullOnRead,
		skipNullOnWrite: cfg.skipNullOnWrite,
		materializer:    cfg.materializer,
	}
	if r, ok := globalScopes.Load(key); ok {
		return r.(*Registry)
	}
	v, _, _ := scopeGroup.Do(key.String(), func() (any, error) {
		if r, ok := globalScopes.Load(key); ok {
			return r, nil
		}
		shared := defaultConfig()
		shared.naming = cfg.naming
		shared.skipNullOnRead = cfg.skipNullOnRead
		shared.skipNullOnWrite = cfg.skipNullOnWrite
		shared.materializer = cfg.materializer
		r := newRegistry(shared, key.String())
		globalScopes.Store(key, r)
		return r, nil
	})
	return v.(*Registry)
}
