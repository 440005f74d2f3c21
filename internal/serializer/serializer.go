package serializer

import (
	"github.com/lk2023060901/stackjson-go/pkg/stackjson"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// Serializer 抽象了“对象 <-> 字节流”的序列化能力。
//
// 调用方通过接口注入具体实现，codec 与基准测试据此在不同的 JSON 实现之间切换。
type Serializer interface {
	// Name 返回实现名称，用于日志与基准输出。
	Name() string

	// Marshal 将任意对象编码为字节序列。
	Marshal(v any) ([]byte, error)

	// Unmarshal 将字节序列解码到目标对象，v 通常为指针类型。
	Unmarshal(data []byte, v any) error
}

const (
	NameStackJSON = "stackjson"
	NameSonic     = "sonic"
	NameJSONIter  = "jsoniter"
)

// Names 返回全部可用实现的名称。
func Names() []string {
	return []string{NameStackJSON, NameSonic, NameJSONIter}
}

// ByName 按名称创建实现，opts 仅对 stackjson 生效。
func ByName(name string, opts ...stackjson.Option) (Serializer, error) {
	switch name {
	case NameStackJSON:
		return NewStackJSON(opts...)
	case NameSonic:
		return SonicSerializer{}, nil
	case NameJSONIter:
		return JSONIterSerializer{}, nil
	default:
		return nil, merr.WrapErrParameterInvalidMsg("unknown serializer %q", name)
	}
}
