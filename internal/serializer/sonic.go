package serializer

import (
	"github.com/bytedance/sonic"
)

// SonicSerializer 使用 bytedance/sonic 的标准库兼容配置实现 JSON 编解码。
type SonicSerializer struct{}

// 编译期断言：确保 SonicSerializer 实现了 Serializer 接口。
var _ Serializer = SonicSerializer{}

func (SonicSerializer) Name() string {
	return NameSonic
}

func (SonicSerializer) Marshal(v any) ([]byte, error) {
	return sonic.ConfigStd.Marshal(v)
}

func (SonicSerializer) Unmarshal(data []byte, v any) error {
	return sonic.ConfigStd.Unmarshal(data, v)
}
