package serializer

import (
	jsoniter "github.com/json-iterator/go"
)

var iterAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONIterSerializer 使用 json-iterator 的标准库兼容配置实现 JSON 编解码。
type JSONIterSerializer struct{}

// 编译期断言：确保 JSONIterSerializer 实现了 Serializer 接口。
var _ Serializer = JSONIterSerializer{}

func (JSONIterSerializer) Name() string {
	return NameJSONIter
}

func (JSONIterSerializer) Marshal(v any) ([]byte, error) {
	return iterAPI.Marshal(v)
}

func (JSONIterSerializer) Unmarshal(data []byte, v any) error {
	return iterAPI.Unmarshal(data, v)
}
