package stackjson

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/stackjson-go/pkg/util/viper"
)

// ConfigKey 是配置文件中 stackjson 段的键名。
const ConfigKey = "stackjson"

// FileConfig 是配置文件中可设置的选项，未出现的键保持默认值。
type FileConfig struct {
	BufferSize      int    `mapstructure:"buffer-size" json:"buffer-size"`
	MaxBufferSize   int    `mapstructure:"max-buffer-size" json:"max-buffer-size"`
	MaxDepth        int    `mapstructure:"max-depth" json:"max-depth"`
	FlushThreshold  int    `mapstructure:"flush-threshold" json:"flush-threshold"`
	Naming          string `mapstructure:"naming" json:"naming"`
	UnknownProperty string `mapstructure:"unknown-property" json:"unknown-property"`
	SkipNullOnRead  bool   `mapstructure:"skip-null-on-read" json:"skip-null-on-read"`
	SkipNullOnWrite bool   `mapstructure:"skip-null-on-write" json:"skip-null-on-write"`
	Materializer    string `mapstructure:"materializer" json:"materializer"`
}

func DefaultFileConfig() FileConfig {
	return FileConfig{
		BufferSize:      DefaultBufferSize,
		MaxBufferSize:   DefaultMaxBufferSize,
		MaxDepth:        DefaultMaxDepth,
		Naming:          IdentityNaming.String(),
		UnknownProperty: "error",
		Materializer:    MaterializerDefault.String(),
	}
}

// LoadFileConfig 从已加载的配置中读取 stackjson 段。
func LoadFileConfig(cfg *viper.Config) (FileConfig, error) {
	fc := DefaultFileConfig()
	if cfg == nil || !cfg.IsSet(ConfigKey) {
		return fc, nil
	}
	if err := cfg.UnmarshalKey(ConfigKey, &fc); err != nil {
		return fc, errors.Wrap(err, "unmarshal stackjson config")
	}
	return fc, nil
}

// Options 将文件配置转换为 Option 列表。
func (c FileConfig) Options() ([]Option, error) {
	naming, err := ParseNaming(c.Naming)
	if err != nil {
		return nil, err
	}
	unknown, err := ParseUnknownPropertyPolicy(c.UnknownProperty)
	if err != nil {
		return nil, err
	}
	materializer, err := ParseMaterializer(c.Materializer)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithBufferSize(c.BufferSize),
		WithMaxBufferSize(c.MaxBufferSize),
		WithMaxDepth(c.MaxDepth),
		WithFlushThreshold(c.FlushThreshold),
		WithNamingPolicy(naming),
		WithUnknownPropertyPolicy(unknown),
		WithSkipNullOnRead(c.SkipNullOnRead),
		WithSkipNullOnWrite(c.SkipNullOnWrite),
		WithMaterializer(materializer),
	}, nil
}
