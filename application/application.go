package application

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	zlog "github.com/lk2023060901/stackjson-go/pkg/log"
	"github.com/lk2023060901/stackjson-go/pkg/stackjson"
	"github.com/lk2023060901/stackjson-go/pkg/util/hardware"
	zviper "github.com/lk2023060901/stackjson-go/pkg/util/viper"
)

const (
	defaultConfigPath = "./config.yaml"

	EnvConfigPath = "STACKJSON_CONFIG_FILE_PATH"
	envLogPrefix  = "STACKJSON_LOG_"
)

// Application is the runtime container for stackjson tools.
// It owns configuration and manages common dependencies.
type Application struct {
	configPath string
	cfg        *zviper.Config
	jsonCfg    stackjson.FileConfig
	loggers    map[string]*zlog.MLogger
}

// Option configures an Application.
type Option func(*Application)

// WithConfigPath sets the config file path, taking priority over the env var.
func WithConfigPath(path string) Option {
	return func(a *Application) {
		a.configPath = path
	}
}

// New creates a new Application instance.
func New(opts ...Option) *Application {
	a := &Application{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run loads configuration and initializes loggers.
// The config file is resolved using the following priority:
//  1. Default: ./config.yaml (optional, skipped when absent)
//  2. Env: STACKJSON_CONFIG_FILE_PATH
//  3. WithConfigPath / --config <path>
func (a *Application) Run() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}

	jsonCfg, err := stackjson.LoadFileConfig(cfg)
	if err != nil {
		return err
	}
	a.jsonCfg = jsonCfg
	a.checkMemory()
	return nil
}

// Config returns the loaded configuration.
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// FileConfig returns the stackjson section of the configuration.
func (a *Application) FileConfig() stackjson.FileConfig {
	return a.jsonCfg
}

// SerializerOptions converts the stackjson section into serializer options.
func (a *Application) SerializerOptions() ([]stackjson.Option, error) {
	return a.jsonCfg.Options()
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

// loadConfig resolves config file path and loads it via viper wrapper.
func (a *Application) loadConfig() (*zviper.Config, error) {
	configPath, explicit := defaultConfigPath, false
	if envPath := strings.TrimSpace(os.Getenv(EnvConfigPath)); envPath != "" {
		configPath, explicit = envPath, true
	}
	if a.configPath != "" {
		configPath, explicit = a.configPath, true
	}

	cfg := zviper.New()
	if !explicit {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
	}
	if err := cfg.LoadFile(configPath); err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %q", configPath)
	}
	return cfg, nil
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	return a.initModuleLoggersFromConfig()
}

// initGlobalLoggerFromEnv configures the process-wide logger based on STACKJSON_LOG_* env vars.
//
//   - STACKJSON_LOG_ENABLE: "1"/"true" to enable outputs; others treated as disabled.
//   - STACKJSON_LOG_LEVEL: log level (default "info").
//   - STACKJSON_LOG_STDOUT: whether to log to stdout (default false).
//   - STACKJSON_LOG_FILE_DIR: log directory.
//   - STACKJSON_LOG_FILE: log file name (empty means no file).
//   - STACKJSON_LOG_FORMAT: log format ("text" or "json", default "text").
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool(envLogPrefix+"ENABLE", false)

	cfg := &zlog.Config{
		Level:               getenvDefault(envLogPrefix+"LEVEL", "info"),
		Format:              getenvDefault(envLogPrefix+"FORMAT", "text"),
		Stdout:              getenvBool(envLogPrefix+"STDOUT", false),
		DisableErrorVerbose: true,
		File: zlog.FileLogConfig{
			RootPath: getenvDefault(envLogPrefix+"FILE_DIR", ""),
			Filename: getenvDefault(envLogPrefix+"FILE", ""),
		},
	}

	// When not enabled, direct all outputs to a discarded sink.
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "init global logger from env")
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig creates named loggers from the "logging" section.
//
// Example:
//
//	logging:
//	  cli:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: cli.log
func (a *Application) initModuleLoggersFromConfig() error {
	if a.cfg == nil || !a.cfg.IsSet("logging") {
		return nil
	}

	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey("logging", &raw); err != nil {
		return errors.Wrap(err, "unmarshal logging config")
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return errors.Wrapf(err, "init module logger %q", name)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger.With(zlog.FieldModule(name))}
	}
	return nil
}

// checkMemory warns when the configured buffer limit is large compared to host memory.
func (a *Application) checkMemory() {
	total := hardware.GetMemoryCount()
	limit := uint64(a.jsonCfg.MaxBufferSize)
	if total > 0 && limit > total/4 {
		zlog.Warn("max buffer size exceeds a quarter of host memory",
			zap.Uint64("maxBufferSize", limit),
			zap.Uint64("memory", total))
	}
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
