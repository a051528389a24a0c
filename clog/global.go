package clog

import (
	"os"
	"slices"
	"sync"

	"github.com/ceyewan/stufflog/nsfilter"
	"github.com/ceyewan/stufflog/xerrors"
)

// DebugEnv 启用命名空间的环境变量
const DebugEnv = "DEBUG"

// 进程级状态：Init 之前为未初始化，Init 成功后重复调用被忽略，Reset 回到未初始化。
var (
	globalMu   sync.Mutex
	globalCore *core
)

// Init 初始化进程级日志配置，只有第一次成功的调用生效。
//
// EnableFromDebugEnv 为 true 且 $DEBUG 非空时，用它启用命名空间，未设置 Level 时
// 默认级别为 debug。Capture 非空时创建上报 Hub，DSN 为空返回配置错误且保持未初始化。
func Init(cfg *Config, opts ...Option) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalCore != nil {
		return nil
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg = cloneConfig(cfg)

	o := applyOptions(opts...)
	if cfg.EnableFromDebugEnv {
		if debug := os.Getenv(DebugEnv); debug != "" {
			if err := o.registry.EnableFromString(debug); err != nil {
				return err
			}
			if cfg.Level == "" {
				cfg.Level = "debug"
			}
		}
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	c, err := newCore(cfg, o)
	if err != nil {
		return err
	}
	globalCore = c
	return nil
}

// Initialized 报告 Init 是否已成功执行
func Initialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalCore != nil
}

// Reset 释放进程级资源并回到未初始化状态，主要用于测试。
// 命名空间注册表的内容不受影响，需要时调用 DisableAll。
func Reset() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalCore == nil {
		return nil
	}
	err := globalCore.close()
	globalCore = nil
	return err
}

// Named 为命名空间 name 创建 Logger，name 为空时使用 Config.AppName。
//
// 两者都为空返回配置错误。Init 之前调用时使用默认配置，不上报。
func Named(name string, opts ...Option) (Logger, error) {
	c, err := currentCore()
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = c.config.AppName
	}
	if name == "" {
		return nil, xerrors.Config(`no namespace or "AppName" provided`)
	}

	o := *c.options
	o.namespaceParts = []string{name}
	o.contextFields = slices.Clip(o.contextFields)
	for _, opt := range opts {
		opt(&o)
	}
	return c.logger(&o, nil), nil
}

// MustNamed 与 Named 相同，出错时 panic
func MustNamed(name string, opts ...Option) Logger {
	return xerrors.Must(Named(name, opts...))
}

// Flush 刷新进程级输出和上报
func Flush() {
	globalMu.Lock()
	c := globalCore
	globalMu.Unlock()
	if c != nil {
		c.flush()
	}
}

// Enable 启用命名空间
func Enable(namespaces ...string) { registry().Enable(namespaces...) }

// Disable 停用命名空间
func Disable(namespaces ...string) { registry().Disable(namespaces...) }

// DisableAll 清空命名空间过滤，所有日志重新可见
func DisableAll() { registry().Reset() }

// EnableFromString 从形如 "app:db,app:http*" 的字符串启用命名空间
func EnableFromString(s string) error { return registry().EnableFromString(s) }

// IsEnabledFor 判断命名空间是否会输出
func IsEnabledFor(namespace string) bool { return registry().IsEnabledFor(namespace) }

// Registry 返回进程级 Logger 使用的注册表
func Registry() *nsfilter.Registry { return registry() }

func registry() *nsfilter.Registry {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCore != nil {
		return globalCore.registry
	}
	return nsfilter.Default()
}

// currentCore 返回进程级 core，未初始化时创建一个不保存的默认 core
func currentCore() (*core, error) {
	globalMu.Lock()
	c := globalCore
	globalMu.Unlock()
	if c != nil {
		return c, nil
	}

	cfg := &Config{}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newCore(cfg, applyOptions())
}

func cloneConfig(cfg *Config) *Config {
	c := *cfg
	if cfg.Capture != nil {
		cc := *cfg.Capture
		c.Capture = &cc
	}
	return &c
}
