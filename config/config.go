package config

import (
	"context"
	"strings"
)

// DefaultEnvPrefix 环境变量默认前缀，例如 STUFFLOG_LOG_LEVEL 覆盖 log.level
const DefaultEnvPrefix = "STUFFLOG"

// Config 加载器配置
type Config struct {
	Name      string   // 配置文件名称（不含扩展名），默认 "config"
	Paths     []string // 配置文件搜索路径，默认 [".", "./config"]
	FileType  string   // 配置文件类型 (yaml, json)，默认 yaml
	EnvPrefix string   // 环境变量前缀，默认 "STUFFLOG"
}

// Option 修改加载器配置
type Option func(*Config)

// WithConfigName 设置配置文件名称（不带扩展名）
func WithConfigName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithConfigPath 追加配置文件搜索路径
func WithConfigPath(path string) Option {
	return func(c *Config) {
		c.Paths = append(c.defaultPaths(), path)
	}
}

// WithConfigPaths 设置配置文件搜索路径（覆盖默认值）
func WithConfigPaths(paths ...string) Option {
	return func(c *Config) {
		c.Paths = paths
	}
}

// WithConfigType 设置配置文件类型
func WithConfigType(typ string) Option {
	return func(c *Config) {
		c.FileType = typ
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.EnvPrefix = prefix
	}
}

func (c *Config) defaultPaths() []string {
	if c.Paths == nil {
		return []string{".", "./config"}
	}
	return c.Paths
}

// validate 设置默认值
func (c *Config) validate() error {
	if c.Name == "" {
		c.Name = "config"
	}
	c.Paths = c.defaultPaths()
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = DefaultEnvPrefix
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
	return nil
}

// New 创建配置加载器，cfg 为 nil 时使用默认配置，opts 在 cfg 之后应用。
func New(cfg *Config, opts ...Option) (Loader, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	for _, opt := range opts {
		opt(&c)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return newLoader(&c), nil
}

// MustLoad 创建并加载配置，失败时 panic。仅用于程序启动阶段。
func MustLoad(opts ...Option) Loader {
	l, err := New(nil, opts...)
	if err != nil {
		panic(err)
	}
	if err := l.Load(context.Background()); err != nil {
		panic(err)
	}
	return l
}
