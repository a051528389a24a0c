package clog

import (
	"strings"

	"github.com/ceyewan/stufflog/capture"
	"github.com/ceyewan/stufflog/stream"
	"github.com/ceyewan/stufflog/xerrors"
)

// TimeFormat 日志时间格式
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config 日志配置
//
// 支持的配置项：
//
//	AppName: 应用名，Named("") 时作为命名空间
//	Level: 日志级别 (debug|info|warn|error|fatal)
//	Format: 输出格式 (json|console)，console 为 slog 文本格式
//	Output: 输出目标 (stdout|stderr|文件路径)
//	Rotate: 文件输出的滚动策略，为 nil 时不滚动
//	AsyncConsole: 后台异步写出，Flush 时等待写完
//	EnableFromDebugEnv: 用 $DEBUG 启用命名空间，并把默认级别设为 debug
//	Capture: 错误追踪配置，为 nil 时不上报
//
// 示例：
//
//	cfg := &clog.Config{
//	    AppName: "billing",
//	    Level:   "info",
//	    Format:  "json",
//	    Capture: &capture.Config{DSN: os.Getenv("SENTRY_DSN")},
//	}
type Config struct {
	AppName     string `mapstructure:"app_name" json:"appName" yaml:"appName"`
	Environment string `mapstructure:"environment" json:"environment" yaml:"environment"`
	Release     string `mapstructure:"release" json:"release" yaml:"release"`

	Level      string         `mapstructure:"level" json:"level" yaml:"level"`
	Format     string         `mapstructure:"format" json:"format" yaml:"format"`
	Output     string         `mapstructure:"output" json:"output" yaml:"output"`
	Rotate     *stream.Rotate `mapstructure:"rotate" json:"rotate" yaml:"rotate"`
	AddSource  bool           `mapstructure:"add_source" json:"addSource" yaml:"addSource"`
	SourceRoot string         `mapstructure:"source_root" json:"sourceRoot" yaml:"sourceRoot"`

	AsyncConsole       bool `mapstructure:"async_console" json:"asyncConsole" yaml:"asyncConsole"`
	EnableFromDebugEnv bool `mapstructure:"enable_from_debug_env" json:"enableFromDebugEnv" yaml:"enableFromDebugEnv"`

	Capture *capture.Config `mapstructure:"capture" json:"capture" yaml:"capture"`
}

// NewDevDefaultConfig 开发环境默认配置：debug 级别，文本格式输出到标准输出
func NewDevDefaultConfig(appName string) *Config {
	return &Config{
		AppName:   appName,
		Level:     "debug",
		Format:    "console",
		Output:    "stdout",
		AddSource: true,
	}
}

// NewProdDefaultConfig 生产环境默认配置
func NewProdDefaultConfig(appName string) *Config {
	return &Config{
		AppName:      appName,
		Level:        "info",
		Format:       "json",
		Output:       "stdout",
		AsyncConsole: true,
	}
}

// validate 为空值设置默认值，并检查 Level 和 Format
func (c *Config) validate() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}

	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "json", "console":
	default:
		return xerrors.Configf("invalid format: %s, must be json or console", c.Format)
	}
	return nil
}

// captureConfig 返回补全了环境和版本的上报配置
func (c *Config) captureConfig() *capture.Config {
	if c.Capture == nil {
		return nil
	}
	cc := *c.Capture
	if cc.Environment == "" {
		cc.Environment = c.Environment
	}
	if cc.Release == "" {
		cc.Release = c.Release
	}
	return &cc
}
