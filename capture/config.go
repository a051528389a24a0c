package capture

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/ceyewan/stufflog/xerrors"
)

// DefaultTopic 消息队列后端的默认主题
const DefaultTopic = "stufflog.faults"

// Config 故障上报配置。
//
// DSN 决定后端类型：
//
//	https://<key>@sentry.example.com/42   Sentry
//	nats://127.0.0.1:4222/faults          NATS 主题
//	redis://127.0.0.1:6379/0              Redis Stream（主题取自 Options["topic"]）
//	kafka://k1:9092,k2:9092/faults        Kafka 主题
//	console://                            仅写诊断输出，用于本地开发
//
// Options 是后端相关的开放配置，例如 Sentry 的 debug、sample_rate、server_name，
// 消息队列的 topic、codec（json|msgpack）、client_id。
type Config struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment" json:"environment"`
	Release     string `mapstructure:"release" yaml:"release" json:"release"`

	// WarnOnNonError 为 nil 时默认为 true
	WarnOnNonError *bool `mapstructure:"warn_on_non_error" yaml:"warn_on_non_error" json:"warn_on_non_error"`

	// RateLimit 每秒允许提交的事件数，0 表示不限制
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	Burst     int     `mapstructure:"burst" yaml:"burst" json:"burst"`

	Options map[string]any `mapstructure:"options" yaml:"options" json:"options"`
}

// validate 校验并设置默认值
func (c *Config) validate() error {
	c.DSN = strings.TrimSpace(c.DSN)
	if c.DSN == "" {
		return xerrors.Config("no capture DSN provided")
	}
	if c.RateLimit < 0 {
		return xerrors.Configf("invalid rate limit %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.Burst <= 0 {
		c.Burst = max(1, int(c.RateLimit))
	}
	return nil
}

func (c *Config) warnOnNonError() bool {
	return c.WarnOnNonError == nil || *c.WarnOnNonError
}

func (c *Config) option(key string) any {
	if c.Options == nil {
		return nil
	}
	return c.Options[key]
}

func (c *Config) optionString(key string) string {
	return cast.ToString(c.option(key))
}

func (c *Config) optionBool(key string) bool {
	return cast.ToBool(c.option(key))
}

func (c *Config) optionFloat(key string) float64 {
	return cast.ToFloat64(c.option(key))
}

func (c *Config) optionStrings(key string) []string {
	switch v := c.option(key).(type) {
	case nil:
		return nil
	case string:
		return splitList(v)
	default:
		return cast.ToStringSlice(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
