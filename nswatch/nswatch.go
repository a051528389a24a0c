// Package nswatch 把外部配置源中的命名空间开关字符串同步到 nsfilter.Registry。
//
// 支持两类来源：
//   - config.Loader：监听配置文件中的某个 key，例如 log.enable
//   - etcd：监听单个 key，PUT 时重新应用，DELETE 时恢复为不过滤
//
// 每次变更都是整体替换：先清空注册表，再启用新字符串中的所有模式。
package nswatch

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/ceyewan/stufflog/clog"
	"github.com/ceyewan/stufflog/config"
	"github.com/ceyewan/stufflog/nsfilter"
	"github.com/ceyewan/stufflog/xerrors"
)

// Apply 用 s 整体替换注册表中的模式，空白字符串只做清空
func Apply(reg *nsfilter.Registry, s string) error {
	if reg == nil {
		return xerrors.Config("registry is required")
	}
	reg.Reset()
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return reg.EnableFromString(s)
}

// Option 配置监听行为
type Option func(*options)

type options struct {
	retryInterval time.Duration
}

// WithRetryInterval 设置 etcd watch 断开后的重连间隔，默认 1s
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryInterval = d
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{retryInterval: time.Second}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WatchLoader 先应用 key 的当前值，之后每次配置变更都重新应用。
// ctx 取消后停止监听。
func WatchLoader(ctx context.Context, loader config.Loader, key string, reg *nsfilter.Registry, logger clog.Logger) error {
	if loader == nil || reg == nil {
		return xerrors.Config("loader and registry are required")
	}
	if logger == nil {
		logger = clog.Discard()
	}

	if err := applyValue(reg, loader.Get(key)); err != nil {
		return xerrors.Wrapf(err, "apply %s", key)
	}

	ch, err := loader.Watch(ctx, key)
	if err != nil {
		return err
	}

	go func() {
		for event := range ch {
			if err := applyValue(reg, event.Value); err != nil {
				logger.Warn("failed to apply namespace patterns",
					clog.String("key", key),
					clog.String("source", event.Source),
					clog.Error(err))
				continue
			}
			logger.Info("namespace patterns updated",
				clog.String("key", key),
				clog.String("source", event.Source),
				clog.Any("patterns", reg.Patterns()))
		}
	}()
	return nil
}

// applyValue 接受字符串或字符串列表形式的配置值
func applyValue(reg *nsfilter.Registry, v any) error {
	switch val := v.(type) {
	case nil:
		return Apply(reg, "")
	case []any, []string:
		parts, err := cast.ToStringSliceE(val)
		if err != nil {
			return xerrors.Configf("invalid namespace list: %v", err)
		}
		return Apply(reg, strings.Join(parts, ","))
	default:
		s, err := cast.ToStringE(val)
		if err != nil {
			return xerrors.Configf("invalid namespace string: %v", err)
		}
		return Apply(reg, s)
	}
}
