package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/stufflog/stream"
	"github.com/ceyewan/stufflog/xerrors"
)

// watchBuffer 每个监听通道的缓冲大小，满了之后新事件被丢弃
const watchBuffer = 10

// loader 基于 viper 的 Loader 实现
type loader struct {
	v       *viper.Viper
	cfg     *Config
	console *stream.Console

	mu        sync.Mutex
	watches   map[string][]chan Event
	oldValues map[string]any
	watching  bool
}

func newLoader(cfg *Config) *loader {
	return &loader{
		v:         viper.New(),
		cfg:       cfg,
		console:   stream.NewConsole(os.Stderr),
		watches:   make(map[string][]chan Event),
		oldValues: make(map[string]any),
	}
}

// Load 按优先级从所有来源加载配置，并开始监听配置文件
func (l *loader) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.v.SetConfigName(l.cfg.Name)
	l.v.SetConfigType(l.cfg.FileType)
	for _, path := range l.cfg.Paths {
		l.v.AddConfigPath(path)
	}

	// 环境变量优先级最高，log.level 对应 <PREFIX>_LOG_LEVEL
	l.v.SetEnvPrefix(l.cfg.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.loadDotEnv(); err != nil {
		l.console.Warn("config: failed to load .env file:", err)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return wrapLoadError(err, l.cfg.Name)
		}
		l.console.Warn("config: no configuration file", l.cfg.Name, "found in", l.cfg.Paths)
	}

	if err := l.loadEnvironmentConfig(); err != nil {
		return err
	}
	if err := l.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	for key := range l.watches {
		l.oldValues[key] = l.v.Get(key)
	}
	start := !l.watching && l.v.ConfigFileUsed() != ""
	l.watching = l.watching || start
	l.mu.Unlock()

	if start {
		l.v.OnConfigChange(func(e fsnotify.Event) {
			if err := l.loadEnvironmentConfig(); err != nil {
				l.console.Warn("config: reload environment config:", err)
			}
			l.notifyWatches(e)
		})
		l.v.WatchConfig()
	}
	return nil
}

// loadDotEnv 从工作目录和搜索路径加载 .env，已存在的环境变量不会被覆盖
func (l *loader) loadDotEnv() error {
	candidates := []string{".env"}
	for _, path := range l.cfg.Paths {
		candidates = append(candidates, filepath.Join(path, ".env"))
	}

	var errs []error
	for _, file := range candidates {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			errs = append(errs, xerrors.Wrapf(err, "load %s", file))
		}
	}
	return xerrors.Combine(errs...)
}

// loadEnvironmentConfig 合并 <name>.<$PREFIX_ENV> 配置文件
func (l *loader) loadEnvironmentConfig() error {
	env := os.Getenv(l.cfg.EnvPrefix + "_ENV")
	if env == "" {
		return nil
	}

	envConfigName := fmt.Sprintf("%s.%s", l.cfg.Name, env)
	l.v.SetConfigName(envConfigName)
	defer l.v.SetConfigName(l.cfg.Name)

	if err := l.v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return wrapLoadError(err, envConfigName)
		}
	}
	return nil
}

func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

func (l *loader) Unmarshal(v any) error {
	return l.v.Unmarshal(v)
}

func (l *loader) UnmarshalKey(key string, v any) error {
	return l.v.UnmarshalKey(key, v)
}

// Watch 订阅 key 的变更，ctx 取消后通道关闭
func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if key == "" {
		return nil, xerrors.Config("watch key is required")
	}

	l.mu.Lock()
	ch := make(chan Event, watchBuffer)
	l.watches[key] = append(l.watches[key], ch)
	if _, ok := l.oldValues[key]; !ok {
		l.oldValues[key] = l.v.Get(key)
	}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.removeWatch(key, ch)
	}()
	return ch, nil
}

// removeWatch 移除并关闭监听通道，发送与关闭都在锁内完成
func (l *loader) removeWatch(key string, ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	chans := slices.DeleteFunc(l.watches[key], func(c chan Event) bool { return c == ch })
	if len(chans) == 0 {
		delete(l.watches, key)
		delete(l.oldValues, key)
	} else {
		l.watches[key] = chans
	}
	close(ch)
}

// Validate 配置不能为空
func (l *loader) Validate() error {
	if len(l.v.AllSettings()) == 0 {
		return xerrors.Wrap(ErrValidationFailed, "configuration is empty")
	}
	return nil
}

// notifyWatches 比较每个被监听 key 的新旧值，变化时通知
func (l *loader) notifyWatches(_ fsnotify.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, channels := range l.watches {
		newValue := l.v.Get(key)
		oldValue := l.oldValues[key]
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}
		l.oldValues[key] = newValue

		event := Event{Key: key, Value: newValue, OldValue: oldValue, Source: "file", Timestamp: now}
		for _, ch := range channels {
			select {
			case ch <- event:
			default:
				l.console.Warn("config: watch channel for", key, "is full, event dropped")
			}
		}
	}
}
