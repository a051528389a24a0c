package clog

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// newSlogHandler 创建写入 w 的 slog.Handler，级别由共享的 levelVar 控制。
//
// json 格式的每行输出是一个 JSON 对象，拦截器会解析并补上命名空间；
// console 格式按原样透传。
func newSlogHandler(config *Config, w io.Writer, levelVar *slog.LevelVar) slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       levelVar,
		ReplaceAttr: newReplaceAttr(config),
	}
	if strings.ToLower(config.Format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// newReplaceAttr 统一处理 Level/Time/Source 字段
func newReplaceAttr(config *Config) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.LevelKey:
			if level, ok := a.Value.Any().(slog.Level); ok {
				a.Value = slog.StringValue(levelName(level))
			}
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(TimeFormat))
			}
		case slog.SourceKey:
			if source, ok := a.Value.Any().(*slog.Source); ok {
				return slog.String("caller", fmt.Sprintf("%s:%d", trimSourcePath(source.File, config.SourceRoot), source.Line))
			}
		}
		return a
	}
}

func levelName(level slog.Level) string {
	switch {
	case level <= slog.LevelDebug:
		return "DEBUG"
	case level <= slog.LevelInfo:
		return "INFO"
	case level <= slog.LevelWarn:
		return "WARN"
	case level <= slog.LevelError:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// trimSourcePath 相对 sourceRoot 裁剪路径，无法裁剪时保留最后两级
func trimSourcePath(fileName, sourceRoot string) string {
	if sourceRoot != "" {
		rel, err := filepath.Rel(sourceRoot, fileName)
		if err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	dir, file := filepath.Split(fileName)
	return filepath.Join(filepath.Base(dir), file)
}
