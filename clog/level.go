package clog

import (
	"log/slog"
	"strings"

	"github.com/ceyewan/stufflog/xerrors"
)

// Level 日志级别类型
//
// 支持5个级别，按严重程度递增：
//
//	DebugLevel: 调试信息，通常只在开发环境使用
//	InfoLevel:  一般信息，记录正常的业务流程
//	WarnLevel:  警告信息，表示潜在问题
//	ErrorLevel: 错误信息，同时会上报到错误追踪后端
//	FatalLevel: 致命错误，上报并刷新后程序退出
type Level int

const (
	DebugLevel Level = iota - 4 // 调试级别
	InfoLevel                   // 信息级别
	WarnLevel                   // 警告级别
	ErrorLevel                  // 错误级别
	FatalLevel                  // 致命级别
)

// String 返回 Level 的小写名称，与上报事件中的 level 一致
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "level(" + slog.Level(l).String() + ")"
	}
}

// slogLevel 映射为 slog.Level，Fatal 比 Error 高 4
func (l Level) slogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	case FatalLevel:
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// ParseLevel 将字符串解析为 Level（不区分大小写），无法解析时返回 InfoLevel 和配置错误。
//
//	level, err := clog.ParseLevel("DEBUG")
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, xerrors.Configf("unknown log level: %s", s)
	}
}
