// Package clog 是 stufflog 面向业务代码的日志入口，基于 slog 输出结构化日志。
//
// 每个 Logger 绑定一个命名空间（多级以 ":" 连接），输出先经过 stream.Filter，
// 只有在 nsfilter 注册表中启用的命名空间才会真正写出；Error 及以上级别的日志
// 同时交给 capture.Reporter 上报到错误追踪后端，上报不受命名空间开关影响。
//
// 进程级用法：
//
//	if err := clog.Init(&clog.Config{
//	    AppName:            "billing",
//	    EnableFromDebugEnv: true, // DEBUG=billing:*,payments:stripe
//	    Capture:            &capture.Config{DSN: os.Getenv("SENTRY_DSN")},
//	}); err != nil {
//	    return err
//	}
//
//	logger := clog.MustNamed("billing:invoice")
//	logger.Info("invoice created", clog.String("id", id))
//	logger.Error("charge failed", clog.Error(err), clog.Tags(map[string]string{"psp": "stripe"}))
//
// 独立实例（测试或嵌入其他组件时）：
//
//	logger, _ := clog.New(&clog.Config{Level: "debug"},
//	    clog.WithNamespace("billing", "invoice"),
//	    clog.WithRegistry(nsfilter.New()),
//	    clog.WithTraceContext(),
//	)
package clog

import "context"

// Logger 日志接口，提供结构化日志记录功能
//
// 支持五个日志级别：Debug、Info、Warn、Error、Fatal，
// 每个级别都有带 Context 和不带 Context 的版本。
//
// 创建子 Logger：
//
//	childLogger := logger.With(clog.String("module", "auth"))
//	namespacedLogger := logger.WithNamespace("auth", "login")
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// 带 Context 的版本会按选项提取 Context 字段和追踪标识
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger，与父 Logger 共享命名空间
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	//   logger := clog.MustNamed("billing")
	//   handlerLogger := logger.WithNamespace("invoice")
	//   // 命名空间为 "billing:invoice"
	WithNamespace(parts ...string) Logger

	// Namespace 返回完整的命名空间
	Namespace() string

	// Enabled 当前命名空间的日志是否会写出
	Enabled() bool

	// Enable 和 Disable 修改注册表中当前命名空间的开关，没有命名空间时为空操作
	Enable()
	Disable()

	// SetLevel 动态调整日志级别，同一个 New 派生出的 Logger 共享级别
	SetLevel(level Level) error

	// Flush 等待异步输出和已提交的上报完成
	Flush()
}
