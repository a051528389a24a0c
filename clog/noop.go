package clog

import "context"

// noopLogger 什么都不做的 Logger
type noopLogger struct{}

// Discard 创建一个静默的 Logger，不输出也不上报
func Discard() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(msg string, fields ...Field)                             {}
func (l *noopLogger) Info(msg string, fields ...Field)                              {}
func (l *noopLogger) Warn(msg string, fields ...Field)                              {}
func (l *noopLogger) Error(msg string, fields ...Field)                             {}
func (l *noopLogger) Fatal(msg string, fields ...Field)                             {}
func (l *noopLogger) DebugContext(ctx context.Context, msg string, fields ...Field) {}
func (l *noopLogger) InfoContext(ctx context.Context, msg string, fields ...Field)  {}
func (l *noopLogger) WarnContext(ctx context.Context, msg string, fields ...Field)  {}
func (l *noopLogger) ErrorContext(ctx context.Context, msg string, fields ...Field) {}
func (l *noopLogger) FatalContext(ctx context.Context, msg string, fields ...Field) {}

func (l *noopLogger) With(fields ...Field) Logger          { return l }
func (l *noopLogger) WithNamespace(parts ...string) Logger { return l }
func (l *noopLogger) Namespace() string                    { return "" }
func (l *noopLogger) Enabled() bool                        { return false }
func (l *noopLogger) Enable()                              {}
func (l *noopLogger) Disable()                             {}
func (l *noopLogger) SetLevel(level Level) error           { return nil }
func (l *noopLogger) Flush()                               {}
