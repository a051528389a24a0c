package clog

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/ceyewan/stufflog/record"
)

// Field 是 slog.Attr 的类型别名，实现零内存分配
type Field = slog.Attr

// String 创建字符串字段
func String(k, v string) Field {
	return slog.String(k, v)
}

// Int 创建整数字段
func Int(k string, v int) Field {
	return slog.Int(k, v)
}

// Int64 创建64位整数字段
func Int64(k string, v int64) Field {
	return slog.Int64(k, v)
}

// Float64 创建浮点数字段
func Float64(k string, v float64) Field {
	return slog.Float64(k, v)
}

// Bool 创建布尔字段
func Bool(k string, v bool) Field {
	return slog.Bool(k, v)
}

// Time 创建时间字段
func Time(k string, v time.Time) Field {
	return slog.Time(k, v)
}

// Duration 创建时间长度字段
func Duration(k string, v time.Duration) Field {
	return slog.Duration(k, v)
}

// Any 创建任意类型字段
func Any(k string, v any) Field {
	return slog.Any(k, v)
}

// Err 设置记录的故障值。
//
// Error 及以上级别时，实现了 error 的值作为异常上报，其他值会被包装后上报，
// 原值保留在事件的 extra.err 中。输出到日志流时 error 只保留消息。
func Err(v any) Field {
	return slog.Any(record.KeyErr, v)
}

// Error 是 Err 的 error 版本，err 为 nil 时返回空字段
//
//	logger.Error("charge failed", clog.Error(err))
func Error(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	return Err(err)
}

// Tags 设置上报事件的标签，命名空间会自动加入
func Tags(tags map[string]string) Field {
	return slog.Any(record.KeyTags, tags)
}

// Callback 设置本条记录的上报回调，不会写入日志流
//
//	logger.Error("sync failed", clog.Error(err), clog.Callback(func(sendErr error, id string) {
//	    ...
//	}))
func Callback(cb record.Callback) Field {
	return slog.Any(record.KeyCallback, cb)
}

// Stack 添加当前调用栈，谨慎用于高频日志
func Stack() Field {
	return slog.String("stack", stackTrace(3))
}

// stackTrace 跳过 skip 层后格式化调用栈
func stackTrace(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}
