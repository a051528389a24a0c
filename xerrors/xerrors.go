// Package xerrors 提供 stufflog 的错误分类与包装工具。
//
// 错误按类别划分：
//   - ErrConfig: 调用方传入的配置或参数无效，在出错的调用处同步返回
//   - ErrSerialization: 故障值无法序列化，且不属于循环引用这类可容忍的情况
//   - ErrDecode: 写入的字节不是可识别的结构化记录（由拦截器内部消化）
//   - ErrThrottled: 故障上报被限流丢弃，仅通过回调传递
//
// 使用 errors.Is 判断类别，*Error 同时保留底层原因：
//
//	if xerrors.IsConfig(err) { ... }
package xerrors

import (
	"errors"
	"fmt"
)

// 错误类别哨兵
var (
	ErrConfig        = errors.New("config error")
	ErrSerialization = errors.New("serialization error")
	ErrDecode        = errors.New("decode error")
	ErrThrottled     = errors.New("capture throttled")
)

// Error 带类别的错误，Kind 为上面的哨兵之一。
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	switch {
	case e.Cause != nil && e.Msg != "":
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Msg, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
	case e.Msg != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	default:
		return e.Kind.Error()
	}
}

// Unwrap 同时暴露类别和原因，errors.Is 对两者都生效。
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Config 构造配置错误
func Config(msg string) error {
	return &Error{Kind: ErrConfig, Msg: msg}
}

// Configf 构造格式化的配置错误
func Configf(format string, args ...any) error {
	return &Error{Kind: ErrConfig, Msg: fmt.Sprintf(format, args...)}
}

// Serialization 构造序列化错误，cause 为底层编码器返回的错误
func Serialization(cause error, msg string) error {
	return &Error{Kind: ErrSerialization, Msg: msg, Cause: cause}
}

// Decode 构造解码错误
func Decode(cause error, msg string) error {
	return &Error{Kind: ErrDecode, Msg: msg, Cause: cause}
}

// IsConfig 判断是否为配置错误
func IsConfig(err error) bool { return errors.Is(err, ErrConfig) }

// IsSerialization 判断是否为序列化错误
func IsSerialization(err error) bool { return errors.Is(err, ErrSerialization) }

// IsDecode 判断是否为解码错误
func IsDecode(err error) bool { return errors.Is(err, ErrDecode) }

// Wrap 用上下文信息包装错误，保留错误链。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 用格式化的上下文信息包装错误。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Must 如果 err 不为 nil，则 panic。仅用于初始化阶段。
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}

// MultiError 合并多个错误。
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%v (and %d more errors)", m.Errors[0], len(m.Errors)-1)
}

func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Combine 将多个错误合并为一个，nil 会被忽略。
func Combine(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return &MultiError{Errors: nonNil}
	}
}

// 标准库函数再导出
var (
	New  = errors.New
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)
