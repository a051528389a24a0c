package capture

import (
	"encoding/json"
	"errors"
	"maps"

	"github.com/ceyewan/stufflog/record"
	"github.com/ceyewan/stufflog/xerrors"
)

// ReporterOption 配置 Reporter
type ReporterOption func(*Reporter)

// WithCallback 设置默认回调，记录自带的 callback 优先
func WithCallback(cb record.Callback) ReporterOption {
	return func(r *Reporter) {
		r.callback = cb
	}
}

// WithWarnOnNonError 覆盖 Hub 的 WarnOnNonError 设置
func WithWarnOnNonError(warn bool) ReporterOption {
	return func(r *Reporter) {
		r.warnOnNonError = warn
	}
}

// Reporter 把单条记录转换为后端事件。不受命名空间开关影响。
type Reporter struct {
	hub            *Hub
	namespace      string
	callback       record.Callback
	warnOnNonError bool
}

// Namespace 返回绑定的命名空间
func (r *Reporter) Namespace() string { return r.namespace }

// Write 上报一条记录。
//
// 没有 err 的记录作为消息上报；err 是 error 时作为异常上报；
// 其他类型的 err 会被包装成 *EncapsulatedError，原值放入 extra.err。
// 只有 err 无法序列化且不属于循环引用时返回序列化错误，此时不会上报。
func (r *Reporter) Write(rec *record.Record) error {
	if rec == nil {
		return nil
	}

	extra := rec.Fields()
	delete(extra, record.KeyTags)
	delete(extra, record.KeyErr)

	tags := maps.Clone(rec.Tags)
	if r.namespace != "" {
		if tags == nil {
			tags = make(map[string]string, 1)
		}
		tags[record.KeyNamespace] = r.namespace
	}

	cb := rec.Callback
	if cb == nil {
		cb = r.callback
	}

	if rec.Err == nil {
		delete(extra, record.KeyLevel)
		delete(extra, record.KeyMsg)
		r.hub.captureMessage(rec.Msg, MessageOptions{Level: rec.Level, Tags: tags, Extra: extra}, cb)
		return nil
	}

	fault, ok := rec.Err.(error)
	if !ok {
		enc, err := r.wrap(rec, extra)
		if err != nil {
			return err
		}
		fault = enc
	}

	delete(extra, record.KeyMsg)
	r.hub.captureException(fault, ExceptionOptions{
		Message: rec.Msg,
		Level:   rec.Level,
		Tags:    tags,
		Extra:   extra,
	}, cb)
	return nil
}

// wrap 包装非 error 的 err 字段，并把原值放入 extra.err
func (r *Reporter) wrap(rec *record.Record, extra map[string]any) (*EncapsulatedError, error) {
	if r.warnOnNonError {
		r.hub.console.Warn("capture: wrapping non-error err value:", describe(rec.Err))
	}

	errExtra := map[string]any{"object": rec.Err}
	p, err := json.Marshal(rec.Err)
	var unsupported *json.UnsupportedValueError
	switch {
	case err == nil:
		errExtra["json"] = string(p)
	case errors.As(err, &unsupported):
		// 循环引用等无法表示的值
		if r.warnOnNonError {
			r.hub.console.Warn("capture: err value has no JSON form:", err.Error())
		}
	default:
		return nil, xerrors.Serialization(err, "encode err field")
	}
	extra[record.KeyErr] = errExtra

	return encapsulate(rec.Msg, rec.Err), nil
}
