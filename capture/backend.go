package capture

import (
	"encoding/json"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/stufflog/record"
)

// MessageOptions 纯消息事件的附加信息
type MessageOptions struct {
	Level string
	Tags  map[string]string
	Extra map[string]any
}

// ExceptionOptions 异常事件的附加信息，Message 为原记录的 msg
type ExceptionOptions struct {
	Message string
	Level   string
	Tags    map[string]string
	Extra   map[string]any
}

// Backend 错误追踪后端。
//
// Capture 方法不得阻塞调用方，返回追踪标识（可能为空）；
// cb 非 nil 时在发送完成后被调用至多一次。
type Backend interface {
	Name() string
	CaptureMessage(msg string, opts MessageOptions, cb record.Callback) string
	CaptureException(fault error, opts ExceptionOptions, cb record.Callback) string
	Flush(timeout time.Duration) bool
	Close() error
}

// Report 非 Sentry 后端发送的事件体
type Report struct {
	EventID     string            `json:"event_id" msgpack:"event_id"`
	Kind        string            `json:"kind" msgpack:"kind"`
	Timestamp   time.Time         `json:"timestamp" msgpack:"timestamp"`
	Level       string            `json:"level,omitempty" msgpack:"level,omitempty"`
	Message     string            `json:"message,omitempty" msgpack:"message,omitempty"`
	Exception   *Exception        `json:"exception,omitempty" msgpack:"exception,omitempty"`
	Tags        map[string]string `json:"tags,omitempty" msgpack:"tags,omitempty"`
	Extra       map[string]any    `json:"extra,omitempty" msgpack:"extra,omitempty"`
	Environment string            `json:"environment,omitempty" msgpack:"environment,omitempty"`
	Release     string            `json:"release,omitempty" msgpack:"release,omitempty"`
}

// Exception 事件中的异常描述
type Exception struct {
	Type   string `json:"type" msgpack:"type"`
	Value  string `json:"value" msgpack:"value"`
	Code   string `json:"code,omitempty" msgpack:"code,omitempty"`
	Signal string `json:"signal,omitempty" msgpack:"signal,omitempty"`
	Stack  string `json:"stack,omitempty" msgpack:"stack,omitempty"`
}

// 事件类型
const (
	KindMessage   = "message"
	KindException = "exception"
)

// reportMeta 构造 Report 所需的进程级信息
type reportMeta struct {
	environment string
	release     string
}

func (m reportMeta) message(msg string, opts MessageOptions) *Report {
	return &Report{
		EventID:     uuid.NewString(),
		Kind:        KindMessage,
		Timestamp:   time.Now().UTC(),
		Level:       opts.Level,
		Message:     msg,
		Tags:        maps.Clone(opts.Tags),
		Extra:       sanitize(opts.Extra),
		Environment: m.environment,
		Release:     m.release,
	}
}

func (m reportMeta) exception(fault error, opts ExceptionOptions) *Report {
	return &Report{
		EventID:     uuid.NewString(),
		Kind:        KindException,
		Timestamp:   time.Now().UTC(),
		Level:       opts.Level,
		Message:     opts.Message,
		Exception:   describeFault(fault),
		Tags:        maps.Clone(opts.Tags),
		Extra:       sanitize(opts.Extra),
		Environment: m.environment,
		Release:     m.release,
	}
}

func describeFault(fault error) *Exception {
	ex := &Exception{Type: typeName(fault), Value: fault.Error()}
	var enc *EncapsulatedError
	if errors.As(fault, &enc) {
		ex.Type = enc.TypeName()
		ex.Code = enc.Code
		ex.Signal = enc.Signal
		ex.Stack = enc.Stack
	}
	return ex
}

// sanitize 把无法编码为 JSON 的值替换为描述字符串，第一层嵌套的 map 逐项处理。
// 编码器因此不会遇到循环引用。
func sanitize(extra map[string]any) map[string]any {
	return sanitizeNested(extra, 1)
}

func sanitizeNested(extra map[string]any, depth int) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		if nested, ok := v.(map[string]any); ok && depth > 0 {
			out[k] = sanitizeNested(nested, depth-1)
			continue
		}
		if _, err := json.Marshal(v); err != nil {
			out[k] = describe(v)
			continue
		}
		out[k] = v
	}
	return out
}

// notify 异步调用回调
func notify(cb record.Callback, err error, eventID string) {
	if cb != nil {
		go cb(err, eventID)
	}
}
