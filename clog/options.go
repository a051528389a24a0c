package clog

import (
	"io"

	"github.com/ceyewan/stufflog/capture"
	"github.com/ceyewan/stufflog/metrics"
	"github.com/ceyewan/stufflog/nsfilter"
)

// ContextField 定义从 Context 中提取字段的规则
type ContextField struct {
	Key       any    // Context 中存储的键
	FieldName string // 日志中的字段名
}

// Option 函数式选项，用于配置 Logger 实例
type Option func(*options)

type options struct {
	namespaceParts        []string
	contextFields         []ContextField
	enableTraceExtraction bool

	registry *nsfilter.Registry
	hub      *capture.Hub
	meter    metrics.Meter
	writer   io.Writer // 测试用输出
}

// WithNamespace 设置日志命名空间，多级命名空间以 ":" 连接
//
//	// 命名空间为 "billing:invoice"
//	clog.WithNamespace("billing", "invoice")
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespaceParts = append(o.namespaceParts, parts...)
	}
}

// WithContextField 添加自定义的 Context 字段提取规则
//
//	clog.WithContextField("trace-id", "trace_id")
func WithContextField(key any, fieldName string) Option {
	return func(o *options) {
		o.contextFields = append(o.contextFields, ContextField{
			Key:       key,
			FieldName: fieldName,
		})
	}
}

// WithStandardContext 自动提取 trace_id、user_id、request_id
func WithStandardContext() Option {
	return func(o *options) {
		o.contextFields = append(o.contextFields,
			ContextField{Key: "trace_id", FieldName: "trace_id"},
			ContextField{Key: "user_id", FieldName: "user_id"},
			ContextField{Key: "request_id", FieldName: "request_id"},
		)
	}
}

// WithTraceContext 从 Context 中提取 OpenTelemetry 的 trace_id 和 span_id
func WithTraceContext() Option {
	return func(o *options) {
		o.enableTraceExtraction = true
	}
}

// WithRegistry 使用指定的命名空间注册表，默认为 nsfilter.Default()
func WithRegistry(reg *nsfilter.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithHub 使用已创建的上报 Hub，优先于 Config.Capture
func WithHub(hub *capture.Hub) Option {
	return func(o *options) {
		o.hub = hub
	}
}

// WithMeter 记录日志流水线指标
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = nsfilter.Default()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	return o
}
