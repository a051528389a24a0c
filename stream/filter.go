// Package stream 实现命名空间拦截器以及它写入的下游 writer。
//
// Filter 是一个 io.Writer：后端（例如 slog 的 JSON handler）把序列化好的记录写入它，
// Filter 根据命名空间开关决定丢弃还是转发。能解析为 JSON 对象的写入会被打上
// namespace 字段并以换行结尾重新输出，解析失败的写入原样透传。
//
//	f := stream.NewFilter("billing:invoice", os.Stdout)
//	h := slog.NewJSONHandler(f, nil)
package stream

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ceyewan/stufflog/metrics"
	"github.com/ceyewan/stufflog/nsfilter"
	"github.com/ceyewan/stufflog/record"
)

// 处理结果标签
const (
	OutcomeForwarded = "forwarded"
	OutcomeDropped   = "dropped"
	OutcomeRaw       = "raw"
)

// FilterOption 配置 Filter
type FilterOption func(*Filter)

// WithRegistry 使用指定的注册表，默认为 nsfilter.Default()
func WithRegistry(reg *nsfilter.Registry) FilterOption {
	return func(f *Filter) {
		if reg != nil {
			f.registry = reg
		}
	}
}

// WithCounter 记录每次写入的处理结果
func WithCounter(c metrics.Counter) FilterOption {
	return func(f *Filter) {
		if c != nil {
			f.counter = c
		}
	}
}

// Filter 按命名空间开关拦截写入。命名空间和下游在构造时确定。
type Filter struct {
	namespace string
	out       io.Writer
	registry  *nsfilter.Registry
	counter   metrics.Counter
}

// NewFilter 创建拦截器，namespace 为空时不做过滤
func NewFilter(namespace string, out io.Writer, opts ...FilterOption) *Filter {
	f := &Filter{
		namespace: namespace,
		out:       out,
		registry:  nsfilter.Default(),
		counter:   metrics.NoopCounter(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Namespace 返回构造时的命名空间
func (f *Filter) Namespace() string { return f.namespace }

// Registry 返回拦截器使用的注册表
func (f *Filter) Registry() *nsfilter.Registry { return f.registry }

// Enabled 当前命名空间是否启用
func (f *Filter) Enabled() bool {
	return f.registry.IsEnabledFor(f.namespace)
}

// Enable 在注册表中启用本命名空间，无命名空间时为空操作
func (f *Filter) Enable() {
	if f.namespace != "" {
		f.registry.Enable(f.namespace)
	}
}

// Disable 在注册表中移除本命名空间，无命名空间时为空操作
func (f *Filter) Disable() {
	if f.namespace != "" {
		f.registry.Disable(f.namespace)
	}
}

// Write 实现 io.Writer。
//
// 被丢弃的写入同样报告 len(p)，调用方不应把过滤视为错误。
func (f *Filter) Write(p []byte) (int, error) {
	if !f.Enabled() {
		f.count(OutcomeDropped)
		return len(p), nil
	}

	fields, err := record.DecodeFields(p)
	if err != nil {
		f.count(OutcomeRaw)
		if _, err := f.out.Write(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}

	// 只补上 namespace，其余字段按解析结果原样输出
	if f.namespace != "" {
		fields[record.KeyNamespace] = f.namespace
	}
	if err := f.writeLine(fields); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteRecord 写入已经结构化的记录，与 Write 共享开关和输出格式
func (f *Filter) WriteRecord(rec *record.Record) error {
	if !f.Enabled() {
		f.count(OutcomeDropped)
		return nil
	}
	return f.emit(rec.Clone())
}

func (f *Filter) emit(rec *record.Record) error {
	if f.namespace != "" {
		rec.Namespace = f.namespace
	}
	return f.writeLine(rec)
}

func (f *Filter) writeLine(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.count(OutcomeForwarded)
	_, err = f.out.Write(append(line, '\n'))
	return err
}

func (f *Filter) count(outcome string) {
	f.counter.Inc(context.Background(), metrics.L("outcome", outcome))
}
