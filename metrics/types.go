// Package metrics 为 stufflog 提供管道指标收集能力。
// 基于 OpenTelemetry 构建，通过 Prometheus Exporter 暴露。
//
// stufflog 自身记录的指标：
//   - stufflog_records_total{outcome}: 拦截器对每次写入的处理结果（forwarded|dropped|raw）
//   - stufflog_captures_total{kind,outcome}: 故障上报结果（submitted|throttled|delivered|accepted|failed）
//   - stufflog_capture_delivery_seconds: 从提交到后端回调的耗时
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "billing",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer meter.Shutdown(ctx)
//
// 禁用时 New 返回空实现，所有记录操作都是空操作。测试中可直接使用 Discard。
package metrics

import "context"

// Counter 计数器接口，记录只增不减的累计值
//
//	counter, _ := meter.Counter("stufflog_records_total", "拦截器处理的记录数")
//	counter.Inc(ctx, metrics.L("outcome", "dropped"))
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值，负数会被大部分监控系统忽略
	Add(ctx context.Context, val float64, labels ...Label)
}

// Histogram 直方图接口，记录值的分布
type Histogram interface {
	// Record 在直方图中记录一个值
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂，创建的指标可在多个 goroutine 中并发使用
type Meter interface {
	// Counter 创建计数器，name 应符合 Prometheus 命名规范
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)

	// Histogram 创建直方图
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Shutdown 刷新并关闭，通常在进程退出时调用
	Shutdown(ctx context.Context) error
}

// MetricOption 指标配置选项
type MetricOption func(*MetricOptions)

// MetricOptions 指标选项
type MetricOptions struct {
	// Unit 指标单位，建议使用 UCUM 单位代码，例如 "s"、"By"
	Unit string
}

// WithUnit 设置指标的单位
//
//	histogram, _ := meter.Histogram("stufflog_capture_delivery_seconds", "上报耗时", metrics.WithUnit("s"))
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}
