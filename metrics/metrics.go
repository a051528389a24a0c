package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
)

// New 创建 Meter 实例
func New(cfg *Config) (Meter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if !cfg.Enabled {
		return &noopMeter{}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Exporter 注册到 Prometheus 默认 Registerer，promhttp.Handler 可直接采集
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	if cfg.Port > 0 && cfg.Path != "" {
		go serve(cfg)
	}

	return &meterImpl{
		meter:    mp.Meter("stufflog"),
		provider: mp,
	}, nil
}

// Must 类似 New，但出错时 panic，仅用于初始化阶段
func Must(cfg *Config) Meter {
	m, err := New(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create metrics: %v", err))
	}
	return m
}

// Discard 返回空实现
func Discard() Meter {
	return &noopMeter{}
}

// Handler 返回 Prometheus 采集处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

func serve(cfg *Config) {
	addr := fmt.Sprintf(":%d", cfg.Port)
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	slog.Default().Info("starting prometheus metrics server", "addr", addr, "path", cfg.Path)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Default().Error("prometheus server error", "error", err)
	}
}

type meterImpl struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
}

func (m *meterImpl) Counter(name string, desc string, opts ...MetricOption) (Counter, error) {
	options := applyMetricOptions(opts)
	otelOpts := []metric.Int64CounterOption{metric.WithDescription(desc)}
	if options.Unit != "" {
		otelOpts = append(otelOpts, metric.WithUnit(options.Unit))
	}

	c, err := m.meter.Int64Counter(name, otelOpts...)
	if err != nil {
		return nil, err
	}
	return &counterImpl{c: c}, nil
}

func (m *meterImpl) Histogram(name string, desc string, opts ...MetricOption) (Histogram, error) {
	options := applyMetricOptions(opts)
	otelOpts := []metric.Float64HistogramOption{metric.WithDescription(desc)}
	if options.Unit != "" {
		otelOpts = append(otelOpts, metric.WithUnit(options.Unit))
	}

	h, err := m.meter.Float64Histogram(name, otelOpts...)
	if err != nil {
		return nil, err
	}
	return &histogramImpl{h: h}, nil
}

func (m *meterImpl) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

type counterImpl struct {
	c metric.Int64Counter
}

func (c *counterImpl) Inc(ctx context.Context, labels ...Label) {
	c.c.Add(ctx, 1, metric.WithAttributes(toAttributes(labels)...))
}

func (c *counterImpl) Add(ctx context.Context, val float64, labels ...Label) {
	c.c.Add(ctx, int64(val), metric.WithAttributes(toAttributes(labels)...))
}

type histogramImpl struct {
	h metric.Float64Histogram
}

func (h *histogramImpl) Record(ctx context.Context, val float64, labels ...Label) {
	h.h.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

// noop 实现（禁用时使用）

type noopMeter struct{}

func (n *noopMeter) Counter(string, string, ...MetricOption) (Counter, error) {
	return noopCounter{}, nil
}

func (n *noopMeter) Histogram(string, string, ...MetricOption) (Histogram, error) {
	return noopHistogram{}, nil
}

func (n *noopMeter) Shutdown(context.Context) error { return nil }

type noopCounter struct{}

func (noopCounter) Inc(context.Context, ...Label)          {}
func (noopCounter) Add(context.Context, float64, ...Label) {}

type noopHistogram struct{}

func (noopHistogram) Record(context.Context, float64, ...Label) {}

// NoopCounter 返回空计数器，适合作为可选依赖的默认值
func NoopCounter() Counter { return noopCounter{} }

// NoopHistogram 返回空直方图
func NoopHistogram() Histogram { return noopHistogram{} }

func applyMetricOptions(opts []MetricOption) *MetricOptions {
	o := &MetricOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func toAttributes(labels []Label) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, len(labels))
	for i, l := range labels {
		attrs[i] = attribute.String(l.Key, l.Value)
	}
	return attrs
}
