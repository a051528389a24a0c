// Package capture 把携带故障信息的日志记录上报到外部错误追踪后端。
//
// Hub 在进程启动时根据 Config 创建一次，持有后端连接、限流器和诊断输出；
// 每个 logger 通过 Hub.NewReporter 获得绑定了命名空间的 Reporter。
//
//	hub, err := capture.New(&capture.Config{DSN: os.Getenv("SENTRY_DSN")})
//	if err != nil {
//	    return err
//	}
//	defer hub.Close()
//
//	r := hub.NewReporter("billing:invoice")
//	_ = r.Write(&record.Record{Msg: "charge failed", Err: err})
//
// 上报是即发即弃的：Write 不等待后端，结果只通过回调和诊断输出反馈。
package capture

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/stufflog/metrics"
	"github.com/ceyewan/stufflog/record"
	"github.com/ceyewan/stufflog/stream"
	"github.com/ceyewan/stufflog/xerrors"
)

// 上报结果标签
const (
	OutcomeSubmitted = "submitted"
	OutcomeThrottled = "throttled"
	OutcomeDelivered = "delivered"
	OutcomeAccepted  = "accepted"
	OutcomeFailed    = "failed"
)

// Option 配置 Hub
type Option func(*options)

type options struct {
	backend Backend
	console *stream.Console
	meter   metrics.Meter
}

// WithBackend 直接使用给定后端，跳过按 DSN 创建
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithConsole 设置诊断输出，默认写标准输出
func WithConsole(c *stream.Console) Option {
	return func(o *options) {
		if c != nil {
			o.console = c
		}
	}
}

// WithMeter 记录上报指标
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// Hub 进程级的上报入口，可并发使用
type Hub struct {
	backend        Backend
	console        *stream.Console
	limiter        *rate.Limiter
	warnOnNonError bool
	acceptOnly     bool

	captures metrics.Counter
	delivery metrics.Histogram
}

// New 根据配置创建 Hub，DSN 为空时返回配置错误
func New(cfg *Config, opts ...Option) (*Hub, error) {
	if cfg == nil {
		return nil, xerrors.Config("capture config is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := &options{meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	if o.console == nil {
		o.console = stream.NewConsole(nil)
	}

	backend := o.backend
	if backend == nil {
		var err error
		if backend, err = openBackend(cfg, o.console); err != nil {
			return nil, err
		}
	}

	h := &Hub{
		backend:        backend,
		console:        o.console,
		warnOnNonError: cfg.warnOnNonError(),
		captures:       metrics.NoopCounter(),
		delivery:       metrics.NoopHistogram(),
	}
	if a, ok := backend.(acceptingBackend); ok {
		h.acceptOnly = a.acceptsOnly()
	}
	if cfg.RateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}
	if c, err := o.meter.Counter("stufflog_captures_total", "提交到错误追踪后端的事件数"); err == nil {
		h.captures = c
	}
	if hist, err := o.meter.Histogram("stufflog_capture_delivery_seconds", "事件从提交到后端确认的耗时", metrics.WithUnit("s")); err == nil {
		h.delivery = hist
	}
	return h, nil
}

// openBackend 按 DSN scheme 选择后端
func openBackend(cfg *Config, console *stream.Console) (Backend, error) {
	u, err := url.Parse(cfg.DSN)
	if err != nil {
		return nil, xerrors.Configf("invalid capture DSN: %v", err)
	}
	meta := reportMeta{environment: cfg.Environment, release: cfg.Release}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return newSentryBackend(sentryClientOptions(cfg))
	case "nats", "tls":
		pub, err := dialNATS(u, cfg)
		if err != nil {
			return nil, err
		}
		return newBrokerBackend("nats", pub, topicFromPath(u, cfg), cfg, meta)
	case "redis", "rediss":
		pub, err := dialRedis(cfg)
		if err != nil {
			return nil, err
		}
		return newBrokerBackend("redis", pub, topicFromOptions(cfg), cfg, meta)
	case "kafka":
		pub, err := dialKafka(u, cfg)
		if err != nil {
			return nil, err
		}
		return newBrokerBackend("kafka", pub, topicFromPath(u, cfg), cfg, meta)
	case "console":
		return newConsoleBackend(console, meta), nil
	default:
		return nil, xerrors.Configf("unsupported capture DSN scheme %q", u.Scheme)
	}
}

// NewReporter 创建绑定命名空间的 Reporter
func (h *Hub) NewReporter(namespace string, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		hub:            h,
		namespace:      namespace,
		warnOnNonError: h.warnOnNonError,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backend 返回当前后端
func (h *Hub) Backend() Backend { return h.backend }

// Flush 等待已提交的事件发送完成，超时返回 false
func (h *Hub) Flush(timeout time.Duration) bool {
	return h.backend.Flush(timeout)
}

// Close 刷新并关闭后端
func (h *Hub) Close() error {
	h.backend.Flush(2 * time.Second)
	return h.backend.Close()
}

func (h *Hub) captureMessage(msg string, opts MessageOptions, cb record.Callback) {
	if !h.allow(KindMessage, cb) {
		return
	}
	id := h.backend.CaptureMessage(msg, opts, h.track(KindMessage, cb))
	h.console.Log("capture: message sent to", h.backend.Name(), fmt.Sprintf("(event_id=%s)", id))
}

func (h *Hub) captureException(fault error, opts ExceptionOptions, cb record.Callback) {
	if !h.allow(KindException, cb) {
		return
	}
	id := h.backend.CaptureException(fault, opts, h.track(KindException, cb))
	h.console.Log("capture: exception sent to", h.backend.Name(), fmt.Sprintf("(event_id=%s)", id))
}

func (h *Hub) allow(kind string, cb record.Callback) bool {
	if h.limiter == nil || h.limiter.Allow() {
		h.captures.Inc(context.Background(), metrics.L("kind", kind), metrics.L("outcome", OutcomeSubmitted))
		return true
	}
	h.captures.Inc(context.Background(), metrics.L("kind", kind), metrics.L("outcome", OutcomeThrottled))
	h.console.Warn("capture:", kind, "dropped by rate limit")
	notify(cb, xerrors.ErrThrottled, "")
	return false
}

// acceptingBackend 回调只表示事件进入了客户端队列，而不是已送达
type acceptingBackend interface {
	acceptsOnly() bool
}

// track 包装回调以记录投递结果和耗时。
// 只确认入队的后端记为 accepted，不记录投递耗时。
func (h *Hub) track(kind string, cb record.Callback) record.Callback {
	start := time.Now()
	return func(sendErr error, eventID string) {
		ctx := context.Background()
		switch {
		case sendErr != nil:
			h.captures.Inc(ctx, metrics.L("kind", kind), metrics.L("outcome", OutcomeFailed))
		case h.acceptOnly:
			h.captures.Inc(ctx, metrics.L("kind", kind), metrics.L("outcome", OutcomeAccepted))
		default:
			h.captures.Inc(ctx, metrics.L("kind", kind), metrics.L("outcome", OutcomeDelivered))
			h.delivery.Record(ctx, time.Since(start).Seconds(), metrics.L("kind", kind))
		}
		if cb != nil {
			cb(sendErr, eventID)
		}
	}
}
