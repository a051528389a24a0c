package clog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/ceyewan/stufflog/capture"
	"github.com/ceyewan/stufflog/metrics"
	"github.com/ceyewan/stufflog/nsfilter"
	"github.com/ceyewan/stufflog/record"
	"github.com/ceyewan/stufflog/stream"
	"github.com/ceyewan/stufflog/xerrors"
)

// NamespaceJoiner 连接多级命名空间
const NamespaceJoiner = ":"

// flushTimeout Flush 等待上报完成的最长时间
const flushTimeout = 2 * time.Second

// exitFunc Fatal 之后调用，测试中替换
var exitFunc = os.Exit

// core 由同一次 New 派生出的所有 Logger 共享
type core struct {
	config   *Config
	options  *options
	levelVar *slog.LevelVar
	registry *nsfilter.Registry
	records  metrics.Counter

	sink   io.Writer
	async  *stream.AsyncWriter
	closer io.Closer

	hub     *capture.Hub
	ownsHub bool
}

func newCore(config *Config, o *options) (*core, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	c := &core{
		config:   config,
		options:  o,
		levelVar: new(slog.LevelVar),
		registry: o.registry,
		records:  metrics.NoopCounter(),
		hub:      o.hub,
	}
	c.levelVar.Set(level.slogLevel())

	w := o.writer
	if w == nil {
		out, err := stream.Open(config.Output, config.Rotate)
		if err != nil {
			return nil, err
		}
		if cl, ok := out.(io.Closer); ok && out != io.Writer(os.Stdout) && out != io.Writer(os.Stderr) {
			c.closer = cl
		}
		w = out
	}
	if config.AsyncConsole {
		c.async = stream.NewAsyncWriter(w, stream.DefaultQueueSize)
		w = c.async
	}
	c.sink = w

	if cnt, err := o.meter.Counter("stufflog_records_total", "经过命名空间拦截器的日志记录数"); err == nil {
		c.records = cnt
	}

	if c.hub == nil {
		if cc := config.captureConfig(); cc != nil {
			hub, err := capture.New(cc, capture.WithMeter(o.meter))
			if err != nil {
				_ = c.close()
				return nil, err
			}
			c.hub, c.ownsHub = hub, true
		}
	}
	return c, nil
}

// logger 为 o 中的命名空间创建拦截器、handler 和 reporter
func (c *core) logger(o *options, baseAttrs []slog.Attr) *loggerImpl {
	l := &loggerImpl{
		core:      c,
		options:   o,
		namespace: strings.Join(o.namespaceParts, NamespaceJoiner),
		baseAttrs: baseAttrs,
	}
	l.filter = stream.NewFilter(l.namespace, c.sink,
		stream.WithRegistry(o.registry),
		stream.WithCounter(c.records),
	)
	l.handler = newSlogHandler(c.config, l.filter, c.levelVar)
	if c.hub != nil {
		l.reporter = c.hub.NewReporter(l.namespace, capture.WithCallback(l.captured))
	}
	return l
}

func (c *core) flush() {
	if c.async != nil {
		c.async.Flush()
	}
	if c.hub != nil {
		c.hub.Flush(flushTimeout)
	}
}

// close 关闭 core 自己创建的资源
func (c *core) close() error {
	var errs []error
	if c.async != nil {
		errs = append(errs, c.async.Close())
	}
	if c.closer != nil {
		errs = append(errs, c.closer.Close())
	}
	if c.hub != nil && c.ownsHub {
		errs = append(errs, c.hub.Close())
	}
	return xerrors.Combine(errs...)
}

// loggerImpl 是 Logger 接口的具体实现
type loggerImpl struct {
	core      *core
	options   *options
	namespace string
	filter    *stream.Filter
	handler   slog.Handler
	reporter  *capture.Reporter
	baseAttrs []slog.Attr
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(context.Background(), DebugLevel, msg, fields...)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(context.Background(), InfoLevel, msg, fields...)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(context.Background(), WarnLevel, msg, fields...)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(context.Background(), ErrorLevel, msg, fields...)
}

func (l *loggerImpl) Fatal(msg string, fields ...Field) {
	l.log(context.Background(), FatalLevel, msg, fields...)
}

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields...)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields...)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields...)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields...)
}

func (l *loggerImpl) FatalContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, FatalLevel, msg, fields...)
}

func (l *loggerImpl) With(fields ...Field) Logger {
	return &loggerImpl{
		core:      l.core,
		options:   l.options,
		namespace: l.namespace,
		filter:    l.filter,
		handler:   l.handler,
		reporter:  l.reporter,
		baseAttrs: slices.Concat(l.baseAttrs, fields),
	}
}

func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	o := *l.options
	o.namespaceParts = slices.Concat(l.options.namespaceParts, parts)
	return l.core.logger(&o, slices.Clone(l.baseAttrs))
}

func (l *loggerImpl) Namespace() string { return l.namespace }

func (l *loggerImpl) Enabled() bool { return l.filter.Enabled() }

func (l *loggerImpl) Enable() { l.filter.Enable() }

func (l *loggerImpl) Disable() { l.filter.Disable() }

// SetLevel 动态调整日志级别，上报不受级别影响
func (l *loggerImpl) SetLevel(level Level) error {
	if _, err := ParseLevel(level.String()); err != nil {
		return err
	}
	l.core.levelVar.Set(level.slogLevel())
	return nil
}

func (l *loggerImpl) Flush() {
	l.core.flush()
}

func (l *loggerImpl) log(ctx context.Context, level Level, msg string, fields ...Field) {
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := make([]slog.Attr, 0, len(l.baseAttrs)+len(fields)+4)
	attrs = append(attrs, l.baseAttrs...)
	attrs = append(attrs, fields...)
	attrs = append(attrs, contextAttrs(ctx, l.options)...)
	attrs, cb := extractCallback(attrs)

	slogLevel := level.slogLevel()
	if l.handler.Enabled(ctx, slogLevel) {
		var pcs [1]uintptr
		runtime.Callers(3, pcs[:]) // skip: runtime.Callers, log, Debug/Info/Error 等
		r := slog.NewRecord(time.Now(), slogLevel, msg, pcs[0])
		r.AddAttrs(attrs...)
		_ = l.handler.Handle(ctx, r)
	}

	if level >= ErrorLevel && l.reporter != nil {
		l.report(level, msg, attrs, cb)
	}

	if level == FatalLevel {
		l.core.flush()
		exitFunc(1)
	}
}

// report 把属性还原为 record.Record 交给 Reporter
func (l *loggerImpl) report(level Level, msg string, attrs []slog.Attr, cb record.Callback) {
	rec := &record.Record{
		Msg:       msg,
		Level:     level.String(),
		Namespace: l.namespace,
		Callback:  cb,
	}
	extra := make(map[string]any, len(attrs))
	for _, a := range attrs {
		a.Value = a.Value.Resolve()
		switch {
		case a.Key == "" && a.Value.Kind() != slog.KindGroup:
			continue
		case a.Key == record.KeyErr:
			rec.Err = a.Value.Any()
			continue
		case a.Key == record.KeyTags:
			if tags, ok := a.Value.Any().(map[string]string); ok {
				rec.Tags = tags
				continue
			}
		case a.Key == "" && a.Value.Kind() == slog.KindGroup:
			// 空 key 的 group 按 slog 的约定展开
			for _, ga := range a.Value.Group() {
				extra[ga.Key] = attrValue(ga.Value)
			}
			continue
		}
		extra[a.Key] = attrValue(a.Value)
	}
	if len(extra) > 0 {
		rec.Extra = extra
	}

	if err := l.reporter.Write(rec); err != nil {
		l.Warn("failed to capture record", String("reason", err.Error()))
	}
}

// captured 没有单条回调时使用的默认回调，只写 debug 日志，不会再次触发上报
func (l *loggerImpl) captured(sendErr error, eventID string) {
	if sendErr != nil {
		l.Debug("failed to send captured event", String("send_err", sendErr.Error()))
		return
	}
	l.Debug("captured event", String("event_id", eventID))
}

// extractCallback 取出 Callback 字段，它不会进入日志流
func extractCallback(attrs []slog.Attr) ([]slog.Attr, record.Callback) {
	var cb record.Callback
	out := attrs[:0]
	for _, a := range attrs {
		if a.Key == record.KeyCallback {
			if f, ok := a.Value.Any().(record.Callback); ok {
				cb = f
				continue
			}
		}
		out = append(out, a)
	}
	return out, cb
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	if v.Kind() != slog.KindGroup {
		return v.Any()
	}
	m := make(map[string]any, len(v.Group()))
	for _, a := range v.Group() {
		m[a.Key] = attrValue(a.Value)
	}
	return m
}
