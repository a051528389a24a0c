package capture

import (
	"errors"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/ceyewan/stufflog/record"
	"github.com/ceyewan/stufflog/xerrors"
)

// errEventDropped 事件被 Sentry 客户端丢弃（采样或 BeforeSend）
var errEventDropped = errors.New("capture: event dropped by sentry client")

type sentryBackend struct {
	hub *sentry.Hub
}

func sentryClientOptions(cfg *Config) sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		Debug:            cfg.optionBool("debug"),
		SampleRate:       cfg.optionFloat("sample_rate"),
		ServerName:       cfg.optionString("server_name"),
		AttachStacktrace: cfg.optionBool("attach_stacktrace"),
	}
}

func newSentryBackend(opts sentry.ClientOptions) (*sentryBackend, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, xerrors.Wrap(err, "create sentry client")
	}
	return &sentryBackend{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func (b *sentryBackend) Name() string { return "sentry" }

// acceptsOnly sentry-go 的 transport 异步发送且不回报 HTTP 失败，
// 回调只能说明事件已进入发送队列。
func (b *sentryBackend) acceptsOnly() bool { return true }

func (b *sentryBackend) CaptureMessage(msg string, opts MessageOptions, cb record.Callback) string {
	event := b.hub.Client().EventFromMessage(msg, sentryLevel(opts.Level, sentry.LevelInfo))
	return b.capture(event, opts.Tags, opts.Extra, cb)
}

func (b *sentryBackend) CaptureException(fault error, opts ExceptionOptions, cb record.Callback) string {
	event := b.hub.Client().EventFromException(fault, sentryLevel(opts.Level, sentry.LevelError))
	if opts.Message != "" {
		event.Message = opts.Message
	}

	var enc *EncapsulatedError
	if errors.As(fault, &enc) && len(event.Exception) > 0 {
		event.Exception[len(event.Exception)-1].Type = enc.TypeName()
	}
	return b.capture(event, opts.Tags, opts.Extra, cb)
}

func (b *sentryBackend) capture(event *sentry.Event, tags map[string]string, extra map[string]any, cb record.Callback) string {
	if len(tags) > 0 {
		if event.Tags == nil {
			event.Tags = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			event.Tags[k] = v
		}
	}
	if e := sanitize(extra); e != nil {
		event.Extra = e
	}

	id := b.hub.CaptureEvent(event)
	if id == nil {
		notify(cb, errEventDropped, "")
		return ""
	}
	// 已入队，发送失败不会经由 sendErr 回报
	notify(cb, nil, string(*id))
	return string(*id)
}

func (b *sentryBackend) Flush(timeout time.Duration) bool {
	return b.hub.Flush(timeout)
}

func (b *sentryBackend) Close() error {
	return nil
}

func sentryLevel(level string, fallback sentry.Level) sentry.Level {
	switch strings.ToLower(level) {
	case "debug":
		return sentry.LevelDebug
	case "info":
		return sentry.LevelInfo
	case "warn", "warning":
		return sentry.LevelWarning
	case "error":
		return sentry.LevelError
	case "fatal":
		return sentry.LevelFatal
	default:
		return fallback
	}
}
