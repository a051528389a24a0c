package capture

import (
	"encoding/json"
	"time"

	"github.com/ceyewan/stufflog/record"
	"github.com/ceyewan/stufflog/stream"
)

// consoleBackend 把事件写到诊断输出，用于本地开发
type consoleBackend struct {
	console *stream.Console
	meta    reportMeta
}

func newConsoleBackend(console *stream.Console, meta reportMeta) *consoleBackend {
	return &consoleBackend{console: console, meta: meta}
}

func (b *consoleBackend) Name() string { return "console" }

func (b *consoleBackend) CaptureMessage(msg string, opts MessageOptions, cb record.Callback) string {
	return b.emit(b.meta.message(msg, opts), cb)
}

func (b *consoleBackend) CaptureException(fault error, opts ExceptionOptions, cb record.Callback) string {
	return b.emit(b.meta.exception(fault, opts), cb)
}

func (b *consoleBackend) emit(rep *Report, cb record.Callback) string {
	line, err := json.Marshal(rep)
	if err != nil {
		notify(cb, err, "")
		return ""
	}
	b.console.Log("capture: report", string(line))
	notify(cb, nil, rep.EventID)
	return rep.EventID
}

func (b *consoleBackend) Flush(time.Duration) bool { return true }

func (b *consoleBackend) Close() error { return nil }
