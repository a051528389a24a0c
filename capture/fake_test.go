package capture

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/stufflog/record"
	"github.com/ceyewan/stufflog/stream"
)

type capturedMessage struct {
	msg  string
	opts MessageOptions
}

type capturedException struct {
	fault error
	opts  ExceptionOptions
}

// fakeBackend 同步回调的测试后端
type fakeBackend struct {
	mu         sync.Mutex
	messages   []capturedMessage
	exceptions []capturedException
	sendErr    error
	seq        int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) CaptureMessage(msg string, opts MessageOptions, cb record.Callback) string {
	f.mu.Lock()
	f.messages = append(f.messages, capturedMessage{msg: msg, opts: opts})
	id := f.nextID()
	f.mu.Unlock()
	return f.finish(id, cb)
}

func (f *fakeBackend) CaptureException(fault error, opts ExceptionOptions, cb record.Callback) string {
	f.mu.Lock()
	f.exceptions = append(f.exceptions, capturedException{fault: fault, opts: opts})
	id := f.nextID()
	f.mu.Unlock()
	return f.finish(id, cb)
}

func (f *fakeBackend) nextID() string {
	f.seq++
	return fmt.Sprintf("evt-%d", f.seq)
}

func (f *fakeBackend) finish(id string, cb record.Callback) string {
	if cb != nil {
		if f.sendErr != nil {
			cb(f.sendErr, "")
		} else {
			cb(nil, id)
		}
	}
	return id
}

func (f *fakeBackend) Flush(time.Duration) bool { return true }
func (f *fakeBackend) Close() error             { return nil }

// newTestHub 创建使用 fakeBackend 的 Hub，诊断输出写入返回的缓冲区
func newTestHub(t *testing.T, cfg *Config) (*Hub, *fakeBackend, *bytes.Buffer) {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.DSN == "" {
		cfg.DSN = "console://"
	}
	fake := &fakeBackend{}
	var out bytes.Buffer
	hub, err := New(cfg, WithBackend(fake), WithConsole(stream.NewConsole(&out)))
	require.NoError(t, err)
	return hub, fake, &out
}

// waitCallback 等待异步回调
func waitCallback(t *testing.T, ch <-chan callbackResult) callbackResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked")
		return callbackResult{}
	}
}

type callbackResult struct {
	err error
	id  string
}

func collect() (record.Callback, chan callbackResult) {
	ch := make(chan callbackResult, 4)
	return func(err error, id string) { ch <- callbackResult{err: err, id: id} }, ch
}
