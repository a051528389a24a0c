package stream

import (
	"io"
	"sync"
)

// DefaultQueueSize AsyncWriter 默认队列长度
const DefaultQueueSize = 1024

type asyncItem struct {
	data []byte
	done chan struct{}
}

// AsyncWriter 把写入推迟到后台 goroutine 执行。
//
// 队列满时 Write 阻塞等待，关闭后退化为同步写入，不会丢数据也不会乱序；
// Flush 阻塞到此前入队的写入全部完成。
// 后台写入的错误无法返回给调用方，通过 Err 查看最近一次错误。
type AsyncWriter struct {
	w     io.Writer
	queue chan asyncItem

	// state 保护 closed，入队时持读锁，关闭时持写锁
	state  sync.RWMutex
	closed bool

	// mu 保护 lastErr，并保证后台写入与关闭后的同步写入不交错
	mu      sync.Mutex
	lastErr error

	stopped chan struct{}
}

// NewAsyncWriter 创建异步 writer，size <= 0 时使用 DefaultQueueSize
func NewAsyncWriter(w io.Writer, size int) *AsyncWriter {
	if size <= 0 {
		size = DefaultQueueSize
	}
	a := &AsyncWriter{
		w:       w,
		queue:   make(chan asyncItem, size),
		stopped: make(chan struct{}),
	}
	go a.run()
	return a
}

// Write 复制 p 并入队
func (a *AsyncWriter) Write(p []byte) (int, error) {
	a.state.RLock()
	if !a.closed {
		buf := make([]byte, len(p))
		copy(buf, p)
		a.queue <- asyncItem{data: buf}
		a.state.RUnlock()
		return len(p), nil
	}
	a.state.RUnlock()

	<-a.stopped
	return a.writeNow(p)
}

// Flush 等待此前入队的写入全部完成
func (a *AsyncWriter) Flush() {
	done := make(chan struct{})

	a.state.RLock()
	if a.closed {
		a.state.RUnlock()
		<-a.stopped
		return
	}
	a.queue <- asyncItem{done: done}
	a.state.RUnlock()

	<-done
}

// Close 写完队列中剩余的数据并停止后台 goroutine，可重复调用
func (a *AsyncWriter) Close() error {
	a.state.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.state.Unlock()

	<-a.stopped
	return a.Err()
}

// Err 返回最近一次后台写入错误
func (a *AsyncWriter) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *AsyncWriter) run() {
	defer close(a.stopped)
	for item := range a.queue {
		if item.done != nil {
			close(item.done)
			continue
		}
		if _, err := a.writeNow(item.data); err != nil {
			a.mu.Lock()
			a.lastErr = err
			a.mu.Unlock()
		}
	}
}

func (a *AsyncWriter) writeNow(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.w.Write(p)
}
