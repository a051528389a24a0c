package stream

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Console 诊断输出，每次调用写一整行。
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole 创建诊断输出，w 为 nil 时写入标准输出
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

// Log 以空格连接参数并写入一行
func (c *Console) Log(args ...any) {
	c.write(fmt.Sprintln(args...))
}

// Warn 与 Log 相同，但带有 "WARN:" 前缀
func (c *Console) Warn(args ...any) {
	c.write(fmt.Sprintln(append([]any{"WARN:"}, args...)...))
}

func (c *Console) write(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, line)
}
