package clog

import "io"

// withWriter 测试专用选项，把日志输出写入 w，忽略 Config.Output
func withWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}
