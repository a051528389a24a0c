package stream

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ceyewan/stufflog/xerrors"
)

// Rotate 文件输出的滚动策略
type Rotate struct {
	MaxSize    int  `mapstructure:"max_size" yaml:"max_size" json:"max_size"` // MB
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAge     int  `mapstructure:"max_age" yaml:"max_age" json:"max_age"` // 天
	Compress   bool `mapstructure:"compress" yaml:"compress" json:"compress"`
}

// Open 解析输出目标：stdout、stderr 或文件路径（按 rotate 滚动）。
//
// 文件输出返回的 writer 同时实现 io.Closer。
func Open(output string, rotate *Rotate) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	if dir := filepath.Dir(output); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, xerrors.Wrapf(err, "create log directory %q", dir)
		}
	}

	if rotate == nil {
		rotate = &Rotate{}
	}
	return &lumberjack.Logger{
		Filename:   output,
		MaxSize:    rotate.MaxSize,
		MaxBackups: rotate.MaxBackups,
		MaxAge:     rotate.MaxAge,
		Compress:   rotate.Compress,
	}, nil
}
