package config

import "github.com/ceyewan/stufflog/xerrors"

// ErrValidationFailed 配置为空或校验失败
var ErrValidationFailed = xerrors.New("configuration validation failed")

// IsValidationFailed 检查错误是否为配置校验失败
func IsValidationFailed(err error) bool {
	return xerrors.Is(err, ErrValidationFailed)
}

// wrapLoadError 包装读取配置文件时的错误
func wrapLoadError(err error, name string) error {
	return xerrors.Wrapf(err, "failed to load config %s", name)
}
