package clog

// New 创建一个独立的 Logger 实例
//
// config 为 nil 时使用 NewDevDefaultConfig("")；Config.Capture 非空且未通过 WithHub
// 提供 Hub 时会创建上报 Hub，DSN 无效时返回配置错误。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	c, err := newCore(config, applyOptions(opts...))
	if err != nil {
		return nil, err
	}
	return c.logger(c.options, nil), nil
}
