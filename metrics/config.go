package metrics

// Config 指标系统配置，支持从配置文件的 metrics 段加载：
//
//	metrics:
//	  enabled: true
//	  service_name: "billing"
//	  version: "v1.2.3"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回空实现
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// ServiceName 作为 OpenTelemetry Resource 的 service.name
	ServiceName string `mapstructure:"service_name" yaml:"service_name" json:"service_name"`

	// Version 作为 OpenTelemetry Resource 的 service.version
	Version string `mapstructure:"version" yaml:"version" json:"version"`

	// Port 大于 0 时启动独立的 Prometheus HTTP 服务器。
	// 已有 HTTP 服务（例如 admin 路由）时可保持为 0，改用 admin.WithMetrics 暴露。
	Port int `mapstructure:"port" yaml:"port" json:"port"`

	// Path Prometheus 采集路径，必须以 "/" 开头
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// NewDevDefaultConfig 开发环境默认配置
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Port:        9090,
		Path:        "/metrics",
	}
}
