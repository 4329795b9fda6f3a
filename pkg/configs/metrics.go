package configs

import "github.com/spf13/viper"

// MetricsConfig Prometheus 指标. 指标挂在业务端口的 /metrics 上.
type MetricsConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	RuntimeMetrics bool              `mapstructure:"runtime_metrics"` // Go 运行时与进程指标
	Labels         map[string]string `mapstructure:"labels"`          // 所有指标附带的常量标签
	Pprof          bool              `mapstructure:"pprof"`
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.labels", map[string]string{"service": AppName})
}
