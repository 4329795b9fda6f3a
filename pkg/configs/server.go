package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort            = 8080
	DefaultHost            = "0.0.0.0"
	DefaultReloadConfig    = true
	DefaultDebug           = false
	DefaultTimeout         = 30 // 秒
	DefaultShutdownTimeout = 20 // 秒，包含关闭时落盘全部协同会话
)

// ServerConfig HTTP 服务配置.
type ServerConfig struct {
	Port            int    `mapstructure:"port"             rule:"min=1,max=65535"`
	Host            string `mapstructure:"host"             rule:"ip"`
	ReloadConfig    bool   `mapstructure:"reload_config"`
	Debug           bool   `mapstructure:"debug"`
	Timeout         int    `mapstructure:"timeout"          rule:"min=1,max=300"` // 读取请求头超时
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" rule:"min=1,max=600"`
}

func (s *ServerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.reload_config", DefaultReloadConfig)
	v.SetDefault("server.debug", DefaultDebug)
	v.SetDefault("server.timeout", DefaultTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
}
