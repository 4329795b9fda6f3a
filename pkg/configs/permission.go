package configs

import (
	"time"

	"github.com/spf13/viper"
)

// PermissionConfig 外部课程权限服务配置.
type PermissionConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"   rule:"min=1,max=60"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" rule:"min=0"` // 0 表示不缓存
	ServiceToken    string `mapstructure:"service_token"`
}

// GetTimeout 返回单次权限查询超时.
func (c *PermissionConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetCacheTTL 返回权限缓存时间.
func (c *PermissionConfig) GetCacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *PermissionConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("permission.base_url", "http://localhost:8081")
	v.SetDefault("permission.timeout_seconds", 5)
	v.SetDefault("permission.cache_ttl_seconds", 15)
	v.SetDefault("permission.service_token", "")
}
