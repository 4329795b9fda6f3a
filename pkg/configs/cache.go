package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CacheConfig 缓存配置，只作用于不可变数据（历史版本内容等）.
type CacheConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	VersionTTLHours int  `mapstructure:"version_ttl_hours" rule:"min=1"`
	MaxEntryBytes   int  `mapstructure:"max_entry_bytes"   rule:"min=0"`
}

// GetVersionTTL 返回历史版本内容的缓存时间.
func (c *CacheConfig) GetVersionTTL() time.Duration {
	return time.Duration(c.VersionTTLHours) * time.Hour
}

func (c *CacheConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.version_ttl_hours", 24)
	v.SetDefault("cache.max_entry_bytes", 4<<20) // 4MB
}
