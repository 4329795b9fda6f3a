package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultStorePrefix          = "ws"       // bucket 名前缀
	DefaultNoncurrentExpiryDays = 30         // 历史版本保留天数
	DefaultFanoutConcurrency    = 16         // 克隆/快照并发拷贝数
	DefaultReservedPrefix       = ".sync/"   // 同步簿记目录，对用户不可见
	DefaultReservedSuffix       = ".partial" // 未完成写入的临时后缀
	DefaultVersionsPageSize     = 100        // 单次列出版本的上限
	DefaultStuckCreatingMinutes = 30         // creating 超过该时长视为失败
	DefaultDeletedRetentionDays = 90         // deleted 行保留天数
)

// WorkspaceConfig 工作区生命周期配置.
type WorkspaceConfig struct {
	StorePrefix          string `mapstructure:"store_prefix"           rule:"required,max=16"`
	DefaultRegion        string `mapstructure:"default_region"`
	NoncurrentExpiryDays int    `mapstructure:"noncurrent_expiry_days" rule:"min=1,max=3650"`
	FanoutConcurrency    int    `mapstructure:"fanout_concurrency"     rule:"min=1,max=256"`
	ReservedPrefix       string `mapstructure:"reserved_prefix"        rule:"required"`
	ReservedSuffix       string `mapstructure:"reserved_suffix"        rule:"required"`
	VersionsPageSize     int    `mapstructure:"versions_page_size"     rule:"min=1,max=1000"`
	StuckCreatingMinutes int    `mapstructure:"stuck_creating_minutes" rule:"min=1"`
	DeletedRetentionDays int    `mapstructure:"deleted_retention_days" rule:"min=1"`
}

// GetStuckCreatingAfter 返回 creating 状态的最大停留时间.
func (c *WorkspaceConfig) GetStuckCreatingAfter() time.Duration {
	return time.Duration(c.StuckCreatingMinutes) * time.Minute
}

// GetDeletedRetention 返回 deleted 行的保留时间.
func (c *WorkspaceConfig) GetDeletedRetention() time.Duration {
	return time.Duration(c.DeletedRetentionDays) * 24 * time.Hour
}

func (c *WorkspaceConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("workspace.store_prefix", DefaultStorePrefix)
	v.SetDefault("workspace.default_region", "") // 为空时回退到 s3.region
	v.SetDefault("workspace.noncurrent_expiry_days", DefaultNoncurrentExpiryDays)
	v.SetDefault("workspace.fanout_concurrency", DefaultFanoutConcurrency)
	v.SetDefault("workspace.reserved_prefix", DefaultReservedPrefix)
	v.SetDefault("workspace.reserved_suffix", DefaultReservedSuffix)
	v.SetDefault("workspace.versions_page_size", DefaultVersionsPageSize)
	v.SetDefault("workspace.stuck_creating_minutes", DefaultStuckCreatingMinutes)
	v.SetDefault("workspace.deleted_retention_days", DefaultDeletedRetentionDays)
}
