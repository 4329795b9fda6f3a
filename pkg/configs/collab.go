package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CollabConfig 协同编辑持久化配置.
type CollabConfig struct {
	DefaultMode         string `mapstructure:"default_mode"          rule:"oneof=direct buffered"`
	AutosaveIdleSeconds int    `mapstructure:"autosave_idle_seconds" rule:"min=0"` // 0 表示关闭自动保存
	AutosaveCron        string `mapstructure:"autosave_cron"`
}

// GetAutosaveIdle 返回会话空闲多久后自动落盘.
func (c *CollabConfig) GetAutosaveIdle() time.Duration {
	return time.Duration(c.AutosaveIdleSeconds) * time.Second
}

func (c *CollabConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("collab.default_mode", "direct")
	v.SetDefault("collab.autosave_idle_seconds", 60)
	v.SetDefault("collab.autosave_cron", "* * * * *")
}
