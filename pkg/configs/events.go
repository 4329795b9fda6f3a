package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled   bool                  `mapstructure:"enabled"` // 总开关
	Tree      TreeEventsConfig      `mapstructure:"tree"`
	Workspace WorkspaceEventsConfig `mapstructure:"workspace"`
}

// TreeEventsConfig 文件树变化事件，供实时广播服务推送到工作区房间。
type TreeEventsConfig struct {
	Created bool `mapstructure:"created"`
	Deleted bool `mapstructure:"deleted"`
	Updated bool `mapstructure:"updated"`
}

// WorkspaceEventsConfig 工作区生命周期事件。
type WorkspaceEventsConfig struct {
	Provisioned bool `mapstructure:"provisioned"`
	Retired     bool `mapstructure:"retired"`
	Cloned      bool `mapstructure:"cloned"`
	Snapshotted bool `mapstructure:"snapshotted"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)

	// 文件树的创建与删除是前端刷新的必要信号
	v.SetDefault("events.tree.created", true)
	v.SetDefault("events.tree.deleted", true)
	v.SetDefault("events.tree.updated", false) // 内容更新走协同通道，默认关闭

	v.SetDefault("events.workspace.provisioned", true)
	v.SetDefault("events.workspace.retired", true)
	v.SetDefault("events.workspace.cloned", true)
	v.SetDefault("events.workspace.snapshotted", true)
}
