package configs

import "github.com/spf13/viper"

// ContainerConfig 容器同步网关的机器凭证配置.
//
//   - static: 所有容器共享同一个密钥
//   - token:  每个容器持有绑定工作区的 HS256 令牌
type ContainerConfig struct {
	Mode         string `mapstructure:"mode"          rule:"oneof=static token"`
	Header       string `mapstructure:"header"        rule:"required"`
	SharedSecret string `mapstructure:"shared_secret"`
	TokenSecret  string `mapstructure:"token_secret"`
	TokenIssuer  string `mapstructure:"token_issuer"`
}

func (c *ContainerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("container.mode", "static")
	v.SetDefault("container.header", "X-Container-Token")
	v.SetDefault("container.shared_secret", "")
	v.SetDefault("container.token_secret", "")
	v.SetDefault("container.token_issuer", AppName)
}
