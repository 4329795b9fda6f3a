package configs

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultRateLimitEnabled = false
	DefaultRateLimitRPS     = 50.0
	DefaultRateLimitBurst   = 100
	DefaultRateLimitKey     = "ip"
)

// RateLimitConfig 入口限流. 超限的请求返回 429.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"min=0"`
	Burst   int     `mapstructure:"burst" rule:"min=0"`
	// global | ip | user | header:<name>
	Key string `mapstructure:"key"`
}

// KeyMode 归一化后的限流维度，未知取值按 ip 处理.
func (c *RateLimitConfig) KeyMode() string {
	k := strings.ToLower(strings.TrimSpace(c.Key))

	switch {
	case k == "" || k == "global":
		return "global"
	case k == "user", strings.HasPrefix(k, "header:"):
		return k
	default:
		return "ip"
	}
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
}
