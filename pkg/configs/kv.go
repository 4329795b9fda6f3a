package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	KVTypeMemory     = "memory"
	KVTypeRedis      = "redis"
	KVTypeNATS       = "nats"
	KVTypeGroupcache = "groupcache"

	DefaultGroupcacheBytes = 512 << 20
	DefaultKVOpTimeout     = 3
)

// KVConfig 共享键值存储. 模式表与权限、版本内容缓存都放在这里，
// 多实例部署时必须用 redis 或 nats，memory 与 groupcache 只在单进程内可见.
type KVConfig struct {
	Type string `mapstructure:"type" rule:"oneof=memory redis nats groupcache"`
	// 单次读写超时（秒）
	OpTimeout  int                `mapstructure:"op_timeout" rule:"min=0"`
	Redis      RedisKVConfig      `mapstructure:"redis"`
	NATS       NATSKVConfig       `mapstructure:"nats"`
	Groupcache GroupcacheKVConfig `mapstructure:"groupcache"`
}

type RedisKVConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

type NATSKVConfig struct {
	URL      string `mapstructure:"url"      rule:"hostname_port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Bucket   string `mapstructure:"bucket"   rule:"required"`
}

type GroupcacheKVConfig struct {
	Name       string   `mapstructure:"name"        rule:"required"`
	CacheBytes int64    `mapstructure:"cache_bytes" rule:"min=1048576"`
	Peers      []string `mapstructure:"peers"       rule:"dive,url"`
	Self       string   `mapstructure:"self"        rule:"omitempty,url"`
}

func (c *KVConfig) GetKVType() string { return c.Type }

// Shared 其他实例能否看到本实例写入的键.
func (c *KVConfig) Shared() bool {
	return c.Type == KVTypeRedis || c.Type == KVTypeNATS
}

func (c *KVConfig) GetOpTimeout() time.Duration {
	return time.Duration(c.OpTimeout) * time.Second
}

func (c *KVConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("kv.type", KVTypeMemory)
	v.SetDefault("kv.op_timeout", DefaultKVOpTimeout)

	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.db", 0)

	v.SetDefault("kv.nats.url", "localhost:4222")
	v.SetDefault("kv.nats.bucket", AppName+"-kv")

	v.SetDefault("kv.groupcache.name", AppName+"-cache")
	v.SetDefault("kv.groupcache.cache_bytes", DefaultGroupcacheBytes)
	v.SetDefault("kv.groupcache.peers", []string{})
	v.SetDefault("kv.groupcache.self", "http://localhost:8080")
}
