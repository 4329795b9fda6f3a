package configs

import "github.com/spf13/viper"

// MQType 消息队列类型.
type MQType string

const (
	MQTypeNATS   MQType = "nats"
	MQTypeRedis  MQType = "redis"
	MQTypeMemory MQType = "memory" // 进程内 gochannel，单实例与测试用

	DefaultMQURL           = "localhost:4222"
	DefaultMQClientID      = "codespace"
	DefaultMaxReconnects   = 5  // 次
	DefaultReconnectWait   = 5  // 秒
	DefaultMaxPingsOut     = 3  // 次
	DefaultPingInterval    = 20 // 秒
	DefaultBufferSize      = 32 * 1024
	DefaultConsumerAckWait = 30 // 秒
)

// MQConfig 事件发布使用的消息队列.
type MQConfig struct {
	Type   MQType         `mapstructure:"type"   rule:"oneof=nats redis memory"`
	Common MQCommonConfig `mapstructure:"common"`
	NATS   MQNATSConfig   `mapstructure:"nats"`
	Redis  MQRedisConfig  `mapstructure:"redis"`
}

// MQCommonConfig NATS 连接参数，以及 watermill 指标端点.
type MQCommonConfig struct {
	URL             string `mapstructure:"url"             rule:"hostname_port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	ClientID        string `mapstructure:"client_id"`
	MaxReconnects   int    `mapstructure:"max_reconnects"  rule:"min=-1,max=100"` // -1 表示无限重连
	ReconnectWait   int    `mapstructure:"reconnect_wait"  rule:"min=1,max=300"`
	StrictConnect   bool   `mapstructure:"strict_connect"` // 启动时连不上直接失败
	MaxPingsOut     int    `mapstructure:"max_pings_out"   rule:"min=1,max=10"`
	PingInterval    int    `mapstructure:"ping_interval"   rule:"min=1,max=300"`
	ReconnectJitter bool   `mapstructure:"reconnect_jitter"`
	BufferSize      int    `mapstructure:"buffer_size"     rule:"min=1024,max=1048576"`
	EnableMetrics   bool   `mapstructure:"enable_metrics"`
	Endpoint        string `mapstructure:"endpoint"` // watermill 指标监听地址
}

// MQNATSConfig NATS 特有配置.
type MQNATSConfig struct {
	JetStreamEnabled       bool     `mapstructure:"jetstream_enabled"`
	JetStreamAutoProvision bool     `mapstructure:"jetstream_auto_provision"`
	JetStreamTrackMsgID    bool     `mapstructure:"jetstream_track_msg_id"`
	JetStreamAckAsync      bool     `mapstructure:"jetstream_ack_async"`
	JetStreamDurablePrefix string   `mapstructure:"jetstream_durable_prefix"`
	ConsumerAckWait        int      `mapstructure:"consumer_ack_wait"` // 秒
	SubjectPrefix          string   `mapstructure:"subject_prefix"`    // load_balance 时作为队列组前缀
	LoadBalance            bool     `mapstructure:"load_balance"`
	JWT                    string   `mapstructure:"jwt"`
	NKey                   string   `mapstructure:"nkey"`
	ClusterURLs            []string `mapstructure:"cluster_urls"`
}

// MQRedisConfig Redis Pub/Sub 配置.
type MQRedisConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

func (c *MQConfig) GetMQType() MQType {
	return c.Type
}

func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeMemory)

	v.SetDefault("mq.common.url", DefaultMQURL)
	v.SetDefault("mq.common.client_id", DefaultMQClientID)
	v.SetDefault("mq.common.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.common.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.common.strict_connect", false)
	v.SetDefault("mq.common.max_pings_out", DefaultMaxPingsOut)
	v.SetDefault("mq.common.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.common.reconnect_jitter", true)
	v.SetDefault("mq.common.buffer_size", DefaultBufferSize)
	v.SetDefault("mq.common.enable_metrics", false)
	v.SetDefault("mq.common.endpoint", ":9092")

	v.SetDefault("mq.nats.jetstream_enabled", true)
	v.SetDefault("mq.nats.jetstream_auto_provision", true)
	v.SetDefault("mq.nats.jetstream_track_msg_id", true)
	v.SetDefault("mq.nats.jetstream_ack_async", true)
	v.SetDefault("mq.nats.jetstream_durable_prefix", "codespace")
	v.SetDefault("mq.nats.consumer_ack_wait", DefaultConsumerAckWait)
	v.SetDefault("mq.nats.subject_prefix", "codespace")
	v.SetDefault("mq.nats.load_balance", true)
	v.SetDefault("mq.nats.cluster_urls", []string{})

	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.password", "")
	v.SetDefault("mq.redis.db", 0)
}
