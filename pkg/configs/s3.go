package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// S3Config MinIO S3存储配置.
// 工作区的 bucket 按需创建，这里的 Region 只作为未指定区域时的兜底.
type S3Config struct {
	Type             string `mapstructure:"type"               rule:"oneof=minio memory"`
	Endpoint         string `mapstructure:"endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Region           string `mapstructure:"region"             rule:"required"`
	OpTimeoutSeconds int    `mapstructure:"op_timeout_seconds" rule:"min=1,max=600"`
}

const (
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3Region          = "us-east-1"      // 默认区域
	DefaultS3Type            = "minio"          // 默认后端
	DefaultS3OpTimeout       = 15               // 单次对象存储调用超时，单位秒
)

// GetOpTimeout 返回单次对象存储调用的超时时间.
func (c *S3Config) GetOpTimeout() time.Duration {
	return time.Duration(c.OpTimeoutSeconds) * time.Second
}

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.type", DefaultS3Type)
	v.SetDefault("s3.op_timeout_seconds", DefaultS3OpTimeout)
}
