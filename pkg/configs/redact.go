package configs

// redactedMark 替换敏感字段的占位符.
const redactedMark = "******"

func mask(s *string) {
	if *s != "" {
		*s = redactedMark
	}
}

// Redacted 返回隐去口令与密钥的副本，用于打印与排障.
func (c AppConfig) Redacted() AppConfig {
	mask(&c.DB.Password)
	mask(&c.S3.SecretAccessKey)
	mask(&c.MQ.Common.Password)
	mask(&c.MQ.NATS.JWT)
	mask(&c.MQ.NATS.NKey)
	mask(&c.MQ.Redis.Password)
	mask(&c.KV.Redis.Password)
	mask(&c.KV.NATS.Password)
	mask(&c.Container.SharedSecret)
	mask(&c.Container.TokenSecret)
	mask(&c.Permission.ServiceToken)

	return c
}
