package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由. /health 并发探测全部依赖，子路径探测单个依赖.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	h := g.Group("/health")
	h.GET("", handle.HealthAll)

	for name, fn := range map[string]gin.HandlerFunc{
		"db": handle.HealthDB,
		"s3": handle.HealthS3,
		"mq": handle.HealthMQ,
		"kv": handle.HealthKV,
	} {
		h.GET("/"+name, fn)
	}
}
