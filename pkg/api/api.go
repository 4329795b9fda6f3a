// Package api 把各路由组挂载到 gin 引擎，HTTP 接口统一位于 /api/v1 之下.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/internal/router"
	"github.com/yeisme/codespace/pkg/internal/service"
	"github.com/yeisme/codespace/pkg/middleware"
)

// RegisterGroup 注册全部业务路由. 用户接口经过 AuthMiddleware，容器接口只校验容器凭证.
func RegisterGroup(e *gin.Engine, svc *service.Services, cfg *configs.AppConfig) *gin.Engine {
	router.RegisterHealthCheckRoute(e.Group(""))

	// 健康检查不经过熔断，便于在熔断期间探测依赖是否恢复
	v1 := e.Group("/api/v1", middleware.CircuitBreakerMiddleware(cfg.CircuitBreaker))

	router.RegisterContainerRoutes(v1, cfg.Container.Header)

	user := v1.Group("", middleware.AuthMiddleware(cfg.Auth))
	{
		ws := router.RegisterWorkspaceRoutes(user)
		router.RegisterFilesRoutes(ws)
		router.RegisterVersionRoutes(ws, svc.Cache, middleware.CacheConfig{
			TTL:          cfg.Cache.GetVersionTTL(),
			MaxBodyBytes: cfg.Cache.MaxEntryBytes,
		})
		router.RegisterSchedulerRoutes(user)
	}

	router.RegisterSwaggerRoute(e, cfg.Server)

	return e
}
