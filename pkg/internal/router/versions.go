package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/cache"
	"github.com/yeisme/codespace/pkg/internal/handle"
	"github.com/yeisme/codespace/pkg/middleware"
)

// RegisterVersionRoutes 注册历史版本路由，g 为 /workspaces.
// c 不为 nil 时缓存历史版本内容的响应.
func RegisterVersionRoutes(g *gin.RouterGroup, c *cache.Cache, cfg middleware.CacheConfig) {
	single := g.Group("/:id")
	{
		single.GET("/source", handle.GetSnapshotSource)
		single.GET("/versions", handle.ListFileVersions)

		content := []gin.HandlerFunc{compress()}
		if c != nil {
			cfg.Cache = c
			content = append(content, middleware.CacheMiddleware(cfg))
		}

		single.GET("/versions/:version_id", append(content, handle.GetFileVersion)...)
	}
}
