// Package router 管理路由配置，用于设置HTTP服务的路由.
package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/internal/handle"
	"github.com/yeisme/codespace/pkg/middleware"
)

// compress 目录树与文件内容体积较大，单独开启 gzip.
func compress() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression)
}

// RegisterWorkspaceRoutes 注册工作区生命周期路由，g 为 /api/v1.
//
//	POST   /workspaces                 -> ProvisionWorkspace
//	GET    /workspaces                 -> ListWorkspaces
//	GET    /workspaces/:id             -> GetWorkspace
//	DELETE /workspaces/:id             -> RetireWorkspace
//	DELETE /workspaces/:id/purge       -> PurgeWorkspace (admin)
//	POST   /workspaces/:id/clone       -> CloneWorkspace
//	POST   /workspaces/:id/snapshots   -> SnapshotWorkspace
func RegisterWorkspaceRoutes(g *gin.RouterGroup) *gin.RouterGroup {
	ws := g.Group("/workspaces")
	{
		ws.POST("", handle.ProvisionWorkspace)
		ws.GET("", handle.ListWorkspaces)

		single := ws.Group("/:id")
		{
			single.GET("", handle.GetWorkspace)
			single.DELETE("", handle.RetireWorkspace)
			single.DELETE("/purge", middleware.RequireMinRole(middleware.RoleAdmin), handle.PurgeWorkspace)
			single.POST("/clone", handle.CloneWorkspace)
			single.POST("/snapshots", handle.SnapshotWorkspace)
		}
	}

	return ws
}
