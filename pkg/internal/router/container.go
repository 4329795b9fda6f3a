package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/internal/handle"
	"github.com/yeisme/codespace/pkg/middleware"
)

// RegisterContainerRoutes 注册容器同步网关路由，g 为 /api/v1.
// 这些路由不走用户身份，由 header 中的容器凭证鉴权.
func RegisterContainerRoutes(g *gin.RouterGroup, header string) {
	ctr := g.Group("/container/workspaces/:id", middleware.ContainerAuth(header))
	{
		ctr.GET("/files", handle.ContainerFiles)
		ctr.POST("/flush", handle.ContainerFlush)
		ctr.GET("/content", compress(), handle.ContainerContent)
		ctr.GET("/ot-content", handle.ContainerOTContent)
		ctr.POST("/sync", handle.ContainerSync)
		ctr.PUT("/mode", handle.ContainerSetMode)
	}
}
