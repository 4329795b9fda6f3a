package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/internal/handle"
)

// RegisterFilesRoutes 注册工作区内的文件操作路由，g 为 /workspaces.
func RegisterFilesRoutes(g *gin.RouterGroup) {
	single := g.Group("/:id")
	{
		// 目录树
		single.GET("/tree", compress(), handle.GetTree)

		files := single.Group("/files")
		{
			files.POST("", handle.CreateFile)
			files.DELETE("", handle.DeleteFile)
			files.POST("/rename", handle.RenameFile)

			// 内容读写，路径通过 ?path= 或请求体传递
			files.GET("/content", compress(), handle.ReadFile)
			files.PUT("/content", handle.WriteFile)
		}
	}
}
