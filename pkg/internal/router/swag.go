package router

import (
	"net"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yeisme/codespace/docs"
	"github.com/yeisme/codespace/pkg/configs"
)

// RegisterSwaggerRoute 仅 debug 模式暴露 /swagger.
func RegisterSwaggerRoute(r *gin.Engine, cfg configs.ServerConfig) {
	if !cfg.Debug {
		return
	}

	docs.SwaggerInfo.Host = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	docs.SwaggerInfo.Version = configs.AppVersion
	docs.SwaggerInfo.Title = configs.AppName

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))
}
