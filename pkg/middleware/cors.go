package middleware

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/configs"
)

// CORSMiddleware CORS中间件.
func CORSMiddleware(cfg configs.ServerConfig, auth configs.AuthConfig, container configs.ContainerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowWebSockets = true

	users, role := auth.Identity()
	config.AddAllowHeaders(slices.Concat(users, []string{"Authorization", role, container.Header})...)
	config.AddExposeHeaders("X-Cache", "ETag")

	// 本地调试时回显 Origin 并允许携带 cookie
	if cfg.Debug && auth.DevAllowQuery {
		config.AllowAllOrigins = false
		config.AllowOriginFunc = func(string) bool { return true }
		config.AllowCredentials = true
	}

	return cors.New(config)
}
