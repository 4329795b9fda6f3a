// Package middleware 提供 HTTP 中间件：身份解析、容器凭证、限流、熔断、响应缓存、追踪与监控.
//
// 中间件拒绝请求时统一返回 {"error": {"code", "message", "details"}}，与业务处理器保持一致.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/errs"
)

// abort 以指定状态码终止请求.
func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errs.Body(err))
}

// abortWithError 按错误码映射状态码后终止请求.
func abortWithError(c *gin.Context, err error) {
	e := errs.From(err)
	abort(c, errs.HTTPStatus(e.Code), e)
}
