// Package handle 提供 HTTP 请求处理器，负责参数绑定、权限入口与错误翻译，业务逻辑在各领域包中.
package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/codespace/pkg/context"
	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/access"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/service"
	"github.com/yeisme/codespace/pkg/log"
	"github.com/yeisme/codespace/pkg/middleware"
	"github.com/yeisme/codespace/pkg/rule"
)

// DefaultHandler 未实现的路由.
func DefaultHandler(c *gin.Context) {
	writeError(c, errs.Internal("not implemented"))
}

// writeError 把错误翻译为 {"error": {...}} 响应，内部原因只写日志.
func writeError(c *gin.Context, err error) {
	e := errs.From(err)
	status := errs.HTTPStatus(e.Code)

	logger := ctxPkg.WithTraceContext(c.Request.Context(), *log.Logger())

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}

	event.Err(err).
		Str("code", string(e.Code)).
		Str("route", c.FullPath()).
		Str("workspace_id", c.Param("id")).
		Msg("request failed")

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errs.Body(e))
}

// services 取注入的业务组件，缺失时直接写错误.
func services(c *gin.Context) (*service.Services, bool) {
	svc := middleware.GetServices(c)
	if svc == nil {
		writeError(c, errs.UpstreamUnavailable("services not initialized"))
		return nil, false
	}

	return svc, true
}

// bindJSON 绑定请求体并按 rule 标签校验.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, errs.Validation("invalid request body").Wrap(err))
		return false
	}

	return validate(c, req)
}

// bindQuery 绑定 query 参数并按 rule 标签校验.
func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		writeError(c, errs.Validation("invalid query").Wrap(err))
		return false
	}

	return validate(c, req)
}

func validate(c *gin.Context, req any) bool {
	if err := rule.ValidateStruct(req); err != nil {
		e := errs.Validation("invalid request").Wrap(err)
		for field, tag := range rule.Errors(err) {
			e = e.With(field, tag)
		}

		writeError(c, e)

		return false
	}

	return true
}

// authorize 加载路径中的工作区并校验调用方的访问级别.
func authorize(c *gin.Context, level access.Level) (*service.Services, *model.Workspace, bool) {
	svc, ok := services(c)
	if !ok {
		return nil, nil, false
	}

	ws, err := svc.Authorize(c.Request.Context(), middleware.GetSubject(c), c.Param("id"), level)
	if err != nil {
		writeError(c, err)
		return nil, nil, false
	}

	return svc, ws, true
}

// queryPath 读取必填的 ?path=.
func queryPath(c *gin.Context) (string, bool) {
	p := c.Query("path")
	if p == "" {
		writeError(c, errs.Validation("path is required"))
		return "", false
	}

	return p, true
}
