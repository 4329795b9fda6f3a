package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/access"
	"github.com/yeisme/codespace/pkg/rule"
)

const subjectKey = "subject"

// AuthMiddleware 从 auth.identity_headers 解析调用方，auth.role_header 等于 auth.admin_role 时为系统管理员.
// auth.skip_paths 下的路径（健康检查、容器接口等）不解析身份.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	userHeaders, roleHeader := conf.Identity()

	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		user := identity(c, userHeaders, conf.DevAllowQuery)
		if user == "" {
			if conf.Enabled {
				abort(c, http.StatusUnauthorized, errs.PermissionDenied("missing caller identity"))
				return
			}
		} else if err := rule.ValidateVar(user, "max=320,printascii"); err != nil {
			abortWithError(c, errs.Validation("invalid caller identity").Wrap(err))
			return
		}

		role := parseRole(c.GetHeader(roleHeader), conf.AdminRole)

		c.Set(roleKey, role)
		c.Set(subjectKey, access.Subject{UserID: user, IsSystemAdmin: role == RoleAdmin})
		c.Next()
	}
}

func identity(c *gin.Context, headers []string, allowQuery bool) string {
	for _, h := range headers {
		if v := strings.TrimSpace(c.GetHeader(h)); v != "" {
			return v
		}
	}

	if allowQuery {
		return strings.TrimSpace(c.Query("user"))
	}

	return ""
}

// GetSubject 当前请求的调用方，未经过 AuthMiddleware 时返回零值.
func GetSubject(c *gin.Context) access.Subject {
	if v, ok := c.Get(subjectKey); ok {
		if sub, ok := v.(access.Subject); ok {
			return sub
		}
	}

	return access.Subject{}
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
