package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/errs"
)

// Role 表示请求方的系统角色（使用 iota 实现的枚举，数值越大权限越高）。
// 课程内的角色由课程权限服务决定，这里只区分运维层面的权限.
type Role int

const (
	RoleUser Role = iota + 1
	RoleOperator
	RoleAdmin
)

// String 返回角色的字符串表示。
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleOperator:
		return "operator"
	case RoleUser:
		fallthrough
	default:
		return "user"
	}
}

const roleKey = "role"

// parseRole 从字符串解析角色，adminRole 为配置中视为管理员的取值，未知值降级为 user。
func parseRole(s, adminRole string) Role {
	s = strings.ToLower(strings.TrimSpace(s))
	if adminRole == "" {
		adminRole = "admin"
	}

	switch s {
	case strings.ToLower(adminRole):
		return RoleAdmin
	case "operator":
		return RoleOperator
	default:
		return RoleUser
	}
}

// GetRole 从 gin.Context 获取当前请求角色。
func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(roleKey); ok {
		if r, ok2 := v.(Role); ok2 {
			return r
		}
	}

	return RoleUser
}

// RequireMinRole 要求最小角色，不满足则返回 403。
func RequireMinRole(minRole Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r := GetRole(c); r < minRole {
			abort(c, http.StatusForbidden, errs.PermissionDenied("role %s required", minRole).With("role", r.String()))
			return
		}

		c.Next()
	}
}
