package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/log"
)

// ContainerAuth 校验容器的机器凭证. 凭证取自 header，缺省时读取 Authorization: Bearer，
// 校验时绑定路径参数中的工作区 id.
func ContainerAuth(header string) gin.HandlerFunc {
	if header == "" {
		header = "X-Container-Token"
	}

	return func(c *gin.Context) {
		svc := GetServices(c)
		if svc == nil || svc.Verifier == nil {
			abortWithError(c, errs.UpstreamUnavailable("container verifier not initialized"))
			return
		}

		credential := strings.TrimSpace(c.GetHeader(header))
		if credential == "" {
			if v, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
				credential = strings.TrimSpace(v)
			}
		}

		if credential == "" {
			abort(c, http.StatusUnauthorized, errs.PermissionDenied("missing container credential"))
			return
		}

		workspaceID := c.Param("id")
		if err := svc.Verifier.Verify(c.Request.Context(), credential, workspaceID); err != nil {
			log.Logger().Warn().
				Err(err).
				Str("workspace_id", workspaceID).
				Str("client_ip", c.ClientIP()).
				Msg("container credential rejected")
			abortWithError(c, err)

			return
		}

		c.Next()
	}
}
