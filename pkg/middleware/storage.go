package middleware

import (
	stdctx "context"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/context"
	"github.com/yeisme/codespace/pkg/internal/service"
	"github.com/yeisme/codespace/pkg/internal/storage"
	"github.com/yeisme/codespace/pkg/scheduler"
)

type schedulerKey struct{}

func inject(wrap func(stdctx.Context) stdctx.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(wrap(c.Request.Context()))
		c.Next()
	}
}

// StorageMiddleware 注入存储管理器，健康检查从这里取各客户端.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return inject(func(ctx stdctx.Context) stdctx.Context {
		return context.WithStorageManager(ctx, manager)
	})
}

// ServicesMiddleware 注入业务组件.
func ServicesMiddleware(svc *service.Services) gin.HandlerFunc {
	return inject(func(ctx stdctx.Context) stdctx.Context {
		return context.WithServices(ctx, svc)
	})
}

func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return inject(func(ctx stdctx.Context) stdctx.Context {
		return stdctx.WithValue(ctx, schedulerKey{}, sched)
	})
}

func GetServices(c *gin.Context) *service.Services {
	return context.GetServices(c.Request.Context())
}

// GetScheduler 未注入时返回 nil.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	sched, _ := c.Request.Context().Value(schedulerKey{}).(*scheduler.Scheduler)
	return sched
}
