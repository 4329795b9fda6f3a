package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/internal/handle"
	"github.com/yeisme/codespace/pkg/middleware"
)

// RegisterSchedulerRoutes 注册调度器相关路由，需要 operator 及以上角色.
func RegisterSchedulerRoutes(g *gin.RouterGroup) {
	sched := g.Group("/scheduler", middleware.RequireMinRole(middleware.RoleOperator))
	{
		sched.GET("/jobs", handle.SchedulerJobs)
		sched.POST("/jobs/stop", handle.SchedulerStopJobs)
		sched.DELETE("/jobs/:job_id", handle.SchedulerRemoveJob)
		// :job_id 在这里是任务名称
		sched.POST("/jobs/:job_id/run", handle.SchedulerRunJob)
		sched.GET("/queue", handle.SchedulerQueueWaiting)
	}
}
