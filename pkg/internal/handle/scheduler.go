package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/middleware"
	"github.com/yeisme/codespace/pkg/scheduler"
)

func getScheduler(c *gin.Context) (*scheduler.Scheduler, bool) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		writeError(c, errs.UpstreamUnavailable("scheduler not running"))
		return nil, false
	}

	return sched, true
}

// SchedulerJobs 返回所有后台任务信息.
//
//	@Summary	后台任务列表
//	@Tags		调度
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/api/v1/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched, ok := getScheduler(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
}

// SchedulerStopJobs 停止所有任务.
//
//	@Summary	停止全部任务
//	@Tags		调度
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/api/v1/scheduler/jobs/stop [post]
func SchedulerStopJobs(c *gin.Context) {
	sched, ok := getScheduler(c)
	if !ok {
		return
	}

	if err := sched.StopJobs(); err != nil {
		writeError(c, errs.Internal("stop jobs").Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "jobs stopped"})
}

// SchedulerRemoveJob 根据 id 删除任务.
//
//	@Summary	删除任务
//	@Tags		调度
//	@Param		job_id	path	string	true	"任务 id"
//	@Success	200		{object}	map[string]string
//	@Failure	400		{object}	errs.Response
//	@Router		/api/v1/scheduler/jobs/{job_id} [delete]
func SchedulerRemoveJob(c *gin.Context) {
	sched, ok := getScheduler(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		writeError(c, errs.Validation("invalid job id").With("job_id", c.Param("job_id")))
		return
	}

	if err := sched.RemoveJob(id); err != nil {
		writeError(c, jobError(err).With("job_id", id.String()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job removed"})
}

// SchedulerRunJob 立即执行一次指定任务.
//
//	@Summary	立即执行任务
//	@Tags		调度
//	@Param		name	path		string	true	"任务名称"
//	@Success	202		{object}	map[string]string
//	@Failure	404		{object}	errs.Response
//	@Router		/api/v1/scheduler/jobs/{name}/run [post]
func SchedulerRunJob(c *gin.Context) {
	sched, ok := getScheduler(c)
	if !ok {
		return
	}

	name := c.Param("job_id")
	if err := sched.RunNow(name); err != nil {
		writeError(c, jobError(err).With("job", name))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered", "job": name})
}

func jobError(err error) *errs.Error {
	if errors.Is(err, scheduler.ErrJobNotFound) {
		return errs.NotFound("job not found").Wrap(err)
	}

	return errs.Internal("scheduler").Wrap(err)
}

// SchedulerQueueWaiting 返回队列中等待的任务数.
//
//	@Summary	等待中的任务数
//	@Tags		调度
//	@Produce	json
//	@Success	200	{object}	map[string]int
//	@Router		/api/v1/scheduler/queue [get]
func SchedulerQueueWaiting(c *gin.Context) {
	sched, ok := getScheduler(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"waiting": sched.JobsWaitingInQueue()})
}
