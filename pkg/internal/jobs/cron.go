// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"
	"time"

	ctxPkg "github.com/yeisme/codespace/pkg/context"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/service"
	"github.com/yeisme/codespace/pkg/log"
	"github.com/yeisme/codespace/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 按 collab.autosave_cron 落盘空闲的协同会话
//   - 每 5 分钟把卡在 creating 的工作区标记为 error
//   - 每天 03:30 物理删除超过保留期的 deleted 行
func RegisterCronJobs(sched *scheduler.Scheduler, svc *service.Services) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if svc == nil {
		return fmt.Errorf("services is nil")
	}

	cfg := svc.Config()
	baseCtx := ctxPkg.WithServices(context.Background(), svc)

	if idle := cfg.Collab.GetAutosaveIdle(); idle > 0 && cfg.Collab.AutosaveCron != "" {
		if err := sched.AddCron(baseCtx, JobCollabAutosave, cfg.Collab.AutosaveCron, func(ctx context.Context) error {
			_, err := Autosave(ctx, svc, idle)
			return err
		}); err != nil {
			return err
		}
	}

	if err := sched.AddCron(baseCtx, JobWorkspaceReconcileStuck, CronWorkspaceReconcileStuck, func(ctx context.Context) error {
		_, err := ReconcileStuck(ctx, svc, time.Now().Add(-cfg.Workspace.GetStuckCreatingAfter()))
		return err
	}); err != nil {
		return err
	}

	if err := sched.AddCron(baseCtx, JobWorkspacePurgeDeleted, CronWorkspacePurgeDeleted, func(ctx context.Context) error {
		_, err := PurgeDeleted(ctx, svc, time.Now().Add(-cfg.Workspace.GetDeletedRetention()))
		return err
	}); err != nil {
		return err
	}

	return nil
}

// Autosave 落盘空闲超过 idle 的协同会话，返回落盘的文件数.
// 部分工作区失败不影响其它工作区，下一轮重试.
func Autosave(ctx context.Context, svc *service.Services, idle time.Duration) (int, error) {
	l := log.Logger().With().Str("job", JobCollabAutosave).Logger()

	n, err := svc.Bridge.FlushIdle(ctx, idle, svc.Workspaces)
	if n > 0 {
		l.Info().Int("saved", n).Dur("idle", idle).Msg("autosaved idle sessions")
	}

	return n, err
}

// ReconcileStuck 把 before 之前创建且仍为 creating 的工作区标记为 error，返回处理的行数.
func ReconcileStuck(ctx context.Context, svc *service.Services, before time.Time) (int, error) {
	l := log.Logger().With().Str("job", JobWorkspaceReconcileStuck).Logger()

	stuck, err := svc.Registry.ListStuck(ctx, before)
	if err != nil {
		return 0, err
	}

	n := 0

	for i := range stuck {
		ws := &stuck[i]

		// 并发的 Provision 可能刚好完成，CAS 失败时跳过
		if err := svc.Registry.Transition(ctx, ws, model.StatusError); err != nil {
			l.Warn().Err(err).Str("workspace_id", ws.ID).Msg("mark stuck workspace failed")
			continue
		}

		n++

		l.Warn().Str("workspace_id", ws.ID).Time("created_at", ws.CreatedAt).Msg("stuck workspace marked as error")
	}

	return n, nil
}

// PurgeDeleted 物理删除 before 之前进入 deleted 的行.
func PurgeDeleted(ctx context.Context, svc *service.Services, before time.Time) (int64, error) {
	n, err := svc.Registry.PurgeDeleted(ctx, before)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		log.Logger().Info().Str("job", JobWorkspacePurgeDeleted).Int64("purged", n).Time("before", before).Msg("purged deleted workspaces")
	}

	return n, nil
}
