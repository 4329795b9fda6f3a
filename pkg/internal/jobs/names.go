package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobCollabAutosave          = "collab.autosave"
	JobWorkspaceReconcileStuck = "workspace.reconcile_stuck"
	JobWorkspacePurgeDeleted   = "workspace.purge_deleted"
)

// Cron 表达式常量，自动保存的频率来自 collab.autosave_cron.
const (
	CronWorkspaceReconcileStuck = "*/5 * * * *"
	CronWorkspacePurgeDeleted   = "30 3 * * *"
)
