// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：cs.<域>.<动作>，尽量稳定且向后兼容.
// 域：tree(文件树变化，推送到工作区房间)、workspace(工作区生命周期).

const (
	// 文件树领域，实时广播服务订阅后推送给同一工作区房间的客户端.
	TopicTreeCreated = "cs.tree.created" // 新增文件（创建、重命名目标、容器回写新文件）
	TopicTreeDeleted = "cs.tree.deleted" // 删除文件（删除、重命名源）
	TopicTreeUpdated = "cs.tree.updated" // 文件内容落盘

	// 工作区生命周期领域.
	TopicWorkspaceProvisioned = "cs.workspace.provisioned" // 工作区创建完成（含克隆）
	TopicWorkspaceRetired     = "cs.workspace.retired"     // 工作区已删除
	TopicWorkspaceCloned      = "cs.workspace.cloned"      // 模板克隆完成，附带拷贝清单统计
	TopicWorkspaceSnapshotted = "cs.workspace.snapshotted" // 提交快照完成
	TopicWorkspaceFailed      = "cs.workspace.failed"      // 创建或删除失败，状态进入 error
)

// 主题分组，用于批量订阅.
var (
	TreeTopics = []string{
		TopicTreeCreated, TopicTreeDeleted, TopicTreeUpdated,
	}

	WorkspaceTopics = []string{
		TopicWorkspaceProvisioned, TopicWorkspaceRetired, TopicWorkspaceCloned,
		TopicWorkspaceSnapshotted, TopicWorkspaceFailed,
	}
)
