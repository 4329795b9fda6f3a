// Package types 定义 HTTP 接口的请求与响应结构.
package types

import (
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/workspace"
)

// ListWorkspacesResponse 工作区列表.
type ListWorkspacesResponse struct {
	Workspaces []model.Workspace `json:"workspaces"`
	Total      int               `json:"total"`
}

// CopyResponse 克隆或快照的结果，manifest 记录逐对象拷贝结果.
type CopyResponse struct {
	Workspace *model.Workspace        `json:"workspace"`
	Manifest  *workspace.CopyManifest `json:"manifest"`
}

// SnapshotRequest 提交快照请求.
type SnapshotRequest struct {
	SubmissionID string `json:"submission_id" rule:"required,max=64"`
}

// RetireResponse 删除结果.
type RetireResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SourceResponse 快照对应的活跃工作区.
type SourceResponse struct {
	SnapshotID string           `json:"snapshot_id"`
	Source     *model.Workspace `json:"source"`
}
