package model

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
)

// WorkspaceStatus 工作区生命周期状态.
type WorkspaceStatus string

const (
	StatusCreating WorkspaceStatus = "creating"
	StatusActive   WorkspaceStatus = "active"
	StatusDeleting WorkspaceStatus = "deleting"
	StatusDeleted  WorkspaceStatus = "deleted"
	StatusError    WorkspaceStatus = "error"
)

// 状态只能前进：creating → active → deleting → deleted，任何非终态都可以进入 error.
var forward = map[WorkspaceStatus][]WorkspaceStatus{
	StatusCreating: {StatusActive, StatusError},
	StatusActive:   {StatusDeleting, StatusError},
	StatusDeleting: {StatusDeleted, StatusError},
}

// CanTransition 判断状态迁移是否合法.
func CanTransition(from, to WorkspaceStatus) bool {
	for _, s := range forward[from] {
		if s == to {
			return true
		}
	}

	return false
}

// Terminal deleted 与 error 为终态.
func (s WorkspaceStatus) Terminal() bool {
	return s == StatusDeleted || s == StatusError
}

// Valid 是否为已知状态.
func (s WorkspaceStatus) Valid() bool {
	switch s {
	case StatusCreating, StatusActive, StatusDeleting, StatusDeleted, StatusError:
		return true
	default:
		return false
	}
}

// ErrSubmissionWithoutSnapshot submission_id 只能出现在快照上.
var ErrSubmissionWithoutSnapshot = errors.New("submission_id is only allowed on snapshot workspaces")

// Workspace 工作区，一行对应一个物理 bucket.
type Workspace struct {
	ID string `gorm:"primaryKey;size:26" json:"id"`
	// 物理 bucket 名，全局唯一，创建后不可变
	StoreName string `gorm:"size:63;uniqueIndex;not null" json:"store_name"`
	Region    string `gorm:"size:64;not null"             json:"region"`
	OwnerID   string `gorm:"size:255;index;not null"      json:"owner_id"`

	CourseID     *string `gorm:"size:64;index" json:"course_id,omitempty"`
	AssignmentID *string `gorm:"size:64;index" json:"assignment_id,omitempty"`
	BlockID      *string `gorm:"size:64;index" json:"block_id,omitempty"`

	IsTemplate   bool    `gorm:"index;not null;default:false" json:"is_template"`
	IsSnapshot   bool    `gorm:"index;not null;default:false" json:"is_snapshot"`
	SubmissionID *string `gorm:"size:64;index"                json:"submission_id,omitempty"`
	// 克隆或快照的来源工作区
	SourceID *string `gorm:"size:26;index" json:"source_id,omitempty"`

	Status WorkspaceStatus `gorm:"size:16;index;not null" json:"status"`
	// CAS 版本号，每次状态变更加一
	Revision int64 `gorm:"not null;default:0" json:"revision"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 表名.
func (Workspace) TableName() string { return "workspaces" }

// BeforeSave 校验快照相关字段.
func (w *Workspace) BeforeSave(tx *gorm.DB) error {
	if w.SubmissionID != nil && !w.IsSnapshot {
		return ErrSubmissionWithoutSnapshot
	}

	return nil
}

// Bucket 返回工作区对应的物理存储.
func (w *Workspace) Bucket() objstore.Bucket {
	return objstore.Bucket{Name: w.StoreName, Region: w.Region}
}

// SoftDeleted 是否已软删除.
func (w *Workspace) SoftDeleted() bool {
	return w.DeletedAt.Valid
}

// Writable 工作区是否接受内容写入.
func (w *Workspace) Writable() bool {
	return !w.IsSnapshot && w.Status == StatusActive && !w.SoftDeleted()
}

// Str 便于构造可选字段.
func Str(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Deref 可选字段取值，nil 返回空串.
func Deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

// AllModels 需要迁移的模型.
func AllModels() []any {
	return []any{&Workspace{}}
}
