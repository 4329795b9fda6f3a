package workspace

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/metrics"
)

// Filter 列表过滤条件，空字段不参与过滤.
type Filter struct {
	OwnerID          string                `form:"owner"`
	CourseID         string                `form:"course_id"`
	AssignmentID     string                `form:"assignment_id"`
	BlockID          string                `form:"block_id"`
	Status           model.WorkspaceStatus `form:"status"            rule:"omitempty,oneof=creating active deleting deleted error"`
	IncludeDeleted   bool                  `form:"include_deleted"`
	IncludeSnapshots bool                  `form:"include_snapshots"`
	Limit            int                   `form:"limit"             rule:"omitempty,min=1,max=1000"`
	Offset           int                   `form:"offset"            rule:"omitempty,min=0"`
}

const defaultListLimit = 200

// Registry 工作区元数据的持久化.
type Registry struct {
	db *gorm.DB
}

// NewRegistry 创建 Registry.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Migrate 迁移表结构.
func (r *Registry) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(model.AllModels()...)
}

// Create 插入新行，store_name 冲突返回 Conflict.
func (r *Registry) Create(ctx context.Context, ws *model.Workspace) error {
	if err := r.db.WithContext(ctx).Create(ws).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.Conflict("workspace store name %s already exists", ws.StoreName).Wrap(err)
		}

		if errors.Is(err, model.ErrSubmissionWithoutSnapshot) {
			return errs.Validation("%s", err.Error())
		}

		return errs.Internal("create workspace").Wrap(err)
	}

	return nil
}

// Get 按 id 查询，包含已软删除的行.
func (r *Registry) Get(ctx context.Context, id string) (*model.Workspace, error) {
	var ws model.Workspace

	err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Take(&ws).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("workspace %s not found", id).With("workspace_id", id)
		}

		return nil, errs.Internal("get workspace").Wrap(err)
	}

	return &ws, nil
}

// List 按条件列出，默认排除软删除行与快照.
func (r *Registry) List(ctx context.Context, f Filter) ([]model.Workspace, error) {
	q := r.db.WithContext(ctx).Model(&model.Workspace{})
	if f.IncludeDeleted {
		q = q.Unscoped()
	}

	if !f.IncludeSnapshots {
		q = q.Where("is_snapshot = ?", false)
	}

	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}

	if f.CourseID != "" {
		q = q.Where("course_id = ?", f.CourseID)
	}

	if f.AssignmentID != "" {
		q = q.Where("assignment_id = ?", f.AssignmentID)
	}

	if f.BlockID != "" {
		q = q.Where("block_id = ?", f.BlockID)
	}

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var out []model.Workspace
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, errs.Internal("list workspaces").Wrap(err)
	}

	return out, nil
}

// Transition 以 (status, revision) 做 CAS 更新状态，成功后原地更新 ws.
// 进入 deleting 时同时写入 deleted_at.
func (r *Registry) Transition(ctx context.Context, ws *model.Workspace, to model.WorkspaceStatus) error {
	from := ws.Status
	if !model.CanTransition(from, to) {
		return errs.Conflict("invalid status transition %s -> %s", from, to).
			With("workspace_id", ws.ID).
			With("status", string(from))
	}

	now := time.Now()
	updates := map[string]any{
		"status":     to,
		"revision":   gorm.Expr("revision + 1"),
		"updated_at": now,
	}

	if to == model.StatusDeleting && !ws.DeletedAt.Valid {
		updates["deleted_at"] = now
	}

	res := r.db.WithContext(ctx).Unscoped().
		Model(&model.Workspace{}).
		Where("id = ? AND status = ? AND revision = ?", ws.ID, from, ws.Revision).
		Updates(updates)
	if res.Error != nil {
		return errs.Internal("update workspace status").Wrap(res.Error)
	}

	if res.RowsAffected == 0 {
		return errs.Conflict("workspace %s changed concurrently", ws.ID).
			With("workspace_id", ws.ID).
			With("expected_status", string(from)).
			With("expected_revision", ws.Revision)
	}

	ws.Status = to
	ws.Revision++
	ws.UpdatedAt = now

	if v, ok := updates["deleted_at"]; ok {
		ws.DeletedAt = gorm.DeletedAt{Time: v.(time.Time), Valid: true}
	}

	metrics.WorkspaceTransitions.WithLabelValues(string(from), string(to)).Inc()

	return nil
}

// TransitionByID 按调用方持有的状态与版本号做 CAS.
func (r *Registry) TransitionByID(ctx context.Context, id string, from, to model.WorkspaceStatus, revision int64) (*model.Workspace, error) {
	ws, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if ws.Status != from || ws.Revision != revision {
		return nil, errs.Conflict("workspace %s is %s at revision %d", id, ws.Status, ws.Revision).
			With("workspace_id", id).
			With("status", string(ws.Status)).
			With("revision", ws.Revision)
	}

	if err := r.Transition(ctx, ws, to); err != nil {
		return nil, err
	}

	return ws, nil
}

// HardDelete 物理删除 deleted 或 error 状态的行.
func (r *Registry) HardDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Unscoped().
		Where("id = ? AND status IN ?", id, []model.WorkspaceStatus{model.StatusDeleted, model.StatusError}).
		Delete(&model.Workspace{})
	if res.Error != nil {
		return errs.Internal("purge workspace").Wrap(res.Error)
	}

	if res.RowsAffected > 0 {
		return nil
	}

	ws, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	return errs.Conflict("workspace %s is %s, only deleted or error workspaces can be purged", id, ws.Status).
		With("status", string(ws.Status))
}

// HasActiveClones 模板是否仍被未删除的克隆引用.
func (r *Registry) HasActiveClones(ctx context.Context, templateID string) (bool, error) {
	var n int64

	err := r.db.WithContext(ctx).Model(&model.Workspace{}).
		Where("source_id = ? AND is_snapshot = ? AND status IN ?", templateID, false,
			[]model.WorkspaceStatus{model.StatusCreating, model.StatusActive}).
		Count(&n).Error
	if err != nil {
		return false, errs.Internal("count clones").Wrap(err)
	}

	return n > 0, nil
}

// FindSource 查找与快照同一所有者、作业、题块的活跃工作区，取最新创建的一个.
func (r *Registry) FindSource(ctx context.Context, snap *model.Workspace) (*model.Workspace, error) {
	q := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_snapshot = ? AND is_template = ? AND status = ?",
			snap.OwnerID, false, false, model.StatusActive)
	q = whereOptional(q, "assignment_id", snap.AssignmentID)
	q = whereOptional(q, "block_id", snap.BlockID)

	var ws model.Workspace
	if err := q.Order("created_at DESC").Take(&ws).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("no live workspace for snapshot %s", snap.ID).With("workspace_id", snap.ID)
		}

		return nil, errs.Internal("find source workspace").Wrap(err)
	}

	return &ws, nil
}

func whereOptional(q *gorm.DB, column string, v *string) *gorm.DB {
	if v == nil {
		return q.Where(column + " IS NULL")
	}

	return q.Where(column+" = ?", *v)
}

// ListStuck 列出 before 之前创建仍处于 creating 的行.
func (r *Registry) ListStuck(ctx context.Context, before time.Time) ([]model.Workspace, error) {
	var out []model.Workspace

	err := r.db.WithContext(ctx).Unscoped().
		Where("status = ? AND created_at < ?", model.StatusCreating, before).
		Find(&out).Error
	if err != nil {
		return nil, errs.Internal("list stuck workspaces").Wrap(err)
	}

	return out, nil
}

// PurgeDeleted 物理删除 before 之前已进入 deleted 的行，返回删除行数.
func (r *Registry) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().
		Where("status = ? AND deleted_at < ?", model.StatusDeleted, before).
		Delete(&model.Workspace{})
	if res.Error != nil {
		return 0, errs.Internal("purge deleted workspaces").Wrap(res.Error)
	}

	return res.RowsAffected, nil
}
