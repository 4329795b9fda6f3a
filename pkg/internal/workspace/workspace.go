// Package workspace 管理工作区的生命周期：创建、克隆、快照与删除.
//
// 每个工作区对应对象存储中的一个 bucket，元数据由 Registry 保存。状态只会前进，
// 所有状态变更都以 (status, revision) 做 CAS。克隆与快照逐对象并发拷贝，
// 单个对象失败只记入 CopyManifest，不回滚也不影响其它对象.
package workspace

import (
	"context"
	crand "crypto/rand"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/access"
	"github.com/yeisme/codespace/pkg/internal/broadcast"
	"github.com/yeisme/codespace/pkg/internal/filetype"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
	"github.com/yeisme/codespace/pkg/log"
	"github.com/yeisme/codespace/pkg/metrics"
	"github.com/yeisme/codespace/pkg/queue"
)

// ProvisionRequest 创建工作区参数.
type ProvisionRequest struct {
	OwnerID      string `json:"owner_id"                rule:"required,max=255"`
	CourseID     string `json:"course_id,omitempty"     rule:"omitempty,max=64"`
	AssignmentID string `json:"assignment_id,omitempty" rule:"omitempty,max=64"`
	BlockID      string `json:"block_id,omitempty"      rule:"omitempty,max=64"`
	IsTemplate   bool   `json:"is_template"`
	Region       string `json:"region,omitempty"        rule:"omitempty,max=64"`
}

// CloneOverrides 克隆时覆盖的字段，空值继承模板.
type CloneOverrides struct {
	OwnerID      string `json:"owner_id,omitempty"      rule:"omitempty,max=255"`
	CourseID     string `json:"course_id,omitempty"     rule:"omitempty,max=64"`
	AssignmentID string `json:"assignment_id,omitempty" rule:"omitempty,max=64"`
	BlockID      string `json:"block_id,omitempty"      rule:"omitempty,max=64"`
}

// CopyFailure 单个对象拷贝失败.
type CopyFailure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// CopyManifest 一次克隆或快照的逐对象结果.
type CopyManifest struct {
	SourceID string        `json:"source_id"`
	TargetID string        `json:"target_id"`
	Copied   []string      `json:"copied"`
	Failed   []CopyFailure `json:"failed"`
}

// Complete 是否全部拷贝成功.
func (m *CopyManifest) Complete() bool {
	return len(m.Failed) == 0
}

// Flusher 快照前把协同会话落盘.
type Flusher interface {
	Flush(ctx context.Context, ws *model.Workspace) ([]string, error)
}

// Releaser 工作区删除后丢弃其协同会话与模式记录.
type Releaser interface {
	Release(ctx context.Context, ws *model.Workspace) int
}

// Service 工作区生命周期.
type Service struct {
	reg      *Registry
	store    objstore.Store
	gate     *access.Gate
	events   broadcast.Publisher
	cfg      configs.WorkspaceConfig
	region   string
	reserved filetype.Reserved

	flusher  Flusher
	releaser Releaser
}

// NewService 创建 Service，region 为未指定时使用的默认区域.
func NewService(reg *Registry, store objstore.Store, gate *access.Gate, events broadcast.Publisher,
	cfg configs.WorkspaceConfig, region string,
) *Service {
	if events == nil {
		events = broadcast.Noop{}
	}

	if cfg.DefaultRegion != "" {
		region = cfg.DefaultRegion
	}

	if cfg.FanoutConcurrency <= 0 {
		cfg.FanoutConcurrency = configs.DefaultFanoutConcurrency
	}

	if cfg.StorePrefix == "" {
		cfg.StorePrefix = configs.DefaultStorePrefix
	}

	return &Service{
		reg:      reg,
		store:    store,
		gate:     gate,
		events:   events,
		cfg:      cfg,
		region:   region,
		reserved: filetype.Reserved{Prefix: cfg.ReservedPrefix, Suffix: cfg.ReservedSuffix},
	}
}

// SetFlusher 设置快照前的落盘钩子.
func (s *Service) SetFlusher(f Flusher) {
	s.flusher = f
}

// SetReleaser 设置删除后的会话清理钩子.
func (s *Service) SetReleaser(r Releaser) {
	s.releaser = r
}

func (s *Service) release(ctx context.Context, ws *model.Workspace) {
	if s.releaser != nil {
		s.releaser.Release(ctx, ws)
	}
}

// Registry 返回底层 Registry.
func (s *Service) Registry() *Registry {
	return s.reg
}

func (s *Service) newWorkspace(owner, region string) *model.Workspace {
	id := ulid.MustNew(ulid.Now(), crand.Reader).String()

	return &model.Workspace{
		ID:        id,
		StoreName: s.cfg.StorePrefix + "-" + strings.ToLower(id),
		Region:    region,
		OwnerID:   owner,
		Status:    model.StatusCreating,
	}
}

// Provision 创建工作区：插入 creating 行，建 bucket，成功后进入 active.
// 非模板工作区开启版本控制，失败只记录日志.
func (s *Service) Provision(ctx context.Context, req ProvisionRequest) (*model.Workspace, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, errs.Validation("owner_id is required")
	}

	region := req.Region
	if region == "" {
		region = s.region
	}

	ws := s.newWorkspace(req.OwnerID, region)
	ws.CourseID = model.Str(req.CourseID)
	ws.AssignmentID = model.Str(req.AssignmentID)
	ws.BlockID = model.Str(req.BlockID)
	ws.IsTemplate = req.IsTemplate

	if err := s.allocate(ctx, ws); err != nil {
		return nil, err
	}

	if err := s.activate(ctx, ws); err != nil {
		return nil, err
	}

	s.events.WorkspaceChanged(ctx, queue.TopicWorkspaceProvisioned, queue.WorkspaceEventPayload{Workspace: broadcast.Ref(ws)})

	return ws, nil
}

// allocate 插入 creating 行并创建 bucket，bucket 失败时行进入 error.
func (s *Service) allocate(ctx context.Context, ws *model.Workspace) error {
	if err := s.reg.Create(ctx, ws); err != nil {
		return err
	}

	if err := s.store.CreateBucket(ctx, ws.Bucket()); err != nil {
		return s.fail(ctx, ws, "create bucket", err)
	}

	if !ws.IsTemplate && !ws.IsSnapshot {
		if err := s.store.EnableVersioning(ctx, ws.Bucket(), s.cfg.NoncurrentExpiryDays); err != nil {
			log.Logger().Warn().Err(err).
				Str("workspace_id", ws.ID).
				Str("bucket", ws.Bucket().String()).
				Msg("enable versioning failed, continuing without history")
		}
	}

	return nil
}

func (s *Service) activate(ctx context.Context, ws *model.Workspace) error {
	if err := s.reg.Transition(ctx, ws, model.StatusActive); err != nil {
		return s.fail(ctx, ws, "activate", err)
	}

	log.Logger().Info().
		Str("workspace_id", ws.ID).
		Str("bucket", ws.Bucket().String()).
		Str("owner", ws.OwnerID).
		Bool("template", ws.IsTemplate).
		Bool("snapshot", ws.IsSnapshot).
		Msg("workspace provisioned")

	return nil
}

// fail 把工作区置为 error 并返回包装后的原因.
func (s *Service) fail(ctx context.Context, ws *model.Workspace, step string, cause error) error {
	l := log.Logger()

	if model.CanTransition(ws.Status, model.StatusError) {
		if err := s.reg.Transition(ctx, ws, model.StatusError); err != nil {
			l.Error().Err(err).Str("workspace_id", ws.ID).Msg("mark workspace error failed")
		}
	}

	l.Error().Err(cause).
		Str("workspace_id", ws.ID).
		Str("bucket", ws.Bucket().String()).
		Str("step", step).
		Msg("workspace lifecycle step failed")

	s.events.WorkspaceChanged(ctx, queue.TopicWorkspaceFailed, queue.WorkspaceEventPayload{
		Workspace: broadcast.Ref(ws),
		Error:     step,
	})

	e := errs.From(cause)
	if e.Code == errs.CodeInternal {
		return errs.Internal("workspace %s: %s failed", ws.ID, step).With("workspace_id", ws.ID).Wrap(cause)
	}

	return e.With("workspace_id", ws.ID).With("step", step)
}

// Get 面向用户的查询，软删除的工作区视为不存在.
func (s *Service) Get(ctx context.Context, id string) (*model.Workspace, error) {
	ws, err := s.reg.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if ws.SoftDeleted() {
		return nil, errs.NotFound("workspace %s not found", id).With("workspace_id", id)
	}

	return ws, nil
}

// List 按条件列出.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Workspace, error) {
	return s.reg.List(ctx, f)
}

// Transition 外部发起的 CAS 状态变更.
func (s *Service) Transition(ctx context.Context, id string, from, to model.WorkspaceStatus, revision int64) (*model.Workspace, error) {
	return s.reg.TransitionByID(ctx, id, from, to, revision)
}

// Retire 软删除：进入 deleting，删除所有对象与 bucket，最后进入 deleted.
// 快照与仍被克隆引用的模板不可删除；中途失败进入 error，行保持软删除.
func (s *Service) Retire(ctx context.Context, id string) error {
	ws, err := s.reg.Get(ctx, id)
	if err != nil {
		return err
	}

	if ws.IsSnapshot {
		return errs.Immutable("snapshot workspace %s cannot be deleted", id).With("workspace_id", id)
	}

	if ws.Status == model.StatusDeleted {
		return nil
	}

	if ws.IsTemplate {
		inUse, err := s.reg.HasActiveClones(ctx, ws.ID)
		if err != nil {
			return err
		}

		if inUse {
			return errs.Immutable("template %s is still referenced by active workspaces", id).With("workspace_id", id)
		}
	}

	if ws.Status != model.StatusActive {
		return errs.Conflict("workspace %s is %s", id, ws.Status).
			With("workspace_id", id).
			With("status", string(ws.Status))
	}

	if err := s.reg.Transition(ctx, ws, model.StatusDeleting); err != nil {
		return err
	}

	if err := s.store.DeleteAllVersions(ctx, ws.Bucket()); err != nil {
		return s.fail(ctx, ws, "delete objects", err)
	}

	if err := s.store.DeleteBucket(ctx, ws.Bucket()); err != nil {
		return s.fail(ctx, ws, "delete bucket", err)
	}

	if err := s.reg.Transition(ctx, ws, model.StatusDeleted); err != nil {
		return err
	}

	s.release(ctx, ws)

	log.Logger().Info().
		Str("workspace_id", ws.ID).
		Str("bucket", ws.Bucket().String()).
		Msg("workspace retired")

	s.events.WorkspaceChanged(ctx, queue.TopicWorkspaceRetired, queue.WorkspaceEventPayload{Workspace: broadcast.Ref(ws)})

	return nil
}

// HardDelete 物理删除 deleted 或 error 状态的行，bucket 尽力清理.
func (s *Service) HardDelete(ctx context.Context, id string) error {
	ws, err := s.reg.Get(ctx, id)
	if err != nil {
		return err
	}

	if ws.Status != model.StatusDeleted && ws.Status != model.StatusError {
		return errs.Conflict("workspace %s is %s, retire it first", id, ws.Status).
			With("workspace_id", id).
			With("status", string(ws.Status))
	}

	l := log.Logger()

	if err := s.store.DeleteAllVersions(ctx, ws.Bucket()); err != nil {
		l.Warn().Err(err).Str("workspace_id", id).Msg("purge objects failed")
	} else if err := s.store.DeleteBucket(ctx, ws.Bucket()); err != nil {
		l.Warn().Err(err).Str("workspace_id", id).Msg("purge bucket failed")
	}

	if err := s.reg.HardDelete(ctx, id); err != nil {
		return err
	}

	s.release(ctx, ws)

	l.Info().Str("workspace_id", id).Msg("workspace purged")

	return nil
}

// Clone 从模板克隆新工作区.
// 请求方需要对模板有读权限；克隆结果永远不是模板.
func (s *Service) Clone(ctx context.Context, sourceID string, requester access.Subject, o CloneOverrides) (*model.Workspace, *CopyManifest, error) {
	src, err := s.Get(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}

	if !src.IsTemplate {
		return nil, nil, errs.Validation("workspace %s is not a template", sourceID).With("workspace_id", sourceID)
	}

	if src.Status != model.StatusActive {
		return nil, nil, errs.Conflict("template %s is %s", sourceID, src.Status).With("status", string(src.Status))
	}

	if err := s.gate.Require(ctx, requester, src, access.Read); err != nil {
		return nil, nil, err
	}

	owner := firstNonEmpty(o.OwnerID, requester.UserID)
	if owner == "" {
		return nil, nil, errs.Validation("clone owner is required")
	}

	ws := s.newWorkspace(owner, src.Region)
	ws.CourseID = optional(o.CourseID, src.CourseID)
	ws.AssignmentID = optional(o.AssignmentID, src.AssignmentID)
	ws.BlockID = optional(o.BlockID, src.BlockID)
	ws.IsTemplate = false
	ws.SourceID = model.Str(src.ID)

	manifest, err := s.populate(ctx, src, ws, "clone")
	if err != nil {
		return nil, nil, err
	}

	s.events.WorkspaceChanged(ctx, queue.TopicWorkspaceCloned, queue.WorkspaceEventPayload{
		Workspace: broadcast.Ref(ws),
		SourceID:  src.ID,
		Copied:    len(manifest.Copied),
		Failed:    len(manifest.Failed),
	})

	return ws, manifest, nil
}

// Snapshot 为提交创建只读快照.
func (s *Service) Snapshot(ctx context.Context, sourceID, submissionID string) (*model.Workspace, *CopyManifest, error) {
	if strings.TrimSpace(submissionID) == "" {
		return nil, nil, errs.Validation("submission_id is required")
	}

	src, err := s.Get(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}

	if src.IsSnapshot {
		return nil, nil, errs.Validation("workspace %s is already a snapshot", sourceID).With("workspace_id", sourceID)
	}

	if src.Status != model.StatusActive {
		return nil, nil, errs.Conflict("workspace %s is %s", sourceID, src.Status).With("status", string(src.Status))
	}

	if s.flusher != nil {
		if _, err := s.flusher.Flush(ctx, src); err != nil {
			log.Logger().Warn().Err(err).Str("workspace_id", src.ID).Msg("flush before snapshot failed")
		}
	}

	ws := s.newWorkspace(src.OwnerID, src.Region)
	ws.CourseID = src.CourseID
	ws.AssignmentID = src.AssignmentID
	ws.BlockID = src.BlockID
	ws.IsSnapshot = true
	ws.SubmissionID = model.Str(submissionID)
	ws.SourceID = model.Str(src.ID)

	manifest, err := s.populate(ctx, src, ws, "snapshot")
	if err != nil {
		return nil, nil, err
	}

	s.events.WorkspaceChanged(ctx, queue.TopicWorkspaceSnapshotted, queue.WorkspaceEventPayload{
		Workspace:    broadcast.Ref(ws),
		SourceID:     src.ID,
		SubmissionID: submissionID,
		Copied:       len(manifest.Copied),
		Failed:       len(manifest.Failed),
	})

	return ws, manifest, nil
}

// populate 分配新工作区，拷贝来源对象后进入 active.
func (s *Service) populate(ctx context.Context, src, dst *model.Workspace, kind string) (*CopyManifest, error) {
	if err := s.allocate(ctx, dst); err != nil {
		return nil, err
	}

	keys, err := s.store.ListKeys(ctx, src.Bucket())
	if err != nil {
		return nil, s.fail(ctx, dst, "list source objects", err)
	}

	manifest := s.fanout(ctx, src, dst, s.reserved.Filter(keys), kind)

	if err := s.activate(ctx, dst); err != nil {
		return nil, err
	}

	if !manifest.Complete() {
		log.Logger().Warn().
			Str("workspace_id", dst.ID).
			Str("source_id", src.ID).
			Int("copied", len(manifest.Copied)).
			Int("failed", len(manifest.Failed)).
			Msg(kind + " completed with failures")
	}

	return manifest, nil
}

// fanout 并发拷贝，单个失败不取消其它任务.
func (s *Service) fanout(ctx context.Context, src, dst *model.Workspace, keys []string, kind string) *CopyManifest {
	manifest := &CopyManifest{
		SourceID: src.ID,
		TargetID: dst.ID,
		Copied:   make([]string, 0, len(keys)),
		Failed:   []CopyFailure{},
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	g.SetLimit(s.cfg.FanoutConcurrency)

	for _, key := range keys {
		g.Go(func() error {
			err := s.store.CopyObject(ctx, src.Bucket(), key, dst.Bucket(), key)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				manifest.Failed = append(manifest.Failed, CopyFailure{Key: key, Error: string(errs.CodeOf(err))})
				metrics.FanoutObjects.WithLabelValues(kind, "error").Inc()

				log.Logger().Warn().Err(err).
					Str("source_id", src.ID).
					Str("workspace_id", dst.ID).
					Str("key", key).
					Msg("copy object failed")

				return nil
			}

			manifest.Copied = append(manifest.Copied, key)
			metrics.FanoutObjects.WithLabelValues(kind, "ok").Inc()

			return nil
		})
	}

	_ = g.Wait()

	sort.Strings(manifest.Copied)
	sort.Slice(manifest.Failed, func(i, j int) bool { return manifest.Failed[i].Key < manifest.Failed[j].Key })

	return manifest
}

// ResolveSource 快照对应的活跃工作区.
func (s *Service) ResolveSource(ctx context.Context, snapshotID string) (*model.Workspace, error) {
	snap, err := s.Get(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	if !snap.IsSnapshot {
		return nil, errs.Validation("workspace %s is not a snapshot", snapshotID).With("workspace_id", snapshotID)
	}

	return s.reg.FindSource(ctx, snap)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}

func optional(override string, inherited *string) *string {
	if override != "" {
		return model.Str(override)
	}

	return inherited
}
