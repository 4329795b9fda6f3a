package workspace_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/access"
	"github.com/yeisme/codespace/pkg/internal/broadcast"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
	"github.com/yeisme/codespace/pkg/internal/workspace"
	"github.com/yeisme/codespace/pkg/queue"
)

const region = "us-east-1"

type fixture struct {
	db     *gorm.DB
	reg    *workspace.Registry
	svc    *workspace.Service
	store  *objstore.Memory
	events *broadcast.Recorder
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(configs.SQLiteMemory), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}

	// 内存库每个连接独立，只能用一个连接
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func newFixture(t *testing.T, resolver access.PermissionResolver) *fixture {
	t.Helper()

	db := newTestDB(t)
	reg := workspace.NewRegistry(db)

	if err := reg.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := configs.Defaults().Workspace
	store := objstore.NewMemory()
	events := &broadcast.Recorder{}

	svc := workspace.NewService(reg, store, access.NewGate(resolver), events, cfg, region)

	return &fixture{db: db, reg: reg, svc: svc, store: store, events: events}
}

func (f *fixture) put(t *testing.T, ws *model.Workspace, key, content string) {
	t.Helper()

	if _, err := f.store.PutObject(context.Background(), ws.Bucket(), key, []byte(content), "text/plain"); err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
}

func (f *fixture) template(t *testing.T) *model.Workspace {
	t.Helper()

	tpl, err := f.svc.Provision(context.Background(), workspace.ProvisionRequest{
		OwnerID:      "tpl-owner",
		CourseID:     "cs101",
		AssignmentID: "hw1",
		IsTemplate:   true,
	})
	if err != nil {
		t.Fatalf("provision template: %v", err)
	}

	f.put(t, tpl, "src/Main.java", "class Main {}")
	f.put(t, tpl, "README.md", "# hw1")
	f.put(t, tpl, ".sync/state", "internal")

	return tpl
}

func courseResolver() *access.StaticResolver {
	return &access.StaticResolver{Table: map[string]access.Permissions{
		"alice/cs101":     {CanRead: true, CanWrite: true, Role: access.RoleLearner},
		"tpl-owner/cs101": {CanRead: true, CanWrite: true, CanManage: true, Role: access.RoleTemplate},
	}}
}

func TestProvision(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ws, err := f.svc.Provision(ctx, workspace.ProvisionRequest{OwnerID: "alice", CourseID: "cs101"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	if ws.Status != model.StatusActive || ws.Revision != 1 {
		t.Fatalf("unexpected state %s rev %d", ws.Status, ws.Revision)
	}

	if ws.Region != region || !f.store.BucketExists(ws.Bucket()) {
		t.Fatalf("bucket not created in %s", region)
	}

	if on, days := f.store.VersioningEnabled(ws.Bucket()); !on || days != configs.DefaultNoncurrentExpiryDays {
		t.Fatalf("versioning = %v/%d", on, days)
	}

	tpl, err := f.svc.Provision(ctx, workspace.ProvisionRequest{OwnerID: "bob", IsTemplate: true, Region: "eu-west-1"})
	if err != nil {
		t.Fatalf("provision template: %v", err)
	}

	if on, _ := f.store.VersioningEnabled(tpl.Bucket()); on {
		t.Fatalf("templates should not be versioned")
	}

	if tpl.Region != "eu-west-1" || tpl.StoreName == ws.StoreName {
		t.Fatalf("unexpected template %+v", tpl)
	}

	topics := f.events.WorkspaceTopics()
	if len(topics) != 2 || topics[0] != queue.TopicWorkspaceProvisioned {
		t.Fatalf("unexpected events %v", topics)
	}

	if _, err := f.svc.Provision(ctx, workspace.ProvisionRequest{}); errs.CodeOf(err) != errs.CodeValidation {
		t.Fatalf("missing owner should be validation error, got %v", err)
	}
}

func TestProvisionVersioningFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, nil)

	f.store.SetFault(func(op string, _ objstore.Bucket, _ string) error {
		if op == "enable_versioning" {
			return errs.UpstreamUnavailable("lifecycle api down")
		}

		return nil
	})

	ws, err := f.svc.Provision(context.Background(), workspace.ProvisionRequest{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("provision should succeed: %v", err)
	}

	if ws.Status != model.StatusActive {
		t.Fatalf("status = %s", ws.Status)
	}
}

func TestProvisionBucketFailureMarksError(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.store.SetFault(func(op string, _ objstore.Bucket, _ string) error {
		if op == "create_bucket" {
			return errs.UpstreamTimeout("create bucket timed out")
		}

		return nil
	})

	_, err := f.svc.Provision(ctx, workspace.ProvisionRequest{OwnerID: "alice"})
	if errs.CodeOf(err) != errs.CodeUpstreamTimeout {
		t.Fatalf("expected upstream timeout, got %v", err)
	}

	rows, err := f.reg.List(ctx, workspace.Filter{Status: model.StatusError})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(rows) != 1 || rows[0].OwnerID != "alice" {
		t.Fatalf("expected one errored workspace, got %+v", rows)
	}

	topics := f.events.WorkspaceTopics()
	if len(topics) != 1 || topics[0] != queue.TopicWorkspaceFailed {
		t.Fatalf("unexpected events %v", topics)
	}
}

func TestCloneIsNeverTemplate(t *testing.T) {
	f := newFixture(t, courseResolver())
	ctx := context.Background()
	tpl := f.template(t)

	ws, manifest, err := f.svc.Clone(ctx, tpl.ID, access.Subject{UserID: "alice"}, workspace.CloneOverrides{})
	if err != nil {
		t.Fatalf("clone: %v", err)
	}

	if ws.IsTemplate || ws.OwnerID != "alice" || model.Deref(ws.SourceID) != tpl.ID {
		t.Fatalf("unexpected clone %+v", ws)
	}

	if model.Deref(ws.AssignmentID) != "hw1" || model.Deref(ws.CourseID) != "cs101" {
		t.Fatalf("clone should inherit course binding")
	}

	if !manifest.Complete() || len(manifest.Copied) != 2 {
		t.Fatalf("unexpected manifest %+v", manifest)
	}

	obj, err := f.store.GetObject(ctx, ws.Bucket(), "src/Main.java", "")
	if err != nil || string(obj.Content) != "class Main {}" {
		t.Fatalf("copied content mismatch: %v", err)
	}

	if _, err := f.store.GetObject(ctx, ws.Bucket(), ".sync/state", ""); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("reserved keys must not be copied, got %v", err)
	}

	if on, _ := f.store.VersioningEnabled(ws.Bucket()); !on {
		t.Fatalf("clone should be versioned")
	}
}

func TestClonePartialFailure(t *testing.T) {
	f := newFixture(t, courseResolver())
	ctx := context.Background()
	tpl := f.template(t)

	f.store.SetFault(func(op string, _ objstore.Bucket, key string) error {
		if op == "copy_object" && key == "README.md" {
			return errs.UpstreamUnavailable("copy failed")
		}

		return nil
	})

	ws, manifest, err := f.svc.Clone(ctx, tpl.ID, access.Subject{UserID: "alice"}, workspace.CloneOverrides{})
	if err != nil {
		t.Fatalf("partial failure must not fail the clone: %v", err)
	}

	if ws.Status != model.StatusActive {
		t.Fatalf("status = %s", ws.Status)
	}

	if len(manifest.Copied) != 1 || manifest.Copied[0] != "src/Main.java" {
		t.Fatalf("copied = %v", manifest.Copied)
	}

	if len(manifest.Failed) != 1 || manifest.Failed[0].Key != "README.md" ||
		manifest.Failed[0].Error != string(errs.CodeUpstreamUnavailable) {
		t.Fatalf("failed = %+v", manifest.Failed)
	}
}

func TestCloneChecks(t *testing.T) {
	f := newFixture(t, courseResolver())
	ctx := context.Background()
	tpl := f.template(t)

	_, _, err := f.svc.Clone(ctx, tpl.ID, access.Subject{UserID: "mallory"}, workspace.CloneOverrides{})
	if !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("non member should be denied, got %v", err)
	}

	ws, _, err := f.svc.Clone(ctx, tpl.ID, access.Subject{UserID: "root", IsSystemAdmin: true},
		workspace.CloneOverrides{OwnerID: "alice", AssignmentID: "hw2"})
	if err != nil {
		t.Fatalf("admin clone: %v", err)
	}

	if ws.OwnerID != "alice" || model.Deref(ws.AssignmentID) != "hw2" {
		t.Fatalf("overrides not applied: %+v", ws)
	}

	_, _, err = f.svc.Clone(ctx, ws.ID, access.Subject{UserID: "alice"}, workspace.CloneOverrides{})
	if errs.CodeOf(err) != errs.CodeValidation {
		t.Fatalf("cloning a non template should fail validation, got %v", err)
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ws, err := f.svc.Provision(ctx, workspace.ProvisionRequest{OwnerID: "alice", AssignmentID: "hw1"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	f.put(t, ws, "src/Main.java", "v1")

	snap, manifest, err := f.svc.Snapshot(ctx, ws.ID, "sub-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if !snap.IsSnapshot || model.Deref(snap.SubmissionID) != "sub-1" || snap.Writable() {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if len(manifest.Copied) != 1 {
		t.Fatalf("manifest = %+v", manifest)
	}

	// 快照之后的修改不影响快照
	f.put(t, ws, "src/Main.java", "v2")

	obj, err := f.store.GetObject(ctx, snap.Bucket(), "src/Main.java", "")
	if err != nil || string(obj.Content) != "v1" {
		t.Fatalf("snapshot content changed: %v", err)
	}

	err = f.svc.Retire(ctx, snap.ID)
	if !errors.Is(err, errs.ErrImmutableResource) {
		t.Fatalf("expected immutable, got %v", err)
	}

	if _, _, err := f.svc.Snapshot(ctx, snap.ID, "sub-2"); errs.CodeOf(err) != errs.CodeValidation {
		t.Fatalf("snapshot of snapshot should fail, got %v", err)
	}

	src, err := f.svc.ResolveSource(ctx, snap.ID)
	if err != nil || src.ID != ws.ID {
		t.Fatalf("resolve source = %v, %v", src, err)
	}

	list, err := f.svc.List(ctx, workspace.Filter{OwnerID: "alice"})
	if err != nil || len(list) != 1 {
		t.Fatalf("snapshots should be hidden by default: %d %v", len(list), err)
	}

	list, err = f.svc.List(ctx, workspace.Filter{OwnerID: "alice", IncludeSnapshots: true})
	if err != nil || len(list) != 2 {
		t.Fatalf("include_snapshots: %d %v", len(list), err)
	}
}

type recordingFlusher struct{ calls int }

func (r *recordingFlusher) Flush(context.Context, *model.Workspace) ([]string, error) {
	r.calls++
	return nil, nil
}

func TestSnapshotFlushesFirst(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	fl := &recordingFlusher{}
	f.svc.SetFlusher(fl)

	ws, err := f.svc.Provision(ctx, workspace.ProvisionRequest{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	if _, _, err := f.svc.Snapshot(ctx, ws.ID, "sub-1"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if fl.calls != 1 {
		t.Fatalf("flusher called %d times", fl.calls)
	}
}

func TestRetire(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ws, err := f.svc.Provision(ctx, workspace.ProvisionRequest{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	f.put(t, ws, "a.txt", "1")
	f.put(t, ws, "a.txt", "2")

	if err := f.svc.Retire(ctx, ws.ID); err != nil {
		t.Fatalf("retire: %v", err)
	}

	if f.store.BucketExists(ws.Bucket()) {
		t.Fatalf("bucket should be removed")
	}

	if _, err := f.svc.Get(ctx, ws.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("retired workspace should be hidden, got %v", err)
	}

	row, err := f.reg.Get(ctx, ws.ID)
	if err != nil {
		t.Fatalf("registry get: %v", err)
	}

	if row.Status != model.StatusDeleted || !row.SoftDeleted() || row.Revision != 3 {
		t.Fatalf("unexpected row %s rev %d deleted=%v", row.Status, row.Revision, row.SoftDeleted())
	}

	list, _ := f.svc.List(ctx, workspace.Filter{})
	if len(list) != 0 {
		t.Fatalf("deleted rows should be excluded by default")
	}

	list, _ = f.svc.List(ctx, workspace.Filter{IncludeDeleted: true})
	if len(list) != 1 {
		t.Fatalf("include_deleted should return the row")
	}

	if err := f.svc.Retire(ctx, ws.ID); err != nil {
		t.Fatalf("retire should be idempotent: %v", err)
	}
}

type recordingReleaser struct{ released []string }

func (r *recordingReleaser) Release(_ context.Context, ws *model.Workspace) int {
	r.released = append(r.released, ws.ID)
	return 0
}

func TestRetireReleasesSessions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	rel := &recordingReleaser{}
	f.svc.SetReleaser(rel)

	ws, err := f.svc.Provision(ctx, workspace.ProvisionRequest{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	if err := f.svc.Retire(ctx, ws.ID); err != nil {
		t.Fatalf("retire: %v", err)
	}

	if len(rel.released) != 1 || rel.released[0] != ws.ID {
		t.Fatalf("retire released %v", rel.released)
	}

	if err := f.svc.HardDelete(ctx, ws.ID); err != nil {
		t.Fatalf("hard delete: %v", err)
	}

	if len(rel.released) != 2 {
		t.Fatalf("hard delete should release again, got %v", rel.released)
	}
}

func TestRetireFailureMarksError(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	rel := &recordingReleaser{}
	f.svc.SetReleaser(rel)

	ws, err := f.svc.Provision(ctx, workspace.ProvisionRequest{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	f.put(t, ws, "a.txt", "1")

	f.store.SetFault(func(op string, _ objstore.Bucket, _ string) error {
		if op == "delete_all_versions" {
			return errs.UpstreamUnavailable("s3 down")
		}

		return nil
	})

	if err := f.svc.Retire(ctx, ws.ID); errs.CodeOf(err) != errs.CodeUpstreamUnavailable {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}

	row, err := f.reg.Get(ctx, ws.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if row.Status != model.StatusError || !row.SoftDeleted() {
		t.Fatalf("row should be errored and soft-deleted: %s %v", row.Status, row.SoftDeleted())
	}

	if len(rel.released) != 0 {
		t.Fatalf("failed retire should not release yet: %v", rel.released)
	}

	f.store.SetFault(nil)

	if err := f.svc.HardDelete(ctx, ws.ID); err != nil {
		t.Fatalf("hard delete: %v", err)
	}

	if len(rel.released) != 1 {
		t.Fatalf("hard delete of errored row should release, got %v", rel.released)
	}

	if _, err := f.reg.Get(ctx, ws.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("row should be gone, got %v", err)
	}

	if f.store.BucketExists(ws.Bucket()) {
		t.Fatalf("hard delete should clean the bucket")
	}
}

func TestRetireTemplateInUse(t *testing.T) {
	f := newFixture(t, courseResolver())
	ctx := context.Background()
	tpl := f.template(t)

	clone, _, err := f.svc.Clone(ctx, tpl.ID, access.Subject{UserID: "alice"}, workspace.CloneOverrides{})
	if err != nil {
		t.Fatalf("clone: %v", err)
	}

	if err := f.svc.Retire(ctx, tpl.ID); !errors.Is(err, errs.ErrImmutableResource) {
		t.Fatalf("template in use should be immutable, got %v", err)
	}

	if err := f.svc.Retire(ctx, clone.ID); err != nil {
		t.Fatalf("retire clone: %v", err)
	}

	if err := f.svc.Retire(ctx, tpl.ID); err != nil {
		t.Fatalf("retire template: %v", err)
	}
}

func TestHardDeleteRequiresRetire(t *testing.T) {
	f := newFixture(t, nil)

	ws, err := f.svc.Provision(context.Background(), workspace.ProvisionRequest{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	if err := f.svc.HardDelete(context.Background(), ws.ID); errs.CodeOf(err) != errs.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestTransitionCAS(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ws, err := f.svc.Provision(ctx, workspace.ProvisionRequest{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	if _, err := f.svc.Transition(ctx, ws.ID, model.StatusActive, model.StatusError, ws.Revision-1); errs.CodeOf(err) != errs.CodeConflict {
		t.Fatalf("stale revision should conflict, got %v", err)
	}

	if _, err := f.svc.Transition(ctx, ws.ID, model.StatusActive, model.StatusCreating, ws.Revision); errs.CodeOf(err) != errs.CodeConflict {
		t.Fatalf("backward transition should conflict, got %v", err)
	}

	// 持有旧快照的调用方写入失败
	stale := *ws

	updated, err := f.svc.Transition(ctx, ws.ID, model.StatusActive, model.StatusError, ws.Revision)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}

	if updated.Status != model.StatusError || updated.Revision != ws.Revision+1 {
		t.Fatalf("unexpected %s rev %d", updated.Status, updated.Revision)
	}

	if err := f.reg.Transition(ctx, &stale, model.StatusDeleting); errs.CodeOf(err) != errs.CodeConflict {
		t.Fatalf("stale CAS should conflict, got %v", err)
	}
}

func TestDuplicateStoreName(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := &model.Workspace{ID: "01A", StoreName: "ws-dup", Region: region, OwnerID: "alice", Status: model.StatusCreating}
	b := &model.Workspace{ID: "01B", StoreName: "ws-dup", Region: region, OwnerID: "bob", Status: model.StatusCreating}

	if err := f.reg.Create(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.reg.Create(ctx, b); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("duplicate store name should conflict, got %v", err)
	}

	c := &model.Workspace{ID: "01C", StoreName: "ws-c", Region: region, OwnerID: "bob", Status: model.StatusCreating, SubmissionID: model.Str("s")}
	if err := f.reg.Create(ctx, c); errs.CodeOf(err) != errs.CodeValidation {
		t.Fatalf("submission without snapshot should fail validation, got %v", err)
	}
}

func TestReconcileQueries(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)

	stuck := &model.Workspace{ID: "01S", StoreName: "ws-stuck", Region: region, OwnerID: "alice", Status: model.StatusCreating}
	if err := f.reg.Create(ctx, stuck); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.db.Model(&model.Workspace{}).Where("id = ?", stuck.ID).UpdateColumn("created_at", old).Error; err != nil {
		t.Fatalf("age row: %v", err)
	}

	rows, err := f.reg.ListStuck(ctx, time.Now().Add(-time.Hour))
	if err != nil || len(rows) != 1 || rows[0].ID != stuck.ID {
		t.Fatalf("list stuck = %+v %v", rows, err)
	}

	ws, err := f.svc.Provision(ctx, workspace.ProvisionRequest{OwnerID: "bob"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	if err := f.svc.Retire(ctx, ws.ID); err != nil {
		t.Fatalf("retire: %v", err)
	}

	n, err := f.reg.PurgeDeleted(ctx, time.Now().Add(-time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("recent rows must be kept: %d %v", n, err)
	}

	n, err = f.reg.PurgeDeleted(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("purge = %d %v", n, err)
	}
}
