package collab_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/broadcast"
	"github.com/yeisme/codespace/pkg/internal/collab"
	"github.com/yeisme/codespace/pkg/internal/filetype"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/storage/kv"
	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
)

type harness struct {
	bridge *collab.Bridge
	store  *objstore.Memory
	engine *collab.SessionStore
	events *broadcast.Recorder
	ws     *model.Workspace
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := objstore.NewMemory()
	ws := &model.Workspace{ID: "ws1", StoreName: "ws-ws1", Region: "us-east-1", OwnerID: "alice", Status: model.StatusActive}

	if err := store.CreateBucket(context.Background(), ws.Bucket()); err != nil {
		t.Fatalf("create bucket: %v", err)
	}

	engine := collab.NewSessionStore()
	events := &broadcast.Recorder{}
	bridge := collab.NewBridge(store, engine, collab.NewModeTable(collab.Direct, nil), events, filetype.DefaultReserved)

	return &harness{bridge: bridge, store: store, engine: engine, events: events, ws: ws}
}

func (h *harness) durable(t *testing.T, path string) string {
	t.Helper()

	obj, err := h.store.GetObject(context.Background(), h.ws.Bucket(), path, "")
	if err != nil {
		t.Fatalf("durable read %s: %v", path, err)
	}

	return string(obj.Content)
}

func (h *harness) buffered(t *testing.T) {
	t.Helper()

	if _, err := h.bridge.SetMode(context.Background(), h.ws, collab.Buffered); err != nil {
		t.Fatalf("set mode: %v", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, mode := range []collab.Mode{collab.Direct, collab.Buffered} {
		t.Run(string(mode), func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()

			if _, err := h.bridge.SetMode(ctx, h.ws, mode); err != nil {
				t.Fatalf("set mode: %v", err)
			}

			res, err := h.bridge.Write(ctx, h.ws, "src/Main.java", []byte("class Main {}"), broadcast.SourceHuman, collab.WriteOptions{})
			if err != nil {
				t.Fatalf("write: %v", err)
			}

			if res.Durable != (mode == collab.Direct) {
				t.Fatalf("durable = %v in %s mode", res.Durable, mode)
			}

			c, err := h.bridge.ReadAuthoritative(ctx, h.ws, "src/Main.java")
			if err != nil {
				t.Fatalf("read: %v", err)
			}

			if string(c.Data) != "class Main {}" || c.FromSession != (mode == collab.Buffered) {
				t.Fatalf("unexpected read %+v", c)
			}
		})
	}
}

func TestBufferedDefersDurableWrite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.buffered(t)

	if _, err := h.bridge.Write(ctx, h.ws, "a.txt", []byte("draft"), broadcast.SourceHuman, collab.WriteOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := h.store.GetObject(ctx, h.ws.Bucket(), "a.txt", ""); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("buffered text must not reach the store before flush, got %v", err)
	}

	// 二进制文件在 buffered 模式下也直接落盘
	res, err := h.bridge.Write(ctx, h.ws, "logo.png", []byte{0x89, 'P', 'N', 'G'}, broadcast.SourceHuman, collab.WriteOptions{})
	if err != nil || !res.Durable {
		t.Fatalf("binary write should be durable: %+v %v", res, err)
	}

	if _, ok := h.engine.SessionContent(h.ws.ID, "logo.png"); ok {
		t.Fatalf("binary files never get a session")
	}
}

func TestFlushTwoSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.buffered(t)

	for path, content := range map[string]string{"src/A.java": "a", "src/B.java": "b"} {
		if _, err := h.bridge.Write(ctx, h.ws, path, []byte(content), broadcast.SourceHuman, collab.WriteOptions{}); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	saved, err := h.bridge.Flush(ctx, h.ws)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}

	if len(saved) != 2 || saved[0] != "src/A.java" || saved[1] != "src/B.java" {
		t.Fatalf("saved = %v", saved)
	}

	if h.durable(t, "src/A.java") != "a" || h.durable(t, "src/B.java") != "b" {
		t.Fatalf("durable content does not match sessions")
	}

	// 没有新修改时再次 flush 不落盘
	saved, err = h.bridge.Flush(ctx, h.ws)
	if err != nil || len(saved) != 0 {
		t.Fatalf("second flush = %v %v", saved, err)
	}
}

func TestFlushReportsPartialFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.buffered(t)

	for _, p := range []string{"a.txt", "b.txt"} {
		if _, err := h.bridge.Write(ctx, h.ws, p, []byte(p), broadcast.SourceHuman, collab.WriteOptions{}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	h.store.SetFault(func(op string, _ objstore.Bucket, key string) error {
		if op == "put_object" && key == "a.txt" {
			return errs.UpstreamUnavailable("s3 down")
		}

		return nil
	})

	saved, err := h.bridge.Flush(ctx, h.ws)
	if errs.CodeOf(err) != errs.CodeUpstreamUnavailable {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}

	if len(saved) != 1 || saved[0] != "b.txt" {
		t.Fatalf("saved = %v", saved)
	}
}

func TestRename(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.bridge.Create(ctx, h.ws, "old.txt", []byte("v1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	h.buffered(t)

	if _, err := h.bridge.Write(ctx, h.ws, "old.txt", []byte("v2"), broadcast.SourceHuman, collab.WriteOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := h.bridge.Rename(ctx, h.ws, "old.txt", "dir/new.txt"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if _, err := h.bridge.ReadAuthoritative(ctx, h.ws, "old.txt"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("old path should be gone, got %v", err)
	}

	c, err := h.bridge.ReadAuthoritative(ctx, h.ws, "dir/new.txt")
	if err != nil || string(c.Data) != "v2" || c.FromSession {
		t.Fatalf("new path should hold the buffered content durably: %+v %v", c, err)
	}

	if len(h.engine.Sessions(h.ws.ID)) != 0 {
		t.Fatalf("rename should retire sessions")
	}

	ev := h.events.TreeEvents()
	n := len(ev)

	if n < 2 || ev[n-2].Kind != broadcast.Deleted || ev[n-2].Path != "old.txt" ||
		ev[n-1].Kind != broadcast.Created || ev[n-1].Path != "dir/new.txt" {
		t.Fatalf("unexpected event order %+v", ev)
	}

	if err := h.bridge.Rename(ctx, h.ws, "missing.txt", "other.txt"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("renaming a missing file should be not found, got %v", err)
	}
}

func TestRenameTargetExists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, p := range []string{"a.txt", "b.txt"} {
		if _, err := h.bridge.Create(ctx, h.ws, p, []byte(p)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if err := h.bridge.Rename(ctx, h.ws, "a.txt", "b.txt"); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if h.durable(t, "a.txt") != "a.txt" || h.durable(t, "b.txt") != "b.txt" {
		t.Fatalf("failed rename must not touch either file")
	}
}

func TestDeleteDropsSessionWithoutSaving(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.bridge.Create(ctx, h.ws, "a.txt", []byte("v1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	h.buffered(t)

	if _, err := h.bridge.Write(ctx, h.ws, "a.txt", []byte("unsaved"), broadcast.SourceHuman, collab.WriteOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := h.bridge.Delete(ctx, h.ws, "a.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, ok := h.engine.SessionContent(h.ws.ID, "a.txt"); ok {
		t.Fatalf("session should be retired")
	}

	saved, err := h.bridge.Flush(ctx, h.ws)
	if err != nil || len(saved) != 0 {
		t.Fatalf("deleted session must not be flushed: %v %v", saved, err)
	}

	if _, err := h.store.GetObject(ctx, h.ws.Bucket(), "a.txt", ""); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("object should be deleted, got %v", err)
	}

	if err := h.bridge.Delete(ctx, h.ws, "a.txt"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestCreateConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.bridge.Create(ctx, h.ws, "a.txt", []byte("1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := h.bridge.Create(ctx, h.ws, "a.txt", []byte("2")); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := h.bridge.Create(ctx, h.ws, ".sync/x", []byte("2")); errs.CodeOf(err) != errs.CodeValidation {
		t.Fatalf("reserved path should be rejected, got %v", err)
	}

	if _, err := h.bridge.Create(ctx, h.ws, "../escape", []byte("2")); errs.CodeOf(err) != errs.CodeValidation {
		t.Fatalf("escaping path should be rejected, got %v", err)
	}
}

func TestSnapshotRejectsMutations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ws.IsSnapshot = true

	checks := map[string]error{}

	_, checks["write"] = h.bridge.Write(ctx, h.ws, "a.txt", []byte("x"), broadcast.SourceHuman, collab.WriteOptions{})
	_, checks["create"] = h.bridge.Create(ctx, h.ws, "a.txt", []byte("x"))
	checks["delete"] = h.bridge.Delete(ctx, h.ws, "a.txt")
	checks["rename"] = h.bridge.Rename(ctx, h.ws, "a.txt", "b.txt")

	for op, err := range checks {
		if !errors.Is(err, errs.ErrImmutableResource) {
			t.Errorf("%s: expected immutable, got %v", op, err)
		}
	}
}

func TestLeavingBufferedFlushes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.buffered(t)

	if _, err := h.bridge.Write(ctx, h.ws, "a.txt", []byte("draft"), broadcast.SourceHuman, collab.WriteOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}

	prev, err := h.bridge.SetMode(ctx, h.ws, collab.Direct)
	if err != nil || prev != collab.Buffered {
		t.Fatalf("set mode = %s %v", prev, err)
	}

	if h.durable(t, "a.txt") != "draft" {
		t.Fatalf("content should be flushed on mode change")
	}

	if len(h.engine.Sessions(h.ws.ID)) != 0 {
		t.Fatalf("sessions should be retired on mode change")
	}

	if _, err := h.bridge.SetMode(ctx, h.ws, collab.Mode("lazy")); errs.CodeOf(err) != errs.CodeValidation {
		t.Fatalf("unknown mode should fail validation, got %v", err)
	}
}

func TestDivergenceIsDetectedButWriteProceeds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.bridge.Create(ctx, h.ws, "a.txt", []byte("v1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := h.bridge.Write(ctx, h.ws, "a.txt", []byte("v2"), broadcast.SourceHuman,
		collab.WriteOptions{BaseHash: collab.Hash([]byte("v1"))})
	if err != nil || res.Diverged {
		t.Fatalf("matching base should not diverge: %+v %v", res, err)
	}

	res, err = h.bridge.Write(ctx, h.ws, "a.txt", []byte("v3"), broadcast.SourceContainer,
		collab.WriteOptions{BaseHash: collab.Hash([]byte("v1"))})
	if err != nil || !res.Diverged {
		t.Fatalf("stale base should diverge: %+v %v", res, err)
	}

	if h.durable(t, "a.txt") != "v3" {
		t.Fatalf("last writer should win")
	}
}

type getter map[string]*model.Workspace

func (g getter) Get(_ context.Context, id string) (*model.Workspace, error) {
	if ws, ok := g[id]; ok {
		return ws, nil
	}

	return nil, errs.NotFound("workspace %s not found", id)
}

func TestFlushIdle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.buffered(t)

	if _, err := h.bridge.Write(ctx, h.ws, "a.txt", []byte("draft"), broadcast.SourceHuman, collab.WriteOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}

	h.engine.Update("gone", "x.txt", []byte("orphan"))

	n, err := h.bridge.FlushIdle(ctx, time.Hour, getter{h.ws.ID: h.ws})
	if err != nil || n != 0 {
		t.Fatalf("fresh sessions are not idle: %d %v", n, err)
	}

	time.Sleep(5 * time.Millisecond)

	n, err = h.bridge.FlushIdle(ctx, time.Millisecond, getter{h.ws.ID: h.ws})
	if err != nil || n != 1 {
		t.Fatalf("flush idle = %d %v", n, err)
	}

	if h.durable(t, "a.txt") != "draft" {
		t.Fatalf("idle session should be saved")
	}

	if len(h.engine.Sessions("gone")) != 0 {
		t.Fatalf("sessions of missing workspaces should be dropped")
	}
}

func TestModeTableSharedThroughKV(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("kv: %v", err)
	}

	a := collab.NewModeTable(collab.Direct, store)
	b := collab.NewModeTable(collab.Direct, store)

	if prev := a.Set(ctx, "ws1", collab.Buffered); prev != collab.Direct {
		t.Fatalf("prev = %s", prev)
	}

	if got := b.Get(ctx, "ws1"); got != collab.Buffered {
		t.Fatalf("replica sees %s", got)
	}

	if got := b.Get(ctx, "ws2"); got != collab.Direct {
		t.Fatalf("default = %s", got)
	}

	// 副本之前读到的值不能一直留在本地
	a.Set(ctx, "ws1", collab.Direct)

	if got := b.Get(ctx, "ws1"); got != collab.Direct {
		t.Fatalf("replica keeps stale mode %s after switch back", got)
	}

	a.Set(ctx, "ws1", collab.Buffered)

	if got := b.Get(ctx, "ws1"); got != collab.Buffered {
		t.Fatalf("replica sees %s", got)
	}

	a.Forget(ctx, "ws1")

	if got := b.Get(ctx, "ws1"); got != collab.Direct {
		t.Fatalf("replica keeps forgotten mode %s", got)
	}
}

func TestReleaseDropsSessionsAndMode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.buffered(t)

	for _, p := range []string{"a.txt", "b.txt"} {
		if _, err := h.bridge.Write(ctx, h.ws, p, []byte("draft"), broadcast.SourceHuman, collab.WriteOptions{}); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	if n := h.bridge.Release(ctx, h.ws); n != 2 {
		t.Fatalf("released %d sessions", n)
	}

	if len(h.engine.Sessions(h.ws.ID)) != 0 {
		t.Fatalf("sessions should be dropped")
	}

	if got := h.bridge.Mode(ctx, h.ws); got != collab.Direct {
		t.Fatalf("mode after release = %s", got)
	}

	// 之后的空闲落盘不能再写回已删除的桶
	if n, err := h.bridge.FlushIdle(ctx, 0, getter{h.ws.ID: h.ws}); err != nil || n != 0 {
		t.Fatalf("flush idle after release = %d %v", n, err)
	}

	if _, err := h.store.GetObject(ctx, h.ws.Bucket(), "a.txt", ""); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("released session must not be saved, got %v", err)
	}
}

func TestInactiveWorkspaceRejectsMutations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ws.Status = model.StatusDeleting

	_, err := h.bridge.Write(ctx, h.ws, "a.txt", []byte("x"), broadcast.SourceHuman, collab.WriteOptions{})
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
