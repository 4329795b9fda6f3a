package container_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/broadcast"
	"github.com/yeisme/codespace/pkg/internal/collab"
	"github.com/yeisme/codespace/pkg/internal/container"
	"github.com/yeisme/codespace/pkg/internal/filetype"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
)

func setup(t *testing.T) (*container.Gateway, *collab.Bridge, *objstore.Memory, *broadcast.Recorder, *model.Workspace) {
	t.Helper()

	ctx := context.Background()
	store := objstore.NewMemory()
	ws := &model.Workspace{ID: "ws1", StoreName: "ws-ws1", Region: "us-east-1", OwnerID: "alice", Status: model.StatusActive}

	if err := store.CreateBucket(ctx, ws.Bucket()); err != nil {
		t.Fatalf("create bucket: %v", err)
	}

	events := &broadcast.Recorder{}
	bridge := collab.NewBridge(store, collab.NewSessionStore(), collab.NewModeTable(collab.Direct, nil), events, filetype.DefaultReserved)

	return container.NewGateway(bridge, store, events), bridge, store, events, ws
}

func TestBulkContentPrefersSession(t *testing.T) {
	gw, bridge, store, _, ws := setup(t)
	ctx := context.Background()

	png := []byte{0x89, 'P', 'N', 'G', 0, 1}

	for key, data := range map[string][]byte{
		"src/Main.java": []byte("durable"),
		"img/logo.png":  png,
		".sync/lock":    []byte("x"),
	} {
		if _, err := store.PutObject(ctx, ws.Bucket(), key, data, ""); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	if _, err := bridge.SetMode(ctx, ws, collab.Buffered); err != nil {
		t.Fatalf("set mode: %v", err)
	}

	if _, err := bridge.Write(ctx, ws, "src/Main.java", []byte("live"), broadcast.SourceHuman, collab.WriteOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}

	files, err := gw.BulkContent(ctx, ws)
	if err != nil {
		t.Fatalf("bulk content: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("reserved keys must be hidden, got %+v", files)
	}

	byPath := map[string]filetype.Encoded{}
	for _, f := range files {
		byPath[f.Path] = f
	}

	if f := byPath["src/Main.java"]; f.Content != "live" || f.Encoding != "" {
		t.Fatalf("text should come from the session: %+v", f)
	}

	f := byPath["img/logo.png"]
	if f.Encoding != filetype.EncodingBase64 || f.Content != base64.StdEncoding.EncodeToString(png) {
		t.Fatalf("binary should be base64: %+v", f)
	}
}

func TestOTContent(t *testing.T) {
	gw, bridge, _, _, ws := setup(t)
	ctx := context.Background()

	if _, err := gw.OTContent(ctx, ws, "a.txt"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found without session, got %v", err)
	}

	if _, err := bridge.SetMode(ctx, ws, collab.Buffered); err != nil {
		t.Fatalf("set mode: %v", err)
	}

	if _, err := bridge.Write(ctx, ws, "a.txt", []byte("typing"), broadcast.SourceHuman, collab.WriteOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}

	fc, err := gw.OTContent(ctx, ws, "a.txt")
	if err != nil || fc.Content != "typing" {
		t.Fatalf("ot content = %+v %v", fc, err)
	}

	// 引擎里即使有保留 key 的会话也不能透出
	bridge.Engine().Update(ws.ID, ".sync/lock", []byte("internal"))

	if _, err := gw.OTContent(ctx, ws, ".sync/lock"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("reserved key should be not found, got %v", err)
	}
}

func TestSyncFromContainer(t *testing.T) {
	gw, _, store, events, ws := setup(t)
	ctx := context.Background()

	if _, err := gw.SyncFromContainer(ctx, ws, "out/result.txt", "42", false); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if _, err := gw.SyncFromContainer(ctx, ws, "out/result.txt", "43", false); err != nil {
		t.Fatalf("sync: %v", err)
	}

	created := 0

	for _, ev := range events.TreeEvents() {
		if ev.Kind == broadcast.Created {
			created++

			if ev.Source != broadcast.SourceContainer || ev.Path != "out/result.txt" {
				t.Fatalf("unexpected create event %+v", ev)
			}
		}
	}

	if created != 1 {
		t.Fatalf("expected exactly one create event, got %d", created)
	}

	img := []byte{0xff, 0xd8, 0xff}
	if _, err := gw.SyncFromContainer(ctx, ws, "plot.jpg", base64.StdEncoding.EncodeToString(img), true); err != nil {
		t.Fatalf("sync binary: %v", err)
	}

	obj, err := store.GetObject(ctx, ws.Bucket(), "plot.jpg", "")
	if err != nil || string(obj.Content) != string(img) {
		t.Fatalf("binary content mismatch: %v", err)
	}

	if _, err := gw.SyncFromContainer(ctx, ws, "bad.png", "%%%", true); errs.CodeOf(err) != errs.CodeValidation {
		t.Fatalf("bad base64 should fail validation, got %v", err)
	}

	res, err := gw.Flush(ctx, ws)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}

	if res.Saved != 0 || len(res.Keys) != 2 {
		t.Fatalf("flush = %+v", res)
	}
}

func TestStaticSecretVerifier(t *testing.T) {
	v := container.NewStaticSecretVerifier("s3cret")
	ctx := context.Background()

	if err := v.Verify(ctx, "s3cret", "ws1"); err != nil {
		t.Fatalf("valid secret rejected: %v", err)
	}

	for _, bad := range []string{"", "s3cre", "s3cret!"} {
		if err := v.Verify(ctx, bad, "ws1"); !errors.Is(err, errs.ErrPermissionDenied) {
			t.Fatalf("credential %q should be denied, got %v", bad, err)
		}
	}

	if err := container.NewStaticSecretVerifier("").Verify(ctx, "", "ws1"); err == nil {
		t.Fatalf("empty secret must deny everything")
	}
}

func TestTokenVerifier(t *testing.T) {
	v := container.NewTokenVerifier("k", "codespace")
	ctx := context.Background()

	tok, err := v.Issue("ws1", "ctr-1", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := v.Verify(ctx, tok, "ws1"); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}

	if err := v.Verify(ctx, tok, "ws2"); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("token bound to another workspace should be denied, got %v", err)
	}

	expired, _ := v.Issue("ws1", "ctr-1", -time.Minute)
	if err := v.Verify(ctx, expired, "ws1"); err == nil {
		t.Fatalf("expired token accepted")
	}

	other, _ := container.NewTokenVerifier("other", "codespace").Issue("ws1", "ctr-1", time.Minute)
	if err := v.Verify(ctx, other, "ws1"); err == nil {
		t.Fatalf("token signed with another key accepted")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, container.TokenClaims{WorkspaceID: "ws1"})

	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	if err := v.Verify(ctx, unsigned, "ws1"); err == nil {
		t.Fatalf("unsigned token accepted")
	}
}

func TestNewVerifier(t *testing.T) {
	if _, err := container.NewVerifier(configs.ContainerConfig{Mode: "static"}); err == nil {
		t.Fatalf("static mode without secret should fail")
	}

	v, err := container.NewVerifier(configs.ContainerConfig{Mode: "token", TokenSecret: "k"})
	if err != nil {
		t.Fatalf("token verifier: %v", err)
	}

	if _, ok := v.(*container.TokenVerifier); !ok {
		t.Fatalf("unexpected verifier %T", v)
	}

	if _, err := container.NewVerifier(configs.ContainerConfig{Mode: "mtls"}); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}
