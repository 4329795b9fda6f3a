package kv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/codespace/pkg/internal/storage/kv"
)

func TestMemoryKVExpires(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}

	if err := store.Set(ctx, "short", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := store.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	if ok, _ := store.Exists(ctx, "short"); !ok {
		t.Fatalf("expected short to exist before expiry")
	}

	time.Sleep(40 * time.Millisecond)

	if _, err := store.Get(ctx, "short"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after expiry, got %v", err)
	}

	if _, err := store.Get(ctx, "forever"); err != nil {
		t.Fatalf("forever should not expire: %v", err)
	}

	keys, _ := store.Keys(ctx, "")
	if len(keys) != 1 || keys[0] != "forever" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestMemoryKVReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store, _ := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)

	src := []byte("abc")
	_ = store.Set(ctx, "k", src, 0)
	src[0] = 'x'

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if string(got) != "abc" {
		t.Fatalf("stored value mutated through caller slice: %q", got)
	}
}

func TestMemoryKVKeysGlob(t *testing.T) {
	ctx := context.Background()
	store, _ := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)

	_ = store.Set(ctx, "perm:u1:c1", []byte("1"), 0)
	_ = store.Set(ctx, "perm:u2:c1", []byte("1"), 0)
	_ = store.Set(ctx, "ver:w1:a.txt", []byte("1"), 0)

	keys, err := store.Keys(ctx, "perm:*")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}

	if len(keys) != 2 {
		t.Fatalf("expected 2 perm keys, got %v", keys)
	}

	all, _ := store.Keys(ctx, "*")
	if len(all) != 3 {
		t.Fatalf("expected 3 keys for *, got %v", all)
	}
}
