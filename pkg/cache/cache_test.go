package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/codespace/pkg/cache"
	"github.com/yeisme/codespace/pkg/internal/storage/kv"
)

type perms struct {
	CanRead  bool `json:"can_read"`
	CanWrite bool `json:"can_write"`
}

func newCache(t *testing.T, opts ...cache.Option) (*cache.Cache, kv.KVStore) {
	t.Helper()

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	return cache.NewCache(store, opts...), store
}

func TestMissAndHit(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()

	if _, err := cache.Get[perms](ctx, c, "perm:u1"); !errors.Is(err, cache.ErrMiss) || !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("expected miss, got %v", err)
	}

	if err := cache.Set(ctx, c, "perm:u1", perms{CanRead: true}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := cache.Get[perms](ctx, c, "perm:u1")
	if err != nil || !got.CanRead || got.CanWrite {
		t.Fatalf("get = %+v %v", got, err)
	}

	if ok, _ := store.Exists(ctx, cache.DefaultNamespace+"perm:u1"); !ok {
		t.Fatalf("entry should be stored under the namespace")
	}
}

func TestDecodeError(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()

	_ = store.Set(ctx, cache.DefaultNamespace+"bad", []byte("{not json"), 0)

	_, err := cache.Get[perms](ctx, c, "bad")
	if err == nil || errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestGetOrSetLoadsOnce(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	var calls atomic.Int32

	release := make(chan struct{})
	load := func() (perms, error) {
		calls.Add(1)
		<-release

		return perms{CanRead: true, CanWrite: true}, nil
	}

	var wg sync.WaitGroup

	results := make([]perms, 8)
	for i := range results {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			results[i], _ = cache.GetOrSet(ctx, c, "perm:u2", load, time.Minute)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("load called %d times", n)
	}

	for _, r := range results {
		if !r.CanWrite {
			t.Fatalf("unexpected result %+v", r)
		}
	}

	if _, err := cache.GetOrSet(ctx, c, "perm:u2", func() (perms, error) {
		t.Fatalf("cached value should be used")
		return perms{}, nil
	}, time.Minute); err != nil {
		t.Fatalf("get or set: %v", err)
	}
}

func TestGetOrSetLoadError(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	boom := errors.New("upstream down")

	if _, err := cache.GetOrSet(ctx, c, "perm:u3", func() (perms, error) { return perms{}, boom }, time.Minute); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}

	if _, err := cache.Get[perms](ctx, c, "perm:u3"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("failed load must not be cached, got %v", err)
	}
}

func TestInvalidateAndPurge(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()

	for _, k := range []string{"ver:ws1:a.txt", "ver:ws1:src/b.go", "perm:u1"} {
		_ = cache.Set(ctx, c, k, "v", 0)
	}

	_ = store.Set(ctx, "collab:mode:ws1", []byte("buffered"), 0)

	if err := c.Invalidate(ctx, "perm:u1", "perm:missing"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if _, err := cache.Get[string](ctx, c, "perm:u1"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("invalidated key still cached")
	}

	n, err := c.Purge(ctx, "ver:ws1:*")
	if err != nil || n != 2 {
		t.Fatalf("purge = %d %v", n, err)
	}

	if n, _ := c.Purge(ctx, ""); n != 0 {
		t.Fatalf("nothing should be left in the namespace, purged %d", n)
	}

	if _, err := store.Get(ctx, "collab:mode:ws1"); err != nil {
		t.Fatalf("keys outside the namespace must survive purge: %v", err)
	}
}

func TestCustomNamespace(t *testing.T) {
	a, store := newCache(t, cache.WithNamespace("a:"))
	b := cache.NewCache(store, cache.WithNamespace("b:"))
	ctx := context.Background()

	_ = cache.Set(ctx, a, "k", 1, 0)

	if _, err := cache.Get[int](ctx, b, "k"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("namespaces should not share entries")
	}

	if a.Namespace() != "a:" {
		t.Fatalf("namespace = %q", a.Namespace())
	}
}
