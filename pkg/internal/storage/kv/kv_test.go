package kv_test

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/internal/storage/kv"
)

// stores 返回要跑一致性测试的实现. Redis 与 NATS 需要 KV_REDIS_ADDR / KV_NATS_URL.
func stores(t *testing.T) map[string]kv.KVStore {
	t.Helper()

	ctx := context.Background()
	out := map[string]kv.KVStore{}

	mem, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	out["memory"] = mem

	gc, err := kv.NewKVStore(ctx, kv.KVTypeGroupcache, &configs.GroupcacheKVConfig{Name: "kv-test", CacheBytes: 1 << 20})
	if err != nil {
		t.Fatalf("groupcache kv: %v", err)
	}

	out["groupcache"] = gc

	if addr := os.Getenv("KV_REDIS_ADDR"); addr != "" {
		if s, err := kv.NewKVStore(ctx, kv.KVTypeRedis, &configs.RedisKVConfig{Addr: addr}); err == nil {
			out["redis"] = s
		} else {
			t.Logf("redis unavailable: %v", err)
		}
	}

	if url := os.Getenv("KV_NATS_URL"); url != "" {
		if s, err := kv.NewKVStore(ctx, kv.KVTypeNATS, &configs.NATSKVConfig{URL: url, Bucket: "codespace-kv-test"}); err == nil {
			out["nats"] = s
		} else {
			t.Logf("nats unavailable: %v", err)
		}
	}

	t.Cleanup(func() {
		for _, s := range out {
			_ = s.Close()
		}
	})

	return out
}

func TestOverwriteIsVisible(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := "collab:mode:ws-" + name

			_ = s.Set(ctx, key, []byte("direct"), 0)

			if got, err := s.Get(ctx, key); err != nil || string(got) != "direct" {
				t.Fatalf("first read = %q %v", got, err)
			}

			_ = s.Set(ctx, key, []byte("buffered"), 0)

			if got, err := s.Get(ctx, key); err != nil || string(got) != "buffered" {
				t.Fatalf("read after overwrite = %q %v", got, err)
			}

			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("delete: %v", err)
			}

			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrKeyNotFound) {
				t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
			}

			if ok, _ := s.Exists(ctx, key); ok {
				t.Fatalf("deleted key still exists")
			}
		})
	}
}

func TestTTL(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := "perm:ttl-" + name

			if err := s.Set(ctx, key, []byte("1"), 30*time.Millisecond); err != nil {
				t.Fatalf("set: %v", err)
			}

			if _, err := s.Get(ctx, key); err != nil {
				t.Fatalf("get before expiry: %v", err)
			}

			time.Sleep(60 * time.Millisecond)

			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrKeyNotFound) {
				t.Fatalf("expected expiry, got %v", err)
			}

			if err := s.Set(ctx, key, []byte("1"), -time.Second); err == nil {
				t.Fatalf("negative ttl should be rejected")
			}
		})
	}
}

func TestKeysPatternSpansSlashes(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			prefix := "glob-" + name + ":"
			for _, k := range []string{"ver:ws1:src/main.go", "ver:ws1:a.txt", "ver:ws2:a.txt", "perm:u1"} {
				_ = s.Set(ctx, prefix+k, []byte("x"), time.Minute)
			}

			got, err := s.Keys(ctx, prefix+"ver:ws1:*")
			if err != nil {
				t.Fatalf("keys: %v", err)
			}

			sort.Strings(got)

			want := []string{prefix + "ver:ws1:a.txt", prefix + "ver:ws1:src/main.go"}
			if strings.Join(got, ",") != strings.Join(want, ",") {
				t.Fatalf("keys = %v, want %v", got, want)
			}

			one, _ := s.Keys(ctx, prefix+"ver:ws?:a.txt")
			if len(one) != 2 {
				t.Fatalf("? should match one character, got %v", one)
			}
		})
	}
}

func TestWithTimeout(t *testing.T) {
	ctx := context.Background()

	mem, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}

	s := kv.WithTimeout(mem, time.Second)
	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	if v, err := s.Get(ctx, "k"); err != nil || string(v) != "v" {
		t.Fatalf("get = %q %v", v, err)
	}

	if keys, err := s.Keys(ctx, "*"); err != nil || len(keys) != 1 {
		t.Fatalf("keys = %v %v", keys, err)
	}
}
