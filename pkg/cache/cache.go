// Package cache 在 KV 存储之上提供带命名空间的泛型缓存.
//
// 所有键都加上命名空间前缀，和模式表等共用同一个 KV 时互不干扰.
// 值使用 sonic 编码. 未命中返回 ErrMiss，可与 kv.ErrKeyNotFound 一起用 errors.Is 判断.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/codespace/pkg/internal/storage/kv"
	"github.com/yeisme/codespace/pkg/metrics"
)

// DefaultNamespace 默认键前缀.
const DefaultNamespace = "cache:"

// ErrMiss 缓存未命中.
var ErrMiss = fmt.Errorf("cache miss: %w", kv.ErrKeyNotFound)

// Cache 基于 KV 存储的缓存.
type Cache struct {
	store kv.KVStore
	ns    string
	group singleflight.Group
}

// Option 缓存选项.
type Option func(*Cache)

// WithNamespace 替换键前缀，空串表示不加前缀.
func WithNamespace(ns string) Option {
	return func(c *Cache) { c.ns = ns }
}

// NewCache 创建缓存实例.
func NewCache(store kv.KVStore, opts ...Option) *Cache {
	c := &Cache{store: store, ns: DefaultNamespace}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Namespace 当前键前缀.
func (c *Cache) Namespace() string { return c.ns }

func (c *Cache) key(k string) string { return c.ns + k }

// Get 读取并解码缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var v T

	data, err := c.store.Get(ctx, c.key(key))
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			metrics.CacheLookups.WithLabelValues(c.ns, "miss").Inc()
			return v, ErrMiss
		}

		return v, err
	}

	metrics.CacheLookups.WithLabelValues(c.ns, "hit").Inc()

	if err := sonic.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode cache entry %q: %w", key, err)
	}

	return v, nil
}

// Set 编码并写入缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", key, err)
	}

	return c.store.Set(ctx, c.key(key), data, ttl)
}

// GetOrSet 未命中时调用 load 并回填. 同一进程内同一键的并发未命中只调用一次 load，
// 回填失败不影响返回值.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, load func() (T, error), ttl time.Duration) (T, error) {
	if v, err := Get[T](ctx, c, key); err == nil {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		v, err := load()
		if err != nil {
			return v, err
		}

		_ = Set(ctx, c, key, v, ttl)

		return v, nil
	})

	v, _ := res.(T)

	return v, err
}

// Invalidate 删除指定键，不存在的键忽略.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	var errList []error

	for _, k := range keys {
		if err := c.store.Delete(ctx, c.key(k)); err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
			errList = append(errList, err)
		}
	}

	return errors.Join(errList...)
}

// Purge 删除命名空间下匹配 pattern 的键，返回删除数量. pattern 不含前缀，空串表示全部.
func (c *Cache) Purge(ctx context.Context, pattern string) (int, error) {
	if pattern == "" {
		pattern = "*"
	}

	keys, err := c.store.Keys(ctx, c.ns+pattern)
	if err != nil {
		return 0, err
	}

	n := 0

	for _, k := range keys {
		if !strings.HasPrefix(k, c.ns) {
			continue
		}

		if err := c.store.Delete(ctx, k); err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
			return n, err
		}

		n++
	}

	return n, nil
}
