// Package kv 提供用于键值存储的接口和实现.
package kv

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/yeisme/codespace/pkg/configs"
)

// Client 进程级 KV 客户端. Shared 为 false 时写入只在本进程可见.
type Client struct {
	KVStore
	Shared bool
}

// KVStore 定义键值存储接口.
type KVStore interface {
	// Get 获取键的值.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 设置键的值，可选过期时间.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete 删除键.
	Delete(ctx context.Context, key string) error
	// Exists 检查键是否存在.
	Exists(ctx context.Context, key string) (bool, error)
	// Keys 列出匹配 pattern 的键，语法同 Redis KEYS.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Close 关闭存储连接.
	Close() error
}

// KVType 键值存储类型.
type KVType string

const (
	KVTypeMemory     KVType = "memory"
	KVTypeRedis      KVType = "redis"
	KVTypeNATS       KVType = "nats"
	KVTypeGroupcache KVType = "groupcache"
)

// KVFactory 定义创建 KVStore 的工厂函数类型.
type KVFactory func(ctx context.Context, config any) (KVStore, error)

// kvFactories 存储 KV 类型到工厂的映射.
var kvFactories = make(map[KVType]KVFactory)

// RegisterKVFactory 注册 KV 工厂函数.
func RegisterKVFactory(kvType KVType, factory KVFactory) {
	kvFactories[kvType] = factory
}

// GetRegisteredKVTypes 已注册的 KV 类型，按名称排序.
func GetRegisteredKVTypes() []KVType {
	return slices.Sorted(maps.Keys(kvFactories))
}

// NewKVStore 根据类型创建 KVStore 实例.
func NewKVStore(ctx context.Context, kvType KVType, config any) (KVStore, error) {
	factory, exists := kvFactories[kvType]
	if !exists {
		return nil, fmt.Errorf("unsupported KV type: %s", kvType)
	}

	return factory(ctx, config)
}

// NewKVClient 创建并返回一个新的 KVClient 实例.
func NewKVClient(ctx context.Context) (*Client, error) {
	cfg := configs.GetConfig().KV

	store, err := NewKVStore(ctx, KVType(cfg.Type), factoryConfig(&cfg))
	if err != nil {
		return nil, err
	}

	if d := cfg.GetOpTimeout(); d > 0 {
		store = WithTimeout(store, d)
	}

	return &Client{KVStore: store, Shared: cfg.Shared()}, nil
}

type timeoutStore struct {
	KVStore
	d time.Duration
}

// WithTimeout 给每次读写加上超时，调用方的 ctx 已有更早截止时间时以调用方为准.
func WithTimeout(s KVStore, d time.Duration) KVStore {
	return &timeoutStore{KVStore: s, d: d}
}

func (t *timeoutStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	return t.KVStore.Get(ctx, key)
}

func (t *timeoutStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	return t.KVStore.Set(ctx, key, value, ttl)
}

func (t *timeoutStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	return t.KVStore.Delete(ctx, key)
}

func (t *timeoutStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	return t.KVStore.Exists(ctx, key)
}

func (t *timeoutStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	return t.KVStore.Keys(ctx, pattern)
}

// factoryConfig 取出对应类型的子配置，工厂按指针类型断言.
func factoryConfig(cfg *configs.KVConfig) any {
	switch KVType(cfg.Type) {
	case KVTypeRedis:
		return &cfg.Redis
	case KVTypeNATS:
		return &cfg.NATS
	case KVTypeGroupcache:
		return &cfg.Groupcache
	default:
		return nil
	}
}

// matchPattern 按 Redis KEYS 的规则匹配：* 匹配任意串（含 /），? 匹配单个字符，
// \ 转义下一个字符. 空串与 "*" 匹配全部键.
func matchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	px, kx := 0, 0
	starPx, starKx := -1, 0

	for kx < len(key) {
		if px < len(pattern) {
			switch c := pattern[px]; c {
			case '*':
				starPx, starKx = px, kx
				px++

				continue
			case '?':
				px++
				kx++

				continue
			case '\\':
				if px+1 < len(pattern) && pattern[px+1] == key[kx] {
					px += 2
					kx++

					continue
				}
			default:
				if c == key[kx] {
					px++
					kx++

					continue
				}
			}
		}

		if starPx < 0 {
			return false
		}

		starKx++
		px, kx = starPx+1, starKx
	}

	for px < len(pattern) && pattern[px] == '*' {
		px++
	}

	return px == len(pattern)
}

// ErrKeyNotFound 键不存在.
var ErrKeyNotFound = errors.New("key not found")
