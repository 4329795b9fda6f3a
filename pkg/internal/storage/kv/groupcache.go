package kv

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/codespace/pkg/configs"
)

// groupcache 的条目一旦装载就不可变. 每次 Set 递增该键的代数，
// 查询时使用 "key#代数" 作为 groupcache 键，旧代数的条目随 LRU 淘汰.
const genSep = "#"

// 同名 group 只能注册一次，重复创建时追加序号.
var groupSeq atomic.Int64

// GroupcacheKV 本地持有权威数据，groupcache 负责热点读.
type GroupcacheKV struct {
	group *groupcache.Group

	mu   sync.RWMutex
	data map[string][]byte // key -> 带 TTL 头部的值
	gens map[string]uint64
}

// NewGroupcacheKV 创建实例，配置了 peers 时注册 HTTP 对等池.
func NewGroupcacheKV(ctx context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.GroupcacheKVConfig)
	if !ok {
		return nil, fmt.Errorf("groupcache kv: unexpected config %T", config)
	}

	g := &GroupcacheKV{
		data: make(map[string][]byte),
		gens: make(map[string]uint64),
	}

	name := cfg.Name
	if groupcache.GetGroup(name) != nil {
		name = name + "-" + strconv.FormatInt(groupSeq.Add(1), 10)
	}

	g.group = groupcache.NewGroup(name, cfg.CacheBytes, groupcache.GetterFunc(g.fill))

	if len(cfg.Peers) > 0 {
		pool := groupcache.NewHTTPPoolOpts(cfg.Self, &groupcache.HTTPPoolOptions{})
		pool.Set(cfg.Peers...)
	}

	return g, nil
}

// fill groupcache 未命中时从本地数据装载.
func (g *GroupcacheKV) fill(_ context.Context, gkey string, dest groupcache.Sink) error {
	key := gkey
	if i := strings.LastIndex(gkey, genSep); i >= 0 {
		key = gkey[:i]
	}

	g.mu.RLock()
	v, ok := g.data[key]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return dest.SetBytes(v)
}

func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	gen, ok := g.gens[key]
	_, present := g.data[key]
	g.mu.RUnlock()

	if !ok || !present {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	var raw []byte
	if err := g.group.Get(ctx, key+genSep+strconv.FormatUint(gen, 10), groupcache.AllocatingByteSliceSink(&raw)); err != nil {
		return nil, fmt.Errorf("groupcache kv: get %s: %w", key, err)
	}

	val, expired, _, err := decodeWithTTL(raw, time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = g.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return append([]byte(nil), val...), nil
}

func (g *GroupcacheKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, _, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.data[key] = encoded
	g.gens[key]++
	g.mu.Unlock()

	return nil
}

// Delete 保留代数，之后重新 Set 不会命中旧条目.
func (g *GroupcacheKV) Delete(ctx context.Context, key string) error {
	g.mu.Lock()
	delete(g.data, key)
	g.mu.Unlock()

	return nil
}

func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	g.mu.RLock()
	v, ok := g.data[key]
	g.mu.RUnlock()

	if !ok {
		return false, nil
	}

	_, expired, _, err := decodeWithTTL(v, time.Now())

	return err == nil && !expired, err
}

func (g *GroupcacheKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	now := time.Now()

	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))

	for k, v := range g.data {
		if _, expired, _, err := decodeWithTTL(v, now); err != nil || expired {
			continue
		}

		if matchPattern(pattern, k) {
			keys = append(keys, k)
		}
	}

	return keys, nil
}

func (g *GroupcacheKV) Close() error { return nil }

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
