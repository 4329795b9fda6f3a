// Package versions 提供工作区文件的历史版本查询与快照来源解析.
//
// 历史版本内容不可变，读取结果按版本缓存；实时读取路径从不缓存.
package versions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/codespace/pkg/cache"
	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/filetype"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
	"github.com/yeisme/codespace/pkg/log"
)

// VersionContent 某个历史版本的内容.
type VersionContent struct {
	filetype.Encoded
	VersionID    string    `json:"version_id"`
	LastModified time.Time `json:"last_modified"`
}

// SourceResolver 查询快照对应的活跃工作区.
type SourceResolver interface {
	ResolveSource(ctx context.Context, snapshotID string) (*model.Workspace, error)
}

// Options Manager 配置.
type Options struct {
	PageSize      int
	Cache         *cache.Cache
	CacheTTL      time.Duration
	MaxEntryBytes int
}

// Manager 历史版本管理.
type Manager struct {
	store    objstore.Store
	sources  SourceResolver
	reserved filetype.Reserved
	opts     Options
	group    singleflight.Group
}

// NewManager 创建 Manager，opts.Cache 为 nil 时不缓存.
func NewManager(store objstore.Store, sources SourceResolver, reserved filetype.Reserved, opts Options) *Manager {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}

	return &Manager{store: store, sources: sources, reserved: reserved, opts: opts}
}

func (m *Manager) path(p string) (string, error) {
	clean, ok := filetype.CleanPath(p)
	if !ok || m.reserved.Match(clean) {
		return "", errs.Validation("invalid path %q", p).With("path", p)
	}

	return clean, nil
}

// ListVersions 列出文件的历史版本，跳过删除标记，按修改时间倒序.
func (m *Manager) ListVersions(ctx context.Context, ws *model.Workspace, path string) ([]objstore.VersionInfo, error) {
	path, err := m.path(path)
	if err != nil {
		return nil, err
	}

	all, err := m.store.ListVersions(ctx, ws.Bucket(), path, m.opts.PageSize)
	if err != nil {
		return nil, err
	}

	out := make([]objstore.VersionInfo, 0, len(all))

	for _, v := range all {
		if v.IsDeleteMarker || v.Key != path {
			continue
		}

		out = append(out, v)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastModified.After(out[j].LastModified)
	})

	return out, nil
}

func (m *Manager) cacheKey(ws *model.Workspace, path, versionID string) string {
	return fmt.Sprintf("ver:%s:%s:%x", ws.StoreName, versionID, xxhash.Sum64String(path))
}

// Forget 清除工作区的历史版本缓存，返回清除的条目数. 物理删除工作区后调用.
func (m *Manager) Forget(ctx context.Context, ws *model.Workspace) int {
	if m.opts.Cache == nil {
		return 0
	}

	n, err := m.opts.Cache.Purge(ctx, "ver:"+ws.StoreName+":*")
	if err != nil {
		log.Logger().Warn().Err(err).Str("workspace_id", ws.ID).Msg("forget cached versions failed")
	}

	return n
}

// GetVersionContent 读取某个历史版本，二进制内容以 base64 返回.
func (m *Manager) GetVersionContent(ctx context.Context, ws *model.Workspace, path, versionID string) (VersionContent, error) {
	path, err := m.path(path)
	if err != nil {
		return VersionContent{}, err
	}

	if versionID == "" {
		return VersionContent{}, errs.Validation("version id is required")
	}

	key := m.cacheKey(ws, path, versionID)

	if m.opts.Cache != nil {
		if v, err := cache.Get[VersionContent](ctx, m.opts.Cache, key); err == nil {
			return v, nil
		}
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		return m.fetch(ctx, ws, path, versionID, key)
	})
	if err != nil {
		return VersionContent{}, err
	}

	return v.(VersionContent), nil
}

func (m *Manager) fetch(ctx context.Context, ws *model.Workspace, path, versionID, key string) (VersionContent, error) {
	obj, err := m.store.GetObject(ctx, ws.Bucket(), path, versionID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return VersionContent{}, errs.NotFound("version %s of %s not found", versionID, path).
				With("path", path).
				With("version_id", versionID)
		}

		return VersionContent{}, err
	}

	vc := VersionContent{
		Encoded:      filetype.Encode(path, obj.Content),
		VersionID:    versionID,
		LastModified: obj.LastModified,
	}

	if m.opts.Cache != nil && (m.opts.MaxEntryBytes <= 0 || len(obj.Content) <= m.opts.MaxEntryBytes) {
		if err := cache.Set(ctx, m.opts.Cache, key, vc, m.opts.CacheTTL); err != nil {
			log.Logger().Debug().Err(err).Str("key", key).Msg("cache version content failed")
		}
	}

	return vc, nil
}

// ResolveSourceWorkspace 快照对应的活跃工作区.
func (m *Manager) ResolveSourceWorkspace(ctx context.Context, snapshotID string) (*model.Workspace, error) {
	return m.sources.ResolveSource(ctx, snapshotID)
}
