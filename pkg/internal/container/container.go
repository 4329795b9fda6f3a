// Package container 是运行中的代码容器与工作区同步的入口.
//
// 容器通过机器凭证访问，读取时优先拿协同会话中的最新内容，
// 写回时与人工编辑走同一条 Bridge 写入路径.
package container

import (
	"context"
	"errors"

	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/broadcast"
	"github.com/yeisme/codespace/pkg/internal/collab"
	"github.com/yeisme/codespace/pkg/internal/filetype"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
)

// FlushResult 落盘结果.
type FlushResult struct {
	Keys  []string `json:"keys"`
	Saved int      `json:"saved"`
}

// Gateway 容器同步网关.
type Gateway struct {
	bridge *collab.Bridge
	store  objstore.Store
	events broadcast.Publisher
}

// NewGateway 创建 Gateway.
func NewGateway(bridge *collab.Bridge, store objstore.Store, events broadcast.Publisher) *Gateway {
	if events == nil {
		events = broadcast.Noop{}
	}

	return &Gateway{bridge: bridge, store: store, events: events}
}

// List 列出非保留 key.
func (g *Gateway) List(ctx context.Context, ws *model.Workspace) ([]string, error) {
	keys, err := g.store.ListKeys(ctx, ws.Bucket())
	if err != nil {
		return nil, err
	}

	return g.bridge.Reserved().Filter(keys), nil
}

// Flush 落盘所有会话后返回 key 列表.
func (g *Gateway) Flush(ctx context.Context, ws *model.Workspace) (FlushResult, error) {
	saved, err := g.bridge.Flush(ctx, ws)
	if err != nil {
		return FlushResult{}, err
	}

	keys, err := g.List(ctx, ws)
	if err != nil {
		return FlushResult{}, err
	}

	return FlushResult{Keys: keys, Saved: len(saved)}, nil
}

// BulkContent 返回全部文件内容，容器启动时用于初始化.
// 文本优先取会话，二进制从对象存储读取.
func (g *Gateway) BulkContent(ctx context.Context, ws *model.Workspace) ([]filetype.Encoded, error) {
	keys, err := g.List(ctx, ws)
	if err != nil {
		return nil, err
	}

	out := make([]filetype.Encoded, 0, len(keys))

	for _, key := range keys {
		c, err := g.bridge.ReadAuthoritative(ctx, ws, key)
		if err != nil {
			// 列出之后被删除
			if errors.Is(err, errs.ErrNotFound) {
				continue
			}

			return nil, err
		}

		out = append(out, filetype.Encode(key, c.Data))
	}

	return out, nil
}

// OTContent 只返回会话中的内容，没有会话时 NotFound.
func (g *Gateway) OTContent(_ context.Context, ws *model.Workspace, path string) (filetype.Encoded, error) {
	clean, ok := filetype.CleanPath(path)
	if !ok {
		return filetype.Encoded{}, errs.Validation("invalid path %q", path).With("path", path)
	}

	// 保留 key 对容器不可见
	if g.bridge.Reserved().Match(clean) {
		return filetype.Encoded{}, errs.NotFound("no live session for %s", clean).With("path", clean)
	}

	data, ok := g.bridge.Engine().SessionContent(ws.ID, clean)
	if !ok {
		return filetype.Encoded{}, errs.NotFound("no live session for %s", clean).With("path", clean)
	}

	return filetype.Encoded{Path: clean, Content: string(data)}, nil
}

// SyncFromContainer 容器写回，key 原先不存在时额外发出 create.
func (g *Gateway) SyncFromContainer(ctx context.Context, ws *model.Workspace, path, content string, isBinary bool) (collab.WriteResult, error) {
	data, err := filetype.Decode(content, isBinary)
	if err != nil {
		return collab.WriteResult{}, err
	}

	existed, err := g.bridge.Exists(ctx, ws, path)
	if err != nil {
		return collab.WriteResult{}, err
	}

	res, err := g.bridge.Write(ctx, ws, path, data, broadcast.SourceContainer, collab.WriteOptions{})
	if err != nil {
		return collab.WriteResult{}, err
	}

	if !existed {
		g.events.TreeChanged(ctx, broadcast.TreeEvent{
			WorkspaceID: ws.ID,
			Kind:        broadcast.Created,
			Path:        res.Path,
			Source:      broadcast.SourceContainer,
		})
	}

	return res, nil
}

// SetMode 协同引擎切换持久化模式.
func (g *Gateway) SetMode(ctx context.Context, ws *model.Workspace, mode collab.Mode) (collab.Mode, error) {
	return g.bridge.SetMode(ctx, ws, mode)
}
