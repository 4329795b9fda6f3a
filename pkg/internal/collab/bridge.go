// Package collab 连接协同编辑引擎与对象存储.
//
// 人工编辑与容器写回都经过 Bridge。direct 模式下每次写入立即落盘；
// buffered 模式下文本文件以内存会话为准，直到 flush。二进制文件永远直接落盘.
// 读取优先使用会话内容，保证容器不会读到比编辑器更旧的内容.
package collab

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/broadcast"
	"github.com/yeisme/codespace/pkg/internal/filetype"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
	"github.com/yeisme/codespace/pkg/log"
	"github.com/yeisme/codespace/pkg/metrics"
)

// Hash 内容指纹，与 WriteOptions.BaseHash 比较.
func Hash(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

// WriteOptions 写入选项.
type WriteOptions struct {
	// BaseHash 写入方认为的当前内容指纹，为空时不检测分歧
	BaseHash string
}

// WriteResult 写入结果.
type WriteResult struct {
	Path      string `json:"path"`
	Durable   bool   `json:"durable"`
	Diverged  bool   `json:"diverged,omitempty"`
	VersionID string `json:"version_id,omitempty"`
}

// Content 读取结果.
type Content struct {
	Path        string
	Data        []byte
	Kind        filetype.Kind
	FromSession bool
}

// Bridge 协同同步桥.
type Bridge struct {
	store    objstore.Store
	engine   Engine
	modes    *ModeTable
	events   broadcast.Publisher
	reserved filetype.Reserved
}

// NewBridge 创建 Bridge.
func NewBridge(store objstore.Store, engine Engine, modes *ModeTable, events broadcast.Publisher, reserved filetype.Reserved) *Bridge {
	if events == nil {
		events = broadcast.Noop{}
	}

	return &Bridge{store: store, engine: engine, modes: modes, events: events, reserved: reserved}
}

// Engine 返回底层协同引擎.
func (b *Bridge) Engine() Engine {
	return b.engine
}

// Reserved 返回保留 key 规则.
func (b *Bridge) Reserved() filetype.Reserved {
	return b.reserved
}

// Mode 返回工作区当前模式.
func (b *Bridge) Mode(ctx context.Context, ws *model.Workspace) Mode {
	return b.modes.Get(ctx, ws.ID)
}

func (b *Bridge) mutable(ws *model.Workspace) error {
	if ws.Writable() {
		return nil
	}

	if ws.IsSnapshot {
		return errs.Immutable("snapshot workspace %s is read-only", ws.ID).With("workspace_id", ws.ID)
	}

	return errs.Conflict("workspace %s is %s", ws.ID, ws.Status).
		With("workspace_id", ws.ID).
		With("status", string(ws.Status))
}

func (b *Bridge) path(p string) (string, error) {
	clean, ok := filetype.CleanPath(p)
	if !ok {
		return "", errs.Validation("invalid path %q", p).With("path", p)
	}

	if b.reserved.Match(clean) {
		return "", errs.Validation("path %q is reserved", p).With("path", p)
	}

	return clean, nil
}

func (b *Bridge) save(ws *model.Workspace) SaveFunc {
	return func(ctx context.Context, path string, content []byte) error {
		_, err := b.store.PutObject(ctx, ws.Bucket(), path, content, filetype.ContentType(path, content))
		return err
	}
}

// Write 写入文件内容，冲突时后写覆盖.
func (b *Bridge) Write(ctx context.Context, ws *model.Workspace, path string, content []byte, source string, opts WriteOptions) (WriteResult, error) {
	if err := b.mutable(ws); err != nil {
		return WriteResult{}, err
	}

	path, err := b.path(path)
	if err != nil {
		return WriteResult{}, err
	}

	res := WriteResult{Path: path}

	if opts.BaseHash != "" {
		res.Diverged = b.diverged(ctx, ws, path, opts.BaseHash, source)
	}

	kind := filetype.Classify(path)

	if kind == filetype.Text && b.modes.Get(ctx, ws.ID) == Buffered {
		if source == broadcast.SourceContainer {
			b.engine.ApplyContainerContent(ws.ID, path, content)
		} else {
			b.engine.Update(ws.ID, path, content)
		}

		return res, nil
	}

	info, err := b.store.PutObject(ctx, ws.Bucket(), path, content, filetype.ContentType(path, content))
	if err != nil {
		return WriteResult{}, err
	}

	// direct 模式不保留会话，避免读到旧内容
	b.engine.Cleanup(ws.ID, path)

	res.Durable = true
	res.VersionID = info.VersionID

	b.events.TreeChanged(ctx, broadcast.TreeEvent{WorkspaceID: ws.ID, Kind: broadcast.Updated, Path: path, Source: source})

	return res, nil
}

// diverged 比较当前内容与写入方的基线，只记录不拦截.
func (b *Bridge) diverged(ctx context.Context, ws *model.Workspace, path, baseHash, source string) bool {
	var current []byte

	c, err := b.read(ctx, ws, path)
	switch {
	case err == nil:
		current = c.Data
	case errors.Is(err, errs.ErrNotFound):
	default:
		log.Logger().Warn().Err(err).
			Str("workspace_id", ws.ID).
			Str("path", path).
			Msg("read current content for divergence check failed")

		return false
	}

	if Hash(current) == baseHash {
		return false
	}

	metrics.WriteDivergence.WithLabelValues(source).Inc()
	log.Logger().Info().
		Str("workspace_id", ws.ID).
		Str("path", path).
		Str("source", source).
		Str("base_hash", baseHash).
		Msg("write diverged from current content, last writer wins")

	return true
}

// ReadAuthoritative 文本文件有会话时读会话，否则读对象存储.
func (b *Bridge) ReadAuthoritative(ctx context.Context, ws *model.Workspace, path string) (Content, error) {
	clean, ok := filetype.CleanPath(path)
	if !ok || b.reserved.Match(clean) {
		return Content{}, errs.NotFound("file %s not found", path).With("path", path)
	}

	return b.read(ctx, ws, clean)
}

func (b *Bridge) read(ctx context.Context, ws *model.Workspace, path string) (Content, error) {
	kind := filetype.Classify(path)

	if kind == filetype.Text {
		if data, ok := b.engine.SessionContent(ws.ID, path); ok {
			return Content{Path: path, Data: data, Kind: kind, FromSession: true}, nil
		}
	}

	obj, err := b.store.GetObject(ctx, ws.Bucket(), path, "")
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Content{}, errs.NotFound("file %s not found", path).With("path", path)
		}

		return Content{}, err
	}

	return Content{Path: path, Data: obj.Content, Kind: kind}, nil
}

// exists key 在会话或对象存储中是否存在.
func (b *Bridge) exists(ctx context.Context, ws *model.Workspace, path string) (bool, error) {
	if _, ok := b.engine.SessionContent(ws.ID, path); ok {
		return true, nil
	}

	_, err := b.store.StatObject(ctx, ws.Bucket(), path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}

	return false, err
}

// Exists 文件是否存在.
func (b *Bridge) Exists(ctx context.Context, ws *model.Workspace, path string) (bool, error) {
	clean, err := b.path(path)
	if err != nil {
		return false, err
	}

	return b.exists(ctx, ws, clean)
}

// Flush 把工作区所有已修改会话落盘，返回落盘的路径.
func (b *Bridge) Flush(ctx context.Context, ws *model.Workspace) ([]string, error) {
	return b.flush(ctx, ws, "manual", false)
}

// flush retire 为 true 时落盘后丢弃会话.
func (b *Bridge) flush(ctx context.Context, ws *model.Workspace, trigger string, retire bool) ([]string, error) {
	if ws.IsSnapshot {
		return []string{}, nil
	}

	saved, err := b.engine.ForceSaveAll(ctx, ws.ID, b.save(ws))
	if saved == nil {
		saved = []string{}
	}

	if len(saved) > 0 {
		metrics.FlushedSessions.WithLabelValues(trigger).Add(float64(len(saved)))
	}

	for _, p := range saved {
		b.events.TreeChanged(ctx, broadcast.TreeEvent{WorkspaceID: ws.ID, Kind: broadcast.Updated, Path: p, Source: broadcast.SourceSystem})
	}

	if err != nil {
		log.Logger().Error().Err(err).
			Str("workspace_id", ws.ID).
			Strs("saved", saved).
			Msg("flush sessions failed")

		return saved, errs.From(err).With("workspace_id", ws.ID)
	}

	if retire {
		for _, s := range b.engine.Sessions(ws.ID) {
			b.engine.Cleanup(ws.ID, s.Path)
		}
	}

	return saved, nil
}

// Release 丢弃工作区全部会话（不落盘）并清除模式记录，返回丢弃的会话数.
// 工作区删除后调用.
func (b *Bridge) Release(ctx context.Context, ws *model.Workspace) int {
	sessions := b.engine.Sessions(ws.ID)
	for _, s := range sessions {
		b.engine.Cleanup(ws.ID, s.Path)
	}

	b.modes.Forget(ctx, ws.ID)

	if len(sessions) > 0 {
		log.Logger().Info().
			Str("workspace_id", ws.ID).
			Int("sessions", len(sessions)).
			Msg("released sessions of deleted workspace")
	}

	return len(sessions)
}

// Rename 重命名：先落盘旧路径会话，拷贝后删除旧对象，并丢弃两端会话.
// 依次发出 delete(old) 与 create(new).
func (b *Bridge) Rename(ctx context.Context, ws *model.Workspace, oldPath, newPath string) error {
	if err := b.mutable(ws); err != nil {
		return err
	}

	oldPath, err := b.path(oldPath)
	if err != nil {
		return err
	}

	newPath, err = b.path(newPath)
	if err != nil {
		return err
	}

	if oldPath == newPath {
		return errs.Validation("rename source and target are the same").With("path", oldPath)
	}

	taken, err := b.exists(ctx, ws, newPath)
	if err != nil {
		return err
	}

	if taken {
		return errs.Conflict("file %s already exists", newPath).With("path", newPath)
	}

	if _, err := b.engine.ForceSave(ctx, ws.ID, oldPath, b.save(ws)); err != nil {
		return errs.From(err).With("path", oldPath)
	}

	if err := b.store.CopyObject(ctx, ws.Bucket(), oldPath, ws.Bucket(), newPath); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.NotFound("file %s not found", oldPath).With("path", oldPath)
		}

		return err
	}

	if err := b.store.DeleteObject(ctx, ws.Bucket(), oldPath); err != nil {
		return err
	}

	b.engine.Cleanup(ws.ID, oldPath)
	b.engine.Cleanup(ws.ID, newPath)

	b.events.TreeChanged(ctx, broadcast.TreeEvent{WorkspaceID: ws.ID, Kind: broadcast.Deleted, Path: oldPath, Source: broadcast.SourceHuman, Seq: 0})
	b.events.TreeChanged(ctx, broadcast.TreeEvent{WorkspaceID: ws.ID, Kind: broadcast.Created, Path: newPath, Source: broadcast.SourceHuman, Seq: 1})

	return nil
}

// Delete 删除文件并丢弃会话（不保存）.
func (b *Bridge) Delete(ctx context.Context, ws *model.Workspace, path string) error {
	if err := b.mutable(ws); err != nil {
		return err
	}

	path, err := b.path(path)
	if err != nil {
		return err
	}

	found, err := b.exists(ctx, ws, path)
	if err != nil {
		return err
	}

	if !found {
		return errs.NotFound("file %s not found", path).With("path", path)
	}

	if err := b.store.DeleteObject(ctx, ws.Bucket(), path); err != nil {
		return err
	}

	b.engine.Cleanup(ws.ID, path)
	b.events.TreeChanged(ctx, broadcast.TreeEvent{WorkspaceID: ws.ID, Kind: broadcast.Deleted, Path: path, Source: broadcast.SourceHuman})

	return nil
}

// Create 新建文件，已存在时返回 Conflict.
func (b *Bridge) Create(ctx context.Context, ws *model.Workspace, path string, content []byte) (WriteResult, error) {
	if err := b.mutable(ws); err != nil {
		return WriteResult{}, err
	}

	path, err := b.path(path)
	if err != nil {
		return WriteResult{}, err
	}

	found, err := b.exists(ctx, ws, path)
	if err != nil {
		return WriteResult{}, err
	}

	if found {
		return WriteResult{}, errs.Conflict("file %s already exists", path).With("path", path)
	}

	info, err := b.store.PutObject(ctx, ws.Bucket(), path, content, filetype.ContentType(path, content))
	if err != nil {
		return WriteResult{}, err
	}

	b.events.TreeChanged(ctx, broadcast.TreeEvent{WorkspaceID: ws.ID, Kind: broadcast.Created, Path: path, Source: broadcast.SourceHuman})

	return WriteResult{Path: path, Durable: true, VersionID: info.VersionID}, nil
}

// SetMode 切换持久化模式，离开 buffered 前落盘并丢弃所有会话.
func (b *Bridge) SetMode(ctx context.Context, ws *model.Workspace, mode Mode) (Mode, error) {
	if !mode.Valid() {
		return "", errs.Validation("unknown persistence mode %q", mode).With("mode", string(mode))
	}

	prev := b.modes.Get(ctx, ws.ID)

	if prev == Buffered && mode != Buffered {
		if _, err := b.flush(ctx, ws, "mode_change", true); err != nil {
			return prev, err
		}
	}

	b.modes.Set(ctx, ws.ID, mode)

	if prev != mode {
		log.Logger().Info().
			Str("workspace_id", ws.ID).
			Str("from", string(prev)).
			Str("to", string(mode)).
			Msg("persistence mode changed")
	}

	return prev, nil
}

// WorkspaceGetter 按 id 查询工作区.
type WorkspaceGetter interface {
	Get(ctx context.Context, id string) (*model.Workspace, error)
}

// FlushIdle 落盘空闲超过 idle 的会话所在工作区，返回落盘的会话数.
func (b *Bridge) FlushIdle(ctx context.Context, idle time.Duration, getter WorkspaceGetter) (int, error) {
	var (
		total int
		failed []error
	)

	for _, id := range b.engine.IdleWorkspaces(time.Now().Add(-idle)) {
		ws, err := getter.Get(ctx, id)
		if err != nil {
			// 工作区已不存在，会话没有落盘目标
			if errors.Is(err, errs.ErrNotFound) {
				for _, s := range b.engine.Sessions(id) {
					b.engine.Cleanup(id, s.Path)
				}

				continue
			}

			failed = append(failed, err)

			continue
		}

		saved, err := b.flush(ctx, ws, "autosave", false)
		total += len(saved)

		if err != nil {
			failed = append(failed, err)
		}
	}

	return total, errors.Join(failed...)
}
