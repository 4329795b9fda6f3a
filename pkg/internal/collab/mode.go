package collab

import (
	"context"
	"errors"
	"sync"

	"github.com/yeisme/codespace/pkg/internal/storage/kv"
	"github.com/yeisme/codespace/pkg/log"
)

// Mode 工作区的持久化模式.
type Mode string

const (
	// Direct 每次写入立即落到对象存储.
	Direct Mode = "direct"
	// Buffered 文本文件以内存会话为准，显式 flush 时才落盘.
	Buffered Mode = "buffered"
)

// Valid 是否为已知模式.
func (m Mode) Valid() bool {
	return m == Direct || m == Buffered
}

const modeKeyPrefix = "collab:mode:"

// ModeTable 记录每个工作区当前的持久化模式，未设置时为默认模式.
// 配置了 KV 时模式同时写入 KV，多副本之间共享.
type ModeTable struct {
	def   Mode
	modes sync.Map // workspace id -> Mode
	kv    kv.KVStore
}

// NewModeTable 创建 ModeTable，store 可为 nil.
func NewModeTable(def Mode, store kv.KVStore) *ModeTable {
	if !def.Valid() {
		def = Direct
	}

	return &ModeTable{def: def, kv: store}
}

// Default 默认模式.
func (t *ModeTable) Default() Mode {
	return t.def
}

// Get 返回工作区当前模式. 配置了 KV 时每次以 KV 为准，其他副本的切换立即可见；
// KV 读取失败时退回本地记录.
func (t *ModeTable) Get(ctx context.Context, workspaceID string) Mode {
	if t.kv != nil {
		data, err := t.kv.Get(ctx, modeKeyPrefix+workspaceID)

		switch {
		case err == nil && Mode(data).Valid():
			t.modes.Store(workspaceID, Mode(data))
			return Mode(data)
		case errors.Is(err, kv.ErrKeyNotFound):
			t.modes.Delete(workspaceID)
			return t.def
		case err != nil:
			log.Logger().Warn().Err(err).Str("workspace_id", workspaceID).Msg("read collaboration mode failed, using local copy")
		}
	}

	if v, ok := t.modes.Load(workspaceID); ok {
		return v.(Mode)
	}

	return t.def
}

// Set 设置模式，返回之前的模式.
func (t *ModeTable) Set(ctx context.Context, workspaceID string, m Mode) Mode {
	prev := t.Get(ctx, workspaceID)
	t.modes.Store(workspaceID, m)

	if t.kv != nil {
		if err := t.kv.Set(ctx, modeKeyPrefix+workspaceID, []byte(m), 0); err != nil {
			log.Logger().Warn().Err(err).
				Str("workspace_id", workspaceID).
				Str("mode", string(m)).
				Msg("persist collaboration mode failed")
		}
	}

	return prev
}

// Forget 删除工作区的模式记录.
func (t *ModeTable) Forget(ctx context.Context, workspaceID string) {
	t.modes.Delete(workspaceID)

	if t.kv != nil {
		_ = t.kv.Delete(ctx, modeKeyPrefix+workspaceID)
	}
}
