package collab

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// SaveFunc 把会话内容写入持久化存储.
type SaveFunc func(ctx context.Context, path string, content []byte) error

// SessionInfo 会话摘要.
type SessionInfo struct {
	Path  string `json:"path"`
	Dirty bool   `json:"dirty"`
	// Source 最后一次修改来自 human 或 container
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Engine 协同编辑引擎需要提供的能力.
type Engine interface {
	// SessionContent 返回会话中的文本，没有会话时 ok 为 false.
	SessionContent(workspaceID, path string) (content []byte, ok bool)
	// Update 以编辑器内容更新会话，不存在时创建.
	Update(workspaceID, path string, content []byte)
	// ApplyContainerContent 以容器写回的内容替换会话.
	ApplyContainerContent(workspaceID, path string, content []byte)
	// ForceSave 落盘单个会话，未修改时不调用 save.
	ForceSave(ctx context.Context, workspaceID, path string, save SaveFunc) (bool, error)
	// ForceSaveAll 落盘工作区所有已修改会话，返回落盘的路径.
	ForceSaveAll(ctx context.Context, workspaceID string, save SaveFunc) ([]string, error)
	// Cleanup 丢弃会话，不保存.
	Cleanup(workspaceID, path string)
	// Sessions 列出工作区的会话.
	Sessions(workspaceID string) []SessionInfo
	// IdleWorkspaces 返回存在 before 之后未再修改的脏会话的工作区.
	IdleWorkspaces(before time.Time) []string
}

type sessionKey struct {
	workspace string
	path      string
}

type session struct {
	mu        sync.Mutex
	content   []byte
	dirty     bool
	container bool
	updatedAt time.Time
}

// SessionStore 进程内的 Engine 实现，每个会话单独加锁.
type SessionStore struct {
	sessions sync.Map // sessionKey -> *session
	now      func() time.Time
}

// NewSessionStore 创建 SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{now: time.Now}
}

var _ Engine = (*SessionStore)(nil)

func (s *SessionStore) load(workspaceID, path string) (*session, bool) {
	v, ok := s.sessions.Load(sessionKey{workspaceID, path})
	if !ok {
		return nil, false
	}

	return v.(*session), true
}

func (s *SessionStore) SessionContent(workspaceID, path string) ([]byte, bool) {
	sess, ok := s.load(workspaceID, path)
	if !ok {
		return nil, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	return append([]byte(nil), sess.content...), true
}

func (s *SessionStore) set(workspaceID, path string, content []byte, container bool) {
	v, _ := s.sessions.LoadOrStore(sessionKey{workspaceID, path}, &session{})
	sess := v.(*session)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.content = append([]byte(nil), content...)
	sess.dirty = true
	sess.container = container
	sess.updatedAt = s.now()
}

func (s *SessionStore) Update(workspaceID, path string, content []byte) {
	s.set(workspaceID, path, content, false)
}

func (s *SessionStore) ApplyContainerContent(workspaceID, path string, content []byte) {
	s.set(workspaceID, path, content, true)
}

func (s *SessionStore) ForceSave(ctx context.Context, workspaceID, path string, save SaveFunc) (bool, error) {
	sess, ok := s.load(workspaceID, path)
	if !ok {
		return false, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.dirty {
		return false, nil
	}

	if err := save(ctx, path, sess.content); err != nil {
		return false, err
	}

	sess.dirty = false

	return true, nil
}

func (s *SessionStore) ForceSaveAll(ctx context.Context, workspaceID string, save SaveFunc) ([]string, error) {
	var (
		saved []string
		errs  []error
	)

	for _, info := range s.Sessions(workspaceID) {
		ok, err := s.ForceSave(ctx, workspaceID, info.Path, save)
		if err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", info.Path, err))
			continue
		}

		if ok {
			saved = append(saved, info.Path)
		}
	}

	return saved, errors.Join(errs...)
}

func (s *SessionStore) Cleanup(workspaceID, path string) {
	s.sessions.Delete(sessionKey{workspaceID, path})
}

func (s *SessionStore) Sessions(workspaceID string) []SessionInfo {
	var out []SessionInfo

	s.sessions.Range(func(k, v any) bool {
		key := k.(sessionKey)
		if key.workspace != workspaceID {
			return true
		}

		sess := v.(*session)
		sess.mu.Lock()
		info := SessionInfo{Path: key.path, Dirty: sess.dirty, Source: "human", UpdatedAt: sess.updatedAt}
		if sess.container {
			info.Source = "container"
		}
		sess.mu.Unlock()

		out = append(out, info)

		return true
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out
}

func (s *SessionStore) IdleWorkspaces(before time.Time) []string {
	seen := make(map[string]struct{})

	s.sessions.Range(func(k, v any) bool {
		sess := v.(*session)

		sess.mu.Lock()
		idle := sess.dirty && sess.updatedAt.Before(before)
		sess.mu.Unlock()

		if idle {
			seen[k.(sessionKey).workspace] = struct{}{}
		}

		return true
	})

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}

	sort.Strings(out)

	return out
}
