// Package broadcast 把文件树与工作区生命周期变化发布到消息队列.
//
// 浏览器端的实时推送由独立的广播服务订阅 cs.tree.* 主题完成，这里只负责发布；
// 发布失败只记录日志，不影响触发它的存储操作.
package broadcast

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/log"
	"github.com/yeisme/codespace/pkg/queue"
)

// Kind 文件树变化类型.
type Kind string

const (
	Created Kind = "created"
	Deleted Kind = "deleted"
	Updated Kind = "updated"
)

// Source 触发方.
const (
	SourceHuman     = "human"
	SourceContainer = "container"
	SourceSystem    = "system"
)

// Room 工作区对应的广播房间名.
func Room(workspaceID string) string {
	return "workspace:" + workspaceID
}

// TreeEvent 一次文件树变化.
type TreeEvent struct {
	WorkspaceID string
	Kind        Kind
	Path        string
	Source      string
	Seq         int
}

// Publisher 事件发布接口.
type Publisher interface {
	TreeChanged(ctx context.Context, ev TreeEvent)
	WorkspaceChanged(ctx context.Context, topic string, payload queue.WorkspaceEventPayload)
}

// MQPublisher 基于 watermill Publisher 的实现.
type MQPublisher struct {
	pub message.Publisher
	cfg configs.EventsConfig
}

// New 创建发布器，pub 为 nil 或事件总开关关闭时返回 Noop.
func New(pub message.Publisher, cfg configs.EventsConfig) Publisher {
	if pub == nil || !cfg.Enabled {
		return Noop{}
	}

	return &MQPublisher{pub: pub, cfg: cfg}
}

// TreeTopic 文件树事件对应的主题.
func TreeTopic(kind Kind) string {
	switch kind {
	case Created:
		return queue.TopicTreeCreated
	case Deleted:
		return queue.TopicTreeDeleted
	case Updated:
		return queue.TopicTreeUpdated
	default:
		return ""
	}
}

// TopicEnabled 按事件配置判断主题是否发布. 失败事件没有开关，总开关打开即发布.
func TopicEnabled(cfg configs.EventsConfig, topic string) bool {
	if !cfg.Enabled {
		return false
	}

	switch topic {
	case queue.TopicTreeCreated:
		return cfg.Tree.Created
	case queue.TopicTreeDeleted:
		return cfg.Tree.Deleted
	case queue.TopicTreeUpdated:
		return cfg.Tree.Updated
	case queue.TopicWorkspaceProvisioned:
		return cfg.Workspace.Provisioned
	case queue.TopicWorkspaceRetired:
		return cfg.Workspace.Retired
	case queue.TopicWorkspaceCloned:
		return cfg.Workspace.Cloned
	case queue.TopicWorkspaceSnapshotted:
		return cfg.Workspace.Snapshotted
	case queue.TopicWorkspaceFailed:
		return true
	default:
		return false
	}
}

func (p *MQPublisher) TreeChanged(ctx context.Context, ev TreeEvent) {
	topic := TreeTopic(ev.Kind)
	if !TopicEnabled(p.cfg, topic) {
		return
	}

	payload := queue.TreeChangedPayload{
		WorkspaceID: ev.WorkspaceID,
		Room:        Room(ev.WorkspaceID),
		Path:        ev.Path,
		Source:      ev.Source,
		Seq:         ev.Seq,
	}

	if err := queue.PublishTreeChanged(p.pub, topic, payload, headerOpts(ctx)...); err != nil {
		log.Logger().Warn().Err(err).
			Str("topic", topic).
			Str("workspace_id", ev.WorkspaceID).
			Str("path", ev.Path).
			Msg("publish tree event failed")
	}
}

func (p *MQPublisher) WorkspaceChanged(ctx context.Context, topic string, payload queue.WorkspaceEventPayload) {
	if !TopicEnabled(p.cfg, topic) {
		return
	}

	if err := queue.PublishWorkspaceEvent(p.pub, topic, payload, headerOpts(ctx)...); err != nil {
		log.Logger().Warn().Err(err).
			Str("topic", topic).
			Str("workspace_id", payload.Workspace.ID).
			Msg("publish workspace event failed")
	}
}

func headerOpts(ctx context.Context) []func(*queue.EventHeader) {
	opts := []func(*queue.EventHeader){queue.WithProducer(configs.AppName)}

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, queue.WithTraceID(sc.TraceID().String()))
	}

	return opts
}

// Ref 把工作区转换为事件中的摘要.
func Ref(ws *model.Workspace) queue.WorkspaceRef {
	return queue.WorkspaceRef{
		ID:           ws.ID,
		StoreName:    ws.StoreName,
		Region:       ws.Region,
		OwnerID:      ws.OwnerID,
		CourseID:     model.Deref(ws.CourseID),
		AssignmentID: model.Deref(ws.AssignmentID),
		BlockID:      model.Deref(ws.BlockID),
		IsTemplate:   ws.IsTemplate,
		IsSnapshot:   ws.IsSnapshot,
		Status:       string(ws.Status),
	}
}

// Noop 丢弃所有事件.
type Noop struct{}

func (Noop) TreeChanged(context.Context, TreeEvent) {}

func (Noop) WorkspaceChanged(context.Context, string, queue.WorkspaceEventPayload) {}

// Recorder 记录事件，供测试断言顺序.
type Recorder struct {
	mu        sync.Mutex
	Tree      []TreeEvent
	Workspace []string
}

func (r *Recorder) TreeChanged(_ context.Context, ev TreeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Tree = append(r.Tree, ev)
}

func (r *Recorder) WorkspaceChanged(_ context.Context, topic string, _ queue.WorkspaceEventPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Workspace = append(r.Workspace, topic)
}

// TreeEvents 返回已记录事件的副本.
func (r *Recorder) TreeEvents() []TreeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]TreeEvent(nil), r.Tree...)
}

// WorkspaceTopics 返回已记录的工作区事件主题.
func (r *Recorder) WorkspaceTopics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.Workspace...)
}
