package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 文件树领域 --------------------------

// TreeChangedPayload 文件树变化，Room 为广播房间名.
type TreeChangedPayload struct {
	WorkspaceID string `json:"workspace_id"`
	Room        string `json:"room"`
	Path        string `json:"path"`
	// Source 触发方：human、container 或 system
	Source string `json:"source,omitempty"`
	// Seq 同一次操作内的顺序号，重命名时 delete(old)=0、create(new)=1
	Seq int `json:"seq,omitempty"`
}

// -------------------------- 工作区领域 --------------------------

// WorkspaceRef 工作区摘要.
type WorkspaceRef struct {
	ID           string `json:"id"`
	StoreName    string `json:"store_name"`
	Region       string `json:"region"`
	OwnerID      string `json:"owner_id"`
	CourseID     string `json:"course_id,omitempty"`
	AssignmentID string `json:"assignment_id,omitempty"`
	BlockID      string `json:"block_id,omitempty"`
	IsTemplate   bool   `json:"is_template,omitempty"`
	IsSnapshot   bool   `json:"is_snapshot,omitempty"`
	Status       string `json:"status"`
}

// WorkspaceEventPayload 工作区生命周期事件.
type WorkspaceEventPayload struct {
	Workspace WorkspaceRef `json:"workspace"`
	// SourceID 克隆/快照来源
	SourceID     string `json:"source_id,omitempty"`
	SubmissionID string `json:"submission_id,omitempty"`
	// Copied/Failed 拷贝清单统计，仅克隆与快照携带
	Copied int    `json:"copied,omitempty"`
	Failed int    `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}
