package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishTreeChanged 发布文件树变化事件，topic 取 TreeTopics 之一.
func PublishTreeChanged(pub message.Publisher, topic string, payload TreeChangedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	// 按房间分区，便于下游按工作区路由
	msg.Metadata.Set(MetaRoom, payload.Room)

	return pub.Publish(topic, msg)
}

// ParseTreeChanged 将 Watermill 消息解析为强类型 Envelope（TreeChangedPayload）。
func ParseTreeChanged(msg *message.Message) (Message[TreeChangedPayload], error) {
	return ParseWatermillMessage[TreeChangedPayload](msg)
}

// PublishWorkspaceEvent 发布工作区生命周期事件.
func PublishWorkspaceEvent(pub message.Publisher, topic string, payload WorkspaceEventPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}

// ParseWorkspaceEvent 解析工作区生命周期事件.
func ParseWorkspaceEvent(msg *message.Message) (Message[WorkspaceEventPayload], error) {
	return ParseWatermillMessage[WorkspaceEventPayload](msg)
}
