// Package queue 定义工作区事件的主题、信封与负载，下游（实时广播服务）按房间推送给浏览器.
//
// 信封为 JSON：{"header": {...}, "payload": {...}}，header.occurred_at 为 UTC.
// 同一次重命名产生的两条消息用 payload.seq 保序，先删除旧路径再创建新路径.
package queue

import (
	crand "crypto/rand"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/oklog/ulid"
)

// PayloadVersionV1 当前负载版本.
const PayloadVersionV1 = "v1"

// 消息元数据键，下游不解信封也能路由.
const (
	MetaTopic      = "topic"
	MetaRoom       = "room"
	MetaTraceID    = "trace_id"
	MetaProducer   = "producer"
	MetaOccurredAt = "occurred_at"
	MetaVersion    = "version"
)

// NewEventHeader 创建事件头.
func NewEventHeader(topic string, opts ...func(*EventHeader)) EventHeader {
	hdr := EventHeader{
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Version:    PayloadVersionV1,
	}
	for _, opt := range opts {
		opt(&hdr)
	}

	return hdr
}

func WithTraceID(id string) func(*EventHeader) { return func(h *EventHeader) { h.TraceID = id } }

func WithProducer(p string) func(*EventHeader) { return func(h *EventHeader) { h.Producer = p } }

func Encode[T any](msg Message[T]) ([]byte, error) { return sonic.Marshal(msg) }

func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(b, &m)

	return m, err
}

// NewWatermillMessage 编码信封并填充元数据. 消息 ID 用 ULID，按时间有序.
func NewWatermillMessage[T any](topic string, payload T, opts ...func(*EventHeader)) (*message.Message, error) {
	header := NewEventHeader(topic, opts...)

	data, err := Encode(Message[T]{Header: header, Payload: payload})
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(ulid.MustNew(ulid.Timestamp(header.OccurredAt), crand.Reader).String(), data)

	meta := map[string]string{
		MetaTopic:      topic,
		MetaTraceID:    header.TraceID,
		MetaProducer:   header.Producer,
		MetaOccurredAt: header.OccurredAt.Format(time.RFC3339Nano),
		MetaVersion:    header.Version,
	}
	for k, v := range meta {
		if v != "" {
			msg.Metadata.Set(k, v)
		}
	}

	return msg, nil
}

func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	return Decode[T](msg.Payload)
}
