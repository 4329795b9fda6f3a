package queue_test

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/codespace/pkg/queue"
)

func TestTreeChangedEnvelope(t *testing.T) {
	ps := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	defer ps.Close()

	payload := queue.TreeChangedPayload{WorkspaceID: "w1", Room: "workspace:w1", Path: "src/a.go", Source: "human", Seq: 1}

	if err := queue.PublishTreeChanged(ps, queue.TopicTreeCreated, payload, queue.WithTraceID("t-1"), queue.WithProducer("codespace")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	ch, err := ps.Subscribe(t.Context(), queue.TopicTreeCreated)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	msg := <-ch
	msg.Ack()

	if msg.Metadata.Get(queue.MetaRoom) != "workspace:w1" || msg.Metadata.Get(queue.MetaTraceID) != "t-1" {
		t.Fatalf("metadata = %v", msg.Metadata)
	}

	if len(msg.UUID) != 26 {
		t.Fatalf("message id should be a ULID, got %q", msg.UUID)
	}

	env, err := queue.ParseTreeChanged(msg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if env.Payload != payload || env.Header.Topic != queue.TopicTreeCreated || env.Header.Version != queue.PayloadVersionV1 {
		t.Fatalf("envelope = %+v", env)
	}

	if env.Header.OccurredAt.Location().String() != "UTC" {
		t.Fatalf("occurred_at should be UTC, got %v", env.Header.OccurredAt)
	}
}

func TestWorkspaceEventWithoutTrace(t *testing.T) {
	msg, err := queue.NewWatermillMessage(queue.TopicWorkspaceFailed, queue.WorkspaceEventPayload{Error: "bucket exists"})
	if err != nil {
		t.Fatalf("new message: %v", err)
	}

	if _, ok := msg.Metadata[queue.MetaTraceID]; ok {
		t.Fatalf("empty trace id must not be set")
	}

	env, err := queue.ParseWorkspaceEvent(msg)
	if err != nil || env.Payload.Error != "bucket exists" {
		t.Fatalf("parse = %+v %v", env, err)
	}
}
