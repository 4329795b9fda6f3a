package mq_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/internal/storage/mq"
)

func TestMemoryPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mq.NewWithConfig(ctx, &configs.MQConfig{Type: configs.MQTypeMemory})
	if err != nil {
		t.Fatalf("new memory mq: %v", err)
	}
	defer client.Close()

	ch, err := client.Subscribe(ctx, "cs.tree.created")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := client.Publish(ctx, "cs.tree.created", message.NewMessage(watermill.NewUUID(), []byte("hello"))); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-ch:
		if string(msg.Payload) != "hello" {
			t.Fatalf("unexpected payload %q", msg.Payload)
		}

		msg.Ack()
	case <-ctx.Done():
		t.Fatalf("timed out waiting for message")
	}
}

func TestRegisteredTypes(t *testing.T) {
	types := mq.GetRegisteredMQTypes()

	want := map[configs.MQType]bool{configs.MQTypeMemory: false, configs.MQTypeNATS: false, configs.MQTypeRedis: false}
	for _, tp := range types {
		want[tp] = true
	}

	for tp, ok := range want {
		if !ok {
			t.Errorf("mq type %s not registered", tp)
		}
	}
}

// 需要 MQ_REDIS_ADDR.
func TestRedisKeepsMetadata(t *testing.T) {
	addr := os.Getenv("MQ_REDIS_ADDR")
	if addr == "" {
		t.Skip("set MQ_REDIS_ADDR to run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mq.NewWithConfig(ctx, &configs.MQConfig{Type: configs.MQTypeRedis, Redis: configs.MQRedisConfig{Addr: addr}})
	if err != nil {
		t.Fatalf("new redis mq: %v", err)
	}
	defer client.Close()

	ch, err := client.Subscribe(ctx, "cs.tree.deleted")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	sent := message.NewMessage(watermill.NewUUID(), []byte(`{"path":"a.txt"}`))
	sent.Metadata.Set("room", "workspace:w1")

	if err := client.Publish(ctx, "cs.tree.deleted", sent); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ch:
		if got.UUID != sent.UUID || got.Metadata.Get("room") != "workspace:w1" || string(got.Payload) != string(sent.Payload) {
			t.Fatalf("message changed in transit: %s %v %q", got.UUID, got.Metadata, got.Payload)
		}

		got.Ack()
	case <-ctx.Done():
		t.Fatalf("timed out waiting for message")
	}
}
