package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/internal/broadcast"
	"github.com/yeisme/codespace/pkg/queue"
)

func eventsConfig() configs.EventsConfig {
	return configs.EventsConfig{
		Enabled: true,
		Tree:    configs.TreeEventsConfig{Created: true, Deleted: true},
		Workspace: configs.WorkspaceEventsConfig{
			Provisioned: true,
		},
	}
}

func TestTreeChangedIsPublishedToRoom(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer ps.Close()

	ch, err := ps.Subscribe(ctx, queue.TopicTreeCreated)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub := broadcast.New(ps, eventsConfig())
	pub.TreeChanged(ctx, broadcast.TreeEvent{WorkspaceID: "w1", Kind: broadcast.Created, Path: "src/Main.java", Source: broadcast.SourceHuman})

	select {
	case msg := <-ch:
		env, err := queue.ParseTreeChanged(msg)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}

		if env.Payload.Room != "workspace:w1" || env.Payload.Path != "src/Main.java" {
			t.Fatalf("unexpected payload %+v", env.Payload)
		}

		if env.Header.Producer != configs.AppName {
			t.Fatalf("producer = %q", env.Header.Producer)
		}

		msg.Ack()
	case <-ctx.Done():
		t.Fatalf("no message received")
	}
}

func TestDisabledTopicIsSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer ps.Close()

	ch, err := ps.Subscribe(ctx, queue.TopicTreeUpdated)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	broadcast.New(ps, eventsConfig()).TreeChanged(ctx, broadcast.TreeEvent{WorkspaceID: "w1", Kind: broadcast.Updated, Path: "a.txt"})

	select {
	case msg := <-ch:
		t.Fatalf("updated events are disabled and must not be published, got %v", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewWithoutPublisherIsNoop(t *testing.T) {
	if _, ok := broadcast.New(nil, eventsConfig()).(broadcast.Noop); !ok {
		t.Fatalf("expected Noop when no publisher is configured")
	}
}

func TestTopicEnabled(t *testing.T) {
	cfg := eventsConfig()

	cases := map[string]bool{
		queue.TopicTreeCreated:          true,
		queue.TopicTreeUpdated:          false,
		queue.TopicWorkspaceProvisioned: true,
		queue.TopicWorkspaceRetired:     false,
		queue.TopicWorkspaceFailed:      true,
		"cs.unknown":                    false,
	}

	for topic, want := range cases {
		if got := broadcast.TopicEnabled(cfg, topic); got != want {
			t.Errorf("TopicEnabled(%s) = %v, want %v", topic, got, want)
		}
	}

	cfg.Enabled = false
	if broadcast.TopicEnabled(cfg, queue.TopicWorkspaceFailed) {
		t.Fatalf("master switch off must disable every topic")
	}
}
