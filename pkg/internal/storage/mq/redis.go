package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/codespace/pkg/configs"
)

// DefaultChannelBufferSize 每个订阅的输出缓冲.
const DefaultChannelBufferSize = 100

// redisEnvelope Redis Pub/Sub 只传字节，消息 ID 与元数据（房间、trace_id）一起编码.
type redisEnvelope struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

func redisFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}

	pub := &redisPublisher{rdb: rdb}
	sub := &redisSubscriber{rdb: rdb, logger: logger, done: make(chan struct{})}

	return pub, sub, nil
}

// redisPublisher 与订阅端共用连接，连接由订阅端关闭.
type redisPublisher struct {
	rdb *redis.Client
}

func (p *redisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, m := range msgs {
		b, err := sonic.Marshal(redisEnvelope{UUID: m.UUID, Metadata: m.Metadata, Payload: m.Payload})
		if err != nil {
			return fmt.Errorf("encode message %s: %w", m.UUID, err)
		}

		ctx := m.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if err := p.rdb.Publish(ctx, topic, b).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	}

	return nil
}

func (p *redisPublisher) Close() error { return nil }

type redisSubscriber struct {
	rdb    *redis.Client
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	subs   []*redis.PubSub
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// Subscribe 每次调用建立独立的 PubSub. Redis Pub/Sub 不重投，Nack 的消息直接丢弃.
func (s *redisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("redis subscriber closed")
	}

	ps := s.rdb.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	s.subs = append(s.subs, ps)
	out := make(chan *message.Message, DefaultChannelBufferSize)

	s.wg.Add(1)

	go s.pump(ctx, topic, ps, out)

	return out, nil
}

func (s *redisSubscriber) pump(ctx context.Context, topic string, ps *redis.PubSub, out chan<- *message.Message) {
	defer s.wg.Done()
	defer close(out)

	in := ps.Channel()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case raw, ok := <-in:
			if !ok {
				return
			}

			var env redisEnvelope
			if err := sonic.UnmarshalString(raw.Payload, &env); err != nil {
				s.logger.Error("drop undecodable redis message", err, watermill.LogFields{"topic": topic})
				continue
			}

			msg := message.NewMessage(env.UUID, env.Payload)
			for k, v := range env.Metadata {
				msg.Metadata.Set(k, v)
			}

			msg.SetContext(ctx)

			select {
			case out <- msg:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}

			select {
			case <-msg.Acked():
			case <-msg.Nacked():
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *redisSubscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	close(s.done)

	var errList []error

	for _, ps := range s.subs {
		if err := ps.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	if err := s.rdb.Close(); err != nil {
		errList = append(errList, err)
	}

	return errors.Join(errList...)
}
