// Package mq 封装 watermill 的 Publisher 与 Subscriber，按配置选择 NATS、Redis 或进程内实现.
//
// 存储引擎只发布事件（文件树变化、工作区生命周期），订阅端主要用于测试与排障.
package mq

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/codespace/pkg/configs"
	nlog "github.com/yeisme/codespace/pkg/log"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var (
	factories = map[configs.MQType]Factory{}
)

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredMQTypes 返回已注册的 MQ 类型.
func GetRegisteredMQTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	closeFunc  func() // 用于关闭metrics服务器
}

// Publisher 返回底层 Publisher，供 queue 包的强类型发布函数使用.
func (c *Client) Publisher() message.Publisher {
	if c == nil {
		return nil
	}

	return c.publisher
}

// Publish 便捷发布.
func (c *Client) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	for _, m := range msgs {
		if err := c.publisher.Publish(topic, m); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, fmt.Errorf("mq subscriber not initialized")
	}
	return c.subscriber.Subscribe(ctx, topic)
}

// Close 依次关闭 router、publisher、subscriber. 进程内实现两端是同一个对象，只关一次.
func (c *Client) Close() error {
	var errList []error

	if c.router != nil {
		errList = append(errList, c.router.Close())
	}

	if c.publisher != nil {
		errList = append(errList, c.publisher.Close())
	}

	if c.subscriber != nil && any(c.subscriber) != any(c.publisher) {
		errList = append(errList, c.subscriber.Close())
	}

	if c.closeFunc != nil {
		c.closeFunc()
	}

	return errors.Join(errList...)
}

var (
	mqOnce sync.Once
	mqInst *Client
	mqErr  error
)

// New 初始化消息队列（单例）.
func New(ctx context.Context) (*Client, error) {
	mqOnce.Do(func() {
		cfg := configs.GetConfig().MQ
		mqInst, mqErr = NewWithConfig(ctx, &cfg)
	})

	return mqInst, mqErr
}

// NewWithConfig 按给定配置创建客户端，不经过单例.
func NewWithConfig(ctx context.Context, cfg *configs.MQConfig) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := newLoggerAdapter(nlog.Logger())

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	var (
		closeFunc func()
		router    *message.Router
	)

	if cfg.Common.EnableMetrics && cfg.Common.Endpoint != "" {
		prometheusRegistry, closeMetricsServer := metrics.CreateRegistryAndServeHTTP(cfg.Common.Endpoint)
		closeFunc = closeMetricsServer

		// router 只用于挂载 metrics
		router, err = message.NewRouter(message.RouterConfig{}, logger)
		if err != nil {
			closeMetricsServer()
			return nil, fmt.Errorf("create router: %w", err)
		}

		go func() {
			if runErr := router.Run(ctx); runErr != nil {
				nlog.Logger().Error().Err(runErr).Msg("router run error")
			}
		}()

		metricsBuilder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder.AddPrometheusRouterMetrics(router)

		// 装饰publisher和subscriber
		pub, err = metricsBuilder.DecoratePublisher(pub)
		if err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		sub, err = metricsBuilder.DecorateSubscriber(sub)
		if err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}

		nlog.Logger().Info().Str("endpoint", cfg.Common.Endpoint).Msg("MQ metrics enabled")
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Bool("metrics", router != nil).Msg("mq client ready")

	return &Client{publisher: pub, subscriber: sub, router: router, closeFunc: closeFunc}, nil
}
