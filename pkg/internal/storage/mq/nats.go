package mq

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/yeisme/codespace/pkg/configs"
)

const (
	natsDrainTimeout   = 30 * time.Second
	natsFlusherTimeout = 10 * time.Second
)

func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// natsConnOptions 连接选项. 断线与重连写日志，事件丢失时便于排查广播延迟.
func natsConnOptions(cfg *configs.MQConfig, logger watermill.LoggerAdapter) []nats.Option {
	c := cfg.Common

	opts := []nats.Option{
		nats.Name(c.ClientID),
		nats.MaxReconnects(c.MaxReconnects),
		nats.ReconnectWait(time.Duration(c.ReconnectWait) * time.Second),
		nats.PingInterval(time.Duration(c.PingInterval) * time.Second),
		nats.MaxPingsOutstanding(c.MaxPingsOut),
		nats.ReconnectBufSize(c.BufferSize),
		nats.DrainTimeout(natsDrainTimeout),
		nats.FlusherTimeout(natsFlusherTimeout),
		nats.RetryOnFailedConnect(!c.StrictConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Error("nats disconnected", err, watermill.LogFields{"client_id": c.ClientID})
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logger.Info("nats reconnected", watermill.LogFields{"url": conn.ConnectedUrl()})
		}),
	}

	if !c.ReconnectJitter {
		opts = append(opts, nats.ReconnectJitter(0, 0))
	}

	switch {
	case cfg.NATS.JWT != "":
		opts = append(opts, nats.UserJWTAndSeed(cfg.NATS.JWT, cfg.NATS.NKey))
	case cfg.NATS.NKey != "":
		opts = append(opts, nats.Nkey(cfg.NATS.NKey, nil))
	case c.User != "":
		opts = append(opts, nats.UserInfo(c.User, c.Password))
	}

	return opts
}

// natsJetStream JetStream 关闭时事件走 core NATS，广播服务离线期间的事件会丢失.
func natsJetStream(cfg *configs.MQConfig) wmnats.JetStreamConfig {
	n := cfg.NATS
	if !n.JetStreamEnabled {
		return wmnats.JetStreamConfig{Disabled: true}
	}

	return wmnats.JetStreamConfig{
		AutoProvision: n.JetStreamAutoProvision,
		TrackMsgId:    n.JetStreamTrackMsgID,
		AckAsync:      n.JetStreamAckAsync,
		DurablePrefix: n.JetStreamDurablePrefix,
	}
}

func natsURL(cfg *configs.MQConfig) string {
	if len(cfg.NATS.ClusterURLs) > 0 {
		return strings.Join(cfg.NATS.ClusterURLs, ",")
	}

	return cfg.Common.URL
}

// natsFactory 发布端与订阅端各用一条连接. load_balance 打开时订阅端加入队列组，
// 多个广播实例只有一个收到同一条事件.
func natsFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	opts := natsConnOptions(cfg, logger)
	js := natsJetStream(cfg)
	marshaler := &wmnats.JSONMarshaler{}

	pub, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         natsURL(cfg),
		NatsOptions: opts,
		JetStream:   js,
		Marshaler:   marshaler,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	subCfg := wmnats.SubscriberConfig{
		URL:         natsURL(cfg),
		NatsOptions: opts,
		JetStream:   js,
		Unmarshaler: marshaler,
	}

	if cfg.NATS.ConsumerAckWait > 0 {
		subCfg.AckWaitTimeout = time.Duration(cfg.NATS.ConsumerAckWait) * time.Second
	}

	if cfg.NATS.LoadBalance {
		subCfg.QueueGroupPrefix = cfg.NATS.SubjectPrefix
		if subCfg.QueueGroupPrefix == "" {
			subCfg.QueueGroupPrefix = configs.AppName
		}
	}

	sub, err := wmnats.NewSubscriber(subCfg, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}

	logger.Info("nats mq ready", watermill.LogFields{
		"url":         natsURL(cfg),
		"jetstream":   !js.Disabled,
		"queue_group": subCfg.QueueGroupPrefix,
	})

	return pub, sub, nil
}
