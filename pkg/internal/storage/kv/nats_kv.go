package kv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yeisme/codespace/pkg/configs"
)

// NATS KV 的键只允许 [-/_=.a-zA-Z0-9]，业务键里有 ":" 和任意路径字符，
// 统一编码为 base64url 后再存.
var natsKeyEncoding = base64.RawURLEncoding

func encodeNATSKey(key string) string { return natsKeyEncoding.EncodeToString([]byte(key)) }

func decodeNATSKey(key string) (string, bool) {
	b, err := natsKeyEncoding.DecodeString(key)
	if err != nil {
		return "", false
	}

	return string(b), true
}

// NATSKV 基于 JetStream KV bucket，过期时间写在值头部，读取时惰性删除.
type NATSKV struct {
	conn   *nats.Conn
	bucket nats.KeyValue
}

// NewNATSKV 连接 NATS 并打开 bucket，不存在时创建.
func NewNATSKV(ctx context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.NATSKVConfig)
	if !ok {
		return nil, fmt.Errorf("nats kv: unexpected config %T", config)
	}

	opts := []nats.Option{nats.Name("codespace-kv")}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats kv: connect %s: %w", cfg.URL, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats kv: jetstream: %w", err)
	}

	b, err := js.KeyValue(cfg.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		b, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: cfg.Bucket, History: 1})
	}

	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats kv: open bucket %s: %w", cfg.Bucket, err)
	}

	return &NATSKV{conn: nc, bucket: b}, nil
}

// load 读取并解码，过期的条目顺手删掉.
func (n *NATSKV) load(key string) ([]byte, error) {
	enc := encodeNATSKey(key)

	entry, err := n.bucket.Get(enc)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("nats kv: get %s: %w", key, err)
	}

	val, expired, _, err := decodeWithTTL(entry.Value(), time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = n.bucket.Delete(enc)
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return val, nil
}

func (n *NATSKV) Get(ctx context.Context, key string) ([]byte, error) {
	return n.load(key)
}

func (n *NATSKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, _, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	if _, err := n.bucket.Put(encodeNATSKey(key), encoded); err != nil {
		return fmt.Errorf("nats kv: put %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Delete(ctx context.Context, key string) error {
	err := n.bucket.Delete(encodeNATSKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("nats kv: delete %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := n.load(key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Keys 遍历 bucket 全部键后在本地按 pattern 过滤，过期与无法解码的键跳过.
func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	all, err := n.bucket.Keys(nats.Context(ctx))
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("nats kv: keys: %w", err)
	}

	var out []string

	for _, enc := range all {
		key, ok := decodeNATSKey(enc)
		if !ok || !matchPattern(pattern, key) {
			continue
		}

		if _, err := n.load(key); err != nil {
			continue
		}

		out = append(out, key)
	}

	return out, nil
}

func (n *NATSKV) Close() error {
	n.conn.Close()
	return nil
}

func init() {
	RegisterKVFactory(KVTypeNATS, NewNATSKV)
}
