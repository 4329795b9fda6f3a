package kv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// ttlEntry 带过期时间的值，expireAt 为零值表示永不过期.
type ttlEntry struct {
	data     []byte
	expireAt time.Time
}

func newTTLEntry(value []byte, ttl time.Duration) ttlEntry {
	data := make([]byte, len(value))
	copy(data, value)

	e := ttlEntry{data: data}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}

	return e
}

func (e ttlEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// 远端存储（NATS KV、groupcache）不支持按键过期，值前附加 12 字节头部：
// 4 字节魔数 + 8 字节过期时间（UnixNano，0 表示永不过期）.
var ttlMagic = [4]byte{'c', 's', 't', 1}

const ttlHeaderLen = 12

// encodeWithTTL 编码带过期时间的值，第二个返回值表示是否设置了过期.
func encodeWithTTL(value []byte, ttl time.Duration) ([]byte, bool, error) {
	if ttl < 0 {
		return nil, false, fmt.Errorf("negative ttl: %s", ttl)
	}

	var expireAt int64
	if ttl > 0 {
		expireAt = time.Now().Add(ttl).UnixNano()
	}

	buf := make([]byte, ttlHeaderLen+len(value))
	copy(buf, ttlMagic[:])
	binary.BigEndian.PutUint64(buf[4:ttlHeaderLen], uint64(expireAt))
	copy(buf[ttlHeaderLen:], value)

	return buf, ttl > 0, nil
}

// decodeWithTTL 解码值，未带头部的旧数据按永不过期处理.
func decodeWithTTL(data []byte, now time.Time) ([]byte, bool, time.Time, error) {
	if len(data) < ttlHeaderLen || !bytes.Equal(data[:4], ttlMagic[:]) {
		return data, false, time.Time{}, nil
	}

	raw := int64(binary.BigEndian.Uint64(data[4:ttlHeaderLen]))
	val := data[ttlHeaderLen:]

	if raw == 0 {
		return val, false, time.Time{}, nil
	}

	expireAt := time.Unix(0, raw)

	return val, now.After(expireAt), expireAt, nil
}
