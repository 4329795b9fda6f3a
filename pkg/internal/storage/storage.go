// Package storage 聚合工作区引擎依赖的全部存储资源：对象存储、数据库、KV 与消息队列.
//
// Example:
//
// 初始化
//
//	ctx := context.Background()
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//		// 处理错误
//	}
//
// 获取存储客户端
//
//	objects := mgr.GetObjectStore()
//	dbClient := mgr.GetDBClient()
//
// 对象存储与数据库是必需的，初始化失败直接返回错误；
// KV 与 MQ 失败只记录告警，对应的缓存和事件广播降级为关闭.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/yeisme/codespace/pkg/configs"
	dbc "github.com/yeisme/codespace/pkg/internal/storage/db"
	kvc "github.com/yeisme/codespace/pkg/internal/storage/kv"
	mqc "github.com/yeisme/codespace/pkg/internal/storage/mq"
	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
	_ "github.com/yeisme/codespace/pkg/internal/storage/s3" // 注册 minio 后端
	nlog "github.com/yeisme/codespace/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	Objects objstore.Store
	DB      *dbc.Client
	KV      *kvc.Client
	MQ      *mqc.Client
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	mgrOnce.Do(func() {
		mgr, mgrErr = newManager(ctx, configs.GetConfig())
	})

	return mgr, mgrErr
}

func newManager(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	l := nlog.Logger()
	m := &Manager{}

	dbi, err := dbc.New(ctx)
	if err != nil {
		return nil, err
	}

	m.DB = dbi

	objects, err := objstore.New(ctx, &cfg.S3)
	if err != nil {
		return nil, err
	}

	m.Objects = objects

	if kvi, err := kvc.NewKVClient(ctx); err != nil {
		l.Warn().Err(err).Str("type", cfg.KV.Type).Msg("kv unavailable, caches disabled")
	} else {
		m.KV = kvi
	}

	if cfg.Events.Enabled {
		if mqi, err := mqc.New(ctx); err != nil {
			l.Warn().Err(err).Str("type", string(cfg.MQ.Type)).Msg("mq unavailable, events disabled")
		} else {
			m.MQ = mqi
		}
	}

	l.Info().
		Str("objects", cfg.S3.Type).
		Bool("kv", m.KV != nil).
		Bool("mq", m.MQ != nil).
		Msg("storage manager initialized")

	return m, nil
}

// GetObjectStore 获取对象存储.
func (m *Manager) GetObjectStore() objstore.Store {
	return m.Objects
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端，可能为 nil.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端，可能为 nil.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// Close 依次关闭所有资源，返回合并后的错误.
func (m *Manager) Close() error {
	var errList []error

	if m.MQ != nil {
		errList = append(errList, m.MQ.Close())
	}

	if m.KV != nil {
		errList = append(errList, m.KV.Close())
	}

	if m.Objects != nil {
		errList = append(errList, m.Objects.Close())
	}

	if m.DB != nil {
		errList = append(errList, m.DB.Close())
	}

	return errors.Join(errList...)
}
