// Package service 组装工作区引擎的各个组件，HTTP 层与定时任务共用同一份实例.
package service

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"gorm.io/gorm"

	"github.com/yeisme/codespace/pkg/cache"
	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/internal/access"
	"github.com/yeisme/codespace/pkg/internal/broadcast"
	"github.com/yeisme/codespace/pkg/internal/collab"
	"github.com/yeisme/codespace/pkg/internal/container"
	"github.com/yeisme/codespace/pkg/internal/filetype"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/storage"
	"github.com/yeisme/codespace/pkg/internal/storage/kv"
	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
	"github.com/yeisme/codespace/pkg/internal/versions"
	"github.com/yeisme/codespace/pkg/internal/workspace"
	nlog "github.com/yeisme/codespace/pkg/log"
)

// Deps 外部资源.
type Deps struct {
	Objects   objstore.Store
	DB        *gorm.DB
	KV        kv.KVStore        // 可为 nil，此时不缓存，模式表只在进程内
	Publisher message.Publisher // 可为 nil，此时不广播事件
	Resolver  access.PermissionResolver
	Engine    collab.Engine
}

// Services 组装好的业务组件.
type Services struct {
	Objects    objstore.Store
	Registry   *workspace.Registry
	Workspaces *workspace.Service
	Gate       *access.Gate
	Modes      *collab.ModeTable
	Bridge     *collab.Bridge
	Gateway    *container.Gateway
	Versions   *versions.Manager
	Verifier   container.Verifier
	Events     broadcast.Publisher
	Reserved   filetype.Reserved
	Cache      *cache.Cache // 未启用缓存或没有 KV 时为 nil

	cfg configs.AppConfig
}

// New 按配置组装组件. deps.Resolver 为 nil 时使用 HTTP 课程权限服务，
// deps.Engine 为 nil 时使用进程内会话表.
func New(deps Deps, cfg *configs.AppConfig) (*Services, error) {
	if deps.Objects == nil || deps.DB == nil {
		return nil, fmt.Errorf("object store and db are required")
	}

	l := nlog.Logger()

	var c *cache.Cache
	if cfg.Cache.Enabled && deps.KV != nil {
		c = cache.NewCache(deps.KV)
	}

	resolver := deps.Resolver
	if resolver == nil {
		var opts []access.HTTPResolverOption
		if c != nil {
			opts = append(opts, access.WithCache(c))
		}

		resolver = access.NewHTTPResolver(cfg.Permission, cfg.CircuitBreaker, opts...)
	}

	events := broadcast.Publisher(broadcast.Noop{})
	if deps.Publisher != nil && cfg.Events.Enabled {
		events = broadcast.New(deps.Publisher, cfg.Events)
	}

	engine := deps.Engine
	if engine == nil {
		engine = collab.NewSessionStore()
	}

	verifier, err := container.NewVerifier(cfg.Container)
	if err != nil {
		// 未配置凭证时容器接口全部拒绝，不阻止服务启动
		l.Warn().Err(err).Str("mode", cfg.Container.Mode).Msg("container verifier unavailable, container routes will deny all requests")

		verifier = container.NewStaticSecretVerifier("")
	}

	reserved := filetype.Reserved{Prefix: cfg.Workspace.ReservedPrefix, Suffix: cfg.Workspace.ReservedSuffix}
	if reserved.Prefix == "" && reserved.Suffix == "" {
		reserved = filetype.DefaultReserved
	}

	gate := access.NewGate(resolver)
	reg := workspace.NewRegistry(deps.DB)
	modes := collab.NewModeTable(collab.Mode(cfg.Collab.DefaultMode), deps.KV)
	bridge := collab.NewBridge(deps.Objects, engine, modes, events, reserved)

	ws := workspace.NewService(reg, deps.Objects, gate, events, cfg.Workspace, cfg.S3.Region)
	ws.SetFlusher(bridge)
	ws.SetReleaser(bridge)

	vers := versions.NewManager(deps.Objects, ws, reserved, versions.Options{
		PageSize:      cfg.Workspace.VersionsPageSize,
		Cache:         c,
		CacheTTL:      cfg.Cache.GetVersionTTL(),
		MaxEntryBytes: cfg.Cache.MaxEntryBytes,
	})

	return &Services{
		Objects:    deps.Objects,
		Registry:   reg,
		Workspaces: ws,
		Gate:       gate,
		Modes:      modes,
		Bridge:     bridge,
		Gateway:    container.NewGateway(bridge, deps.Objects, events),
		Versions:   vers,
		Verifier:   verifier,
		Events:     events,
		Reserved:   reserved,
		Cache:      c,
		cfg:        *cfg,
	}, nil
}

// FromManager 使用存储管理器中的资源组装组件.
func FromManager(mgr *storage.Manager, cfg *configs.AppConfig) (*Services, error) {
	if mgr == nil || mgr.GetDBClient() == nil {
		return nil, fmt.Errorf("storage manager not initialized")
	}

	deps := Deps{
		Objects: mgr.GetObjectStore(),
		DB:      mgr.GetDBClient().GetDB(),
	}

	if kvc := mgr.GetKVClient(); kvc != nil {
		deps.KV = kvc.KVStore

		// 模式表需要跨实例可见
		if !kvc.Shared {
			nlog.Logger().Warn().Str("kv", cfg.KV.Type).Msg("kv store is process local, persistence modes are not shared between instances")
		}
	}

	if mqc := mgr.GetMQClient(); mqc != nil {
		deps.Publisher = mqc.Publisher()
	}

	return New(deps, cfg)
}

// Config 组装时使用的配置.
func (s *Services) Config() configs.AppConfig {
	return s.cfg
}

// Authorize 加载工作区并校验访问级别，软删除的工作区视为不存在.
func (s *Services) Authorize(ctx context.Context, sub access.Subject, id string, level access.Level) (*model.Workspace, error) {
	ws, err := s.Workspaces.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.Gate.Require(ctx, sub, ws, level); err != nil {
		return nil, err
	}

	return ws, nil
}
