// Package objstore 定义工作区使用的对象存储抽象.
//
// 每个工作区对应一个物理 bucket，所有调用都显式携带 bucket 所在的 region，
// 实现方必须在该 region 上发起请求.
//
// Example:
//
//	store, err := objstore.New(ctx, &cfg.S3)
//	if err != nil {
//		return err
//	}
//
//	b := objstore.Bucket{Name: ws.StoreName, Region: ws.Region}
//	info, err := store.PutObject(ctx, b, "src/Main.java", content, "text/x-java")
//
// 所有操作都是幂等的：重复创建已存在的 bucket、删除不存在的对象均不返回错误.
// 错误统一使用 pkg/errs 分类：缺失返回 NotFound，超时返回 UpstreamTimeout，
// 连接失败返回 UpstreamUnavailable.
package objstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yeisme/codespace/pkg/configs"
)

// Bucket 工作区的物理存储.
type Bucket struct {
	Name   string
	Region string
}

func (b Bucket) String() string {
	return b.Region + "/" + b.Name
}

// ObjectInfo 对象元数据.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	VersionID    string    `json:"version_id,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Object 对象内容与元数据.
type Object struct {
	ObjectInfo
	Content []byte
}

// VersionInfo 单个历史版本.
type VersionInfo struct {
	Key            string    `json:"key"`
	VersionID      string    `json:"version_id"`
	Size           int64     `json:"size"`
	IsLatest       bool      `json:"is_latest"`
	IsDeleteMarker bool      `json:"is_delete_marker"`
	LastModified   time.Time `json:"last_modified"`
}

// Store 对象存储操作集合.
type Store interface {
	// CreateBucket 在 b.Region 创建 bucket，已存在时直接返回.
	CreateBucket(ctx context.Context, b Bucket) error
	// DeleteBucket 删除空 bucket，不存在时直接返回.
	DeleteBucket(ctx context.Context, b Bucket) error
	// ListKeys 列出当前可见对象的 key，按字典序.
	ListKeys(ctx context.Context, b Bucket) ([]string, error)
	// GetObject 读取对象，versionID 为空时读取最新版本.
	GetObject(ctx context.Context, b Bucket, key, versionID string) (*Object, error)
	// StatObject 读取对象元数据.
	StatObject(ctx context.Context, b Bucket, key string) (ObjectInfo, error)
	// PutObject 写入对象.
	PutObject(ctx context.Context, b Bucket, key string, content []byte, contentType string) (ObjectInfo, error)
	// DeleteObject 删除对象（开启版本控制时留下删除标记）.
	DeleteObject(ctx context.Context, b Bucket, key string) error
	// DeleteAllVersions 删除 bucket 内所有对象及其全部历史版本.
	DeleteAllVersions(ctx context.Context, b Bucket) error
	// CopyObject 服务端拷贝，请求发往目标 bucket 的 region.
	CopyObject(ctx context.Context, src Bucket, srcKey string, dst Bucket, dstKey string) error
	// EnableVersioning 开启版本控制，并设置历史版本在 expiryDays 天后过期.
	EnableVersioning(ctx context.Context, b Bucket, expiryDays int) error
	// ListVersions 列出指定 key 的版本，最多 limit 条.
	ListVersions(ctx context.Context, b Bucket, key string, limit int) ([]VersionInfo, error)
	// Health 检查后端连通性.
	Health(ctx context.Context) error
	// Close 释放资源.
	Close() error
}

// Factory 创建 Store 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.S3Config) (Store, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// RegisterFactory 注册后端.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	factories[name] = f
}

// RegisteredTypes 返回已注册的后端名称.
func RegisteredTypes() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// New 按 cfg.Type 创建 Store.
func New(ctx context.Context, cfg *configs.S3Config) (Store, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Type]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported object store type: %s", cfg.Type)
	}

	return f(ctx, cfg)
}
