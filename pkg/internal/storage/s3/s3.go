// Package s3 基于 MinIO SDK 实现 objstore.Store，兼容任意 S3 协议的服务.
//
// 每个 region 维护一个独立的客户端，请求总是发往 bucket 所在的 region；
// 每次调用都带显式超时（s3.op_timeout_seconds）.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
	nlog "github.com/yeisme/codespace/pkg/log"
	"github.com/yeisme/codespace/pkg/metrics"
	"github.com/yeisme/codespace/pkg/tracing"
)

const noncurrentRuleID = "codespace-noncurrent-expiry"

// Client MinIO 后端.
type Client struct {
	cfg      configs.S3Config
	endpoint string
	secure   bool
	timeout  time.Duration

	mu      sync.RWMutex
	clients map[string]*minio.Client // region -> client
}

var _ objstore.Store = (*Client)(nil)

func init() {
	objstore.RegisterFactory(configs.DefaultS3Type, func(ctx context.Context, cfg *configs.S3Config) (objstore.Store, error) {
		return New(ctx, cfg)
	})
}

// New 创建 MinIO 后端，并用默认 region 的客户端做一次连通性检查.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	endpoint := cfg.Endpoint
	secure := cfg.UseSSL

	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			secure = true
		}
	}

	c := &Client{
		cfg:      *cfg,
		endpoint: endpoint,
		secure:   secure,
		timeout:  cfg.GetOpTimeout(),
		clients:  make(map[string]*minio.Client),
	}

	if _, err := c.client(cfg.Region); err != nil {
		return nil, err
	}

	if err := c.Health(ctx); err != nil {
		return nil, fmt.Errorf("s3 health check: %w", err)
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("region", cfg.Region).Msg("s3 connected")

	return c, nil
}

// client 返回 region 对应的客户端，首次使用时创建.
func (c *Client) client(region string) (*minio.Client, error) {
	if region == "" {
		region = c.cfg.Region
	}

	c.mu.RLock()
	cli, ok := c.clients[region]
	c.mu.RUnlock()

	if ok {
		return cli, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cli, ok := c.clients[region]; ok {
		return cli, nil
	}

	cli, err := minio.New(c.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.cfg.AccessKeyID, c.cfg.SecretAccessKey, ""),
		Secure: c.secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for region %s: %w", region, err)
	}

	cli.SetAppInfo(configs.AppName, configs.AppVersion)
	c.clients[region] = cli

	return cli, nil
}

// call 为一次对象存储调用加上超时、追踪与耗时统计，并把错误归类.
func (c *Client) call(ctx context.Context, op string, b objstore.Bucket, fn func(ctx context.Context, cli *minio.Client) error) error {
	cli, err := c.client(b.Region)
	if err != nil {
		return errs.Internal("object store client unavailable").Wrap(err)
	}

	ctx, span := tracing.StartSpan(ctx, "s3."+op)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err = mapError(ctx, op, fn(ctx, cli))

	result := "ok"
	if err != nil {
		result = string(errs.CodeOf(err))
		span.RecordError(err)
	}

	metrics.ObjectStoreDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())

	return err
}

// mapError 将 MinIO/网络错误映射为 errs 分类.
func mapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	var de *errs.Error
	if errors.As(err, &de) {
		return de
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errs.UpstreamTimeout("object store %s timed out", op).Wrap(err)
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NoSuchVersion", "NoSuchUpload":
		return errs.NotFound("%s", resp.Message).With("op", op).Wrap(err)
	case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
		return errs.UpstreamUnavailable("object store %s unavailable", op).Wrap(err)
	}

	var netErr net.Error
	var urlErr *url.Error

	if errors.As(err, &netErr) || errors.As(err, &urlErr) || resp.StatusCode >= 500 {
		return errs.UpstreamUnavailable("object store %s unavailable", op).Wrap(err)
	}

	return errs.Internal("object store %s failed", op).Wrap(err)
}

func (c *Client) CreateBucket(ctx context.Context, b objstore.Bucket) error {
	return c.call(ctx, "create_bucket", b, func(ctx context.Context, cli *minio.Client) error {
		exists, err := cli.BucketExists(ctx, b.Name)
		if err != nil {
			return err
		}

		if exists {
			return nil
		}

		err = cli.MakeBucket(ctx, b.Name, minio.MakeBucketOptions{Region: b.Region})
		if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" {
			return nil
		}

		return err
	})
}

func (c *Client) DeleteBucket(ctx context.Context, b objstore.Bucket) error {
	return c.call(ctx, "delete_bucket", b, func(ctx context.Context, cli *minio.Client) error {
		err := cli.RemoveBucket(ctx, b.Name)
		if minio.ToErrorResponse(err).Code == "NoSuchBucket" {
			return nil
		}

		return err
	})
}

func (c *Client) ListKeys(ctx context.Context, b objstore.Bucket) ([]string, error) {
	var keys []string

	err := c.call(ctx, "list_keys", b, func(ctx context.Context, cli *minio.Client) error {
		for obj := range cli.ListObjects(ctx, b.Name, minio.ListObjectsOptions{Recursive: true}) {
			if obj.Err != nil {
				return obj.Err
			}

			keys = append(keys, obj.Key)
		}

		return nil
	})

	return keys, err
}

func (c *Client) GetObject(ctx context.Context, b objstore.Bucket, key, versionID string) (*objstore.Object, error) {
	var out *objstore.Object

	err := c.call(ctx, "get_object", b, func(ctx context.Context, cli *minio.Client) error {
		obj, err := cli.GetObject(ctx, b.Name, key, minio.GetObjectOptions{VersionID: versionID})
		if err != nil {
			return err
		}
		defer obj.Close()

		st, err := obj.Stat()
		if err != nil {
			return err
		}

		content, err := io.ReadAll(obj)
		if err != nil {
			return err
		}

		out = &objstore.Object{ObjectInfo: toInfo(st), Content: content}

		return nil
	})

	return out, err
}

func (c *Client) StatObject(ctx context.Context, b objstore.Bucket, key string) (objstore.ObjectInfo, error) {
	var info objstore.ObjectInfo

	err := c.call(ctx, "stat_object", b, func(ctx context.Context, cli *minio.Client) error {
		st, err := cli.StatObject(ctx, b.Name, key, minio.StatObjectOptions{})
		if err != nil {
			return err
		}

		info = toInfo(st)

		return nil
	})

	return info, err
}

func (c *Client) PutObject(ctx context.Context, b objstore.Bucket, key string, content []byte, contentType string) (objstore.ObjectInfo, error) {
	var info objstore.ObjectInfo

	err := c.call(ctx, "put_object", b, func(ctx context.Context, cli *minio.Client) error {
		up, err := cli.PutObject(ctx, b.Name, key, bytes.NewReader(content), int64(len(content)),
			minio.PutObjectOptions{ContentType: contentType})
		if err != nil {
			return err
		}

		info = objstore.ObjectInfo{
			Key:          key,
			Size:         up.Size,
			ContentType:  contentType,
			VersionID:    up.VersionID,
			ETag:         up.ETag,
			LastModified: up.LastModified,
		}

		return nil
	})

	return info, err
}

func (c *Client) DeleteObject(ctx context.Context, b objstore.Bucket, key string) error {
	return c.call(ctx, "delete_object", b, func(ctx context.Context, cli *minio.Client) error {
		return cli.RemoveObject(ctx, b.Name, key, minio.RemoveObjectOptions{})
	})
}

func (c *Client) DeleteAllVersions(ctx context.Context, b objstore.Bucket) error {
	return c.call(ctx, "delete_all_versions", b, func(ctx context.Context, cli *minio.Client) error {
		objects := cli.ListObjects(ctx, b.Name, minio.ListObjectsOptions{Recursive: true, WithVersions: true})

		var listErr error

		toRemove := make(chan minio.ObjectInfo)

		go func() {
			defer close(toRemove)

			for obj := range objects {
				if obj.Err != nil {
					listErr = obj.Err
					return
				}

				select {
				case toRemove <- obj:
				case <-ctx.Done():
					return
				}
			}
		}()

		var firstErr error

		for rerr := range cli.RemoveObjects(ctx, b.Name, toRemove, minio.RemoveObjectsOptions{}) {
			if firstErr == nil {
				firstErr = rerr.Err
			}
		}

		if listErr != nil {
			if minio.ToErrorResponse(listErr).Code == "NoSuchBucket" {
				return nil
			}

			return listErr
		}

		return firstErr
	})
}

func (c *Client) CopyObject(ctx context.Context, src objstore.Bucket, srcKey string, dst objstore.Bucket, dstKey string) error {
	return c.call(ctx, "copy_object", dst, func(ctx context.Context, cli *minio.Client) error {
		_, err := cli.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: dst.Name, Object: dstKey},
			minio.CopySrcOptions{Bucket: src.Name, Object: srcKey},
		)

		return err
	})
}

func (c *Client) EnableVersioning(ctx context.Context, b objstore.Bucket, expiryDays int) error {
	return c.call(ctx, "enable_versioning", b, func(ctx context.Context, cli *minio.Client) error {
		if err := cli.EnableVersioning(ctx, b.Name); err != nil {
			return err
		}

		lc := lifecycle.NewConfiguration()
		lc.Rules = []lifecycle.Rule{
			{
				ID:         noncurrentRuleID,
				Status:     "Enabled",
				RuleFilter: lifecycle.Filter{Prefix: ""},
				NoncurrentVersionExpiration: lifecycle.NoncurrentVersionExpiration{
					NoncurrentDays: lifecycle.ExpirationDays(expiryDays),
				},
			},
		}

		return cli.SetBucketLifecycle(ctx, b.Name, lc)
	})
}

// ListVersions 底层按前缀列举，这里只保留 key 完全相等的条目.
func (c *Client) ListVersions(ctx context.Context, b objstore.Bucket, key string, limit int) ([]objstore.VersionInfo, error) {
	var out []objstore.VersionInfo

	err := c.call(ctx, "list_versions", b, func(ctx context.Context, cli *minio.Client) error {
		listCtx, stop := context.WithCancel(ctx)
		defer stop()

		opts := minio.ListObjectsOptions{Prefix: key, Recursive: true, WithVersions: true}

		for obj := range cli.ListObjects(listCtx, b.Name, opts) {
			if obj.Err != nil {
				return obj.Err
			}

			if obj.Key != key {
				continue
			}

			out = append(out, objstore.VersionInfo{
				Key:            obj.Key,
				VersionID:      obj.VersionID,
				Size:           obj.Size,
				IsLatest:       obj.IsLatest,
				IsDeleteMarker: obj.IsDeleteMarker,
				LastModified:   obj.LastModified,
			})

			if limit > 0 && len(out) >= limit {
				break
			}
		}

		return nil
	})

	return out, err
}

// Health 列出 bucket 验证连接与凭证.
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, "health", objstore.Bucket{Region: c.cfg.Region}, func(ctx context.Context, cli *minio.Client) error {
		_, err := cli.ListBuckets(ctx)
		return err
	})
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

func toInfo(st minio.ObjectInfo) objstore.ObjectInfo {
	return objstore.ObjectInfo{
		Key:          st.Key,
		Size:         st.Size,
		ContentType:  st.ContentType,
		VersionID:    st.VersionID,
		ETag:         st.ETag,
		LastModified: st.LastModified,
	}
}
