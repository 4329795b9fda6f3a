package access

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"github.com/sony/gobreaker"

	"github.com/yeisme/codespace/pkg/cache"
	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/errs"
)

const (
	maxResponseBytes = 64 << 10
	// 未开启熔断配置时按连续失败次数熔断
	defaultConsecutiveFailures = 5
)

// HTTPResolver 通过 HTTP 查询课程服务：GET {base}/courses/{course}/permissions?user={user}.
type HTTPResolver struct {
	baseURL string
	token   string
	timeout time.Duration
	ttl     time.Duration

	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	cache   *cache.Cache
}

// HTTPResolverOption 可选项.
type HTTPResolverOption func(*HTTPResolver)

// WithHTTPClient 替换底层 http.Client.
func WithHTTPClient(c *http.Client) HTTPResolverOption {
	return func(r *HTTPResolver) { r.client = c }
}

// WithCache 启用结果缓存，c 为 nil 或 TTL 为 0 时不缓存.
func WithCache(c *cache.Cache) HTTPResolverOption {
	return func(r *HTTPResolver) { r.cache = c }
}

// NewHTTPResolver 创建 HTTPResolver.
func NewHTTPResolver(cfg configs.PermissionConfig, cb configs.CircuitBreakerConfig, opts ...HTTPResolverOption) *HTTPResolver {
	r := &HTTPResolver{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.ServiceToken,
		timeout: cfg.GetTimeout(),
		ttl:     cfg.GetCacheTTL(),
		client:  &http.Client{},
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "course-permissions",
		MaxRequests: max(cb.MaxRequestsInHalf, 1),
		Interval:    cb.GetInterval(),
		Timeout:     cb.GetTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if !cb.Enabled {
				return counts.ConsecutiveFailures >= defaultConsecutiveFailures
			}

			return cb.ShouldTrip(counts.Requests, counts.TotalFailures)
		},
		// 403/404 是正常的业务结果，不计入失败
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}

			code := errs.CodeOf(err)

			return code != errs.CodeUpstreamTimeout && code != errs.CodeUpstreamUnavailable && code != errs.CodeInternal
		},
	})

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Lookup 实现 PermissionResolver.
func (r *HTTPResolver) Lookup(ctx context.Context, userID, courseID string) (Permissions, error) {
	if r.cache == nil || r.ttl <= 0 {
		return r.fetch(ctx, userID, courseID)
	}

	key := fmt.Sprintf("perm:%x", xxhash.Sum64String(userID+"\x00"+courseID))

	return cache.GetOrSet(ctx, r.cache, key, func() (Permissions, error) {
		return r.fetch(ctx, userID, courseID)
	}, r.ttl)
}

func (r *HTTPResolver) fetch(ctx context.Context, userID, courseID string) (Permissions, error) {
	out, err := r.breaker.Execute(func() (any, error) {
		return r.do(ctx, userID, courseID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Permissions{}, errs.UpstreamUnavailable("course permission service unavailable").Wrap(err)
		}

		return Permissions{}, err
	}

	return out.(Permissions), nil
}

func (r *HTTPResolver) do(ctx context.Context, userID, courseID string) (Permissions, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/courses/%s/permissions?user=%s",
		r.baseURL, url.PathEscape(courseID), url.QueryEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Permissions{}, errs.Internal("build permission request").Wrap(err)
	}

	req.Header.Set("Accept", "application/json")

	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Permissions{}, errs.UpstreamTimeout("course permission lookup timed out").Wrap(err)
		}

		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return Permissions{}, errs.UpstreamTimeout("course permission lookup timed out").Wrap(err)
		}

		return Permissions{}, errs.UpstreamUnavailable("course permission service unreachable").Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Permissions{}, errs.UpstreamUnavailable("read permission response").Wrap(err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusForbidden:
		// 用户不在课程中
		return Permissions{}, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return Permissions{}, errs.UpstreamUnavailable("course permission service returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Permissions{}, errs.Internal("unexpected permission response status %d", resp.StatusCode)
	}

	var perms Permissions
	if err := sonic.Unmarshal(body, &perms); err != nil {
		return Permissions{}, errs.Internal("decode permission response").Wrap(err)
	}

	return perms, nil
}

// StaticResolver 固定权限表，key 为 user + "/" + course，用于测试与本地开发.
type StaticResolver struct {
	Table map[string]Permissions
	Err   error
}

// Lookup 实现 PermissionResolver.
func (s *StaticResolver) Lookup(_ context.Context, userID, courseID string) (Permissions, error) {
	if s.Err != nil {
		return Permissions{}, s.Err
	}

	return s.Table[userID+"/"+courseID], nil
}
