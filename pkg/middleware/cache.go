package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/codespace/pkg/cache"
	"github.com/yeisme/codespace/pkg/log"
)

const (
	DefaultMaxBodyBytes = 1 << 20 // 1MB
	defaultCacheTTL     = 30 * time.Second
	bypassHeader        = "X-Cache-Bypass"
)

// CacheConfig 响应缓存配置. 只用于响应内容不可变的只读接口（如历史版本内容），
// 缓存键包含调用方身份，不同用户之间不共享响应.
type CacheConfig struct {
	Cache        *appcache.Cache           // 必须
	TTL          time.Duration             // 默认 30s
	MaxBodyBytes int                       // 超过后不缓存，0 表示不限制
	KeyFunc      func(*gin.Context) string // 可选，默认按路由、参数、query 与调用方生成
}

// responseCacheEntry 序列化存储结构.
type responseCacheEntry struct {
	Status      int    `json:"s"`
	ContentType string `json:"c,omitempty"`
	Body        []byte `json:"b,omitempty"`
	ETag        string `json:"e,omitempty"`
	StoredAt    int64  `json:"t"`
}

// CacheMiddleware 缓存 GET/HEAD 的 200 响应，支持 ETag / If-None-Match，命中时带 X-Cache: HIT.
// 请求头带 X-Cache-Bypass 时跳过缓存. 缓存读写失败不影响主流程.
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Cache == nil {
		panic("CacheMiddleware: Cache cannot be nil")
	}

	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}

	if cfg.KeyFunc == nil {
		cfg.KeyFunc = defaultCacheKey
	}

	return func(c *gin.Context) {
		m := c.Request.Method
		if (m != http.MethodGet && m != http.MethodHead) || c.GetHeader(bypassHeader) != "" {
			c.Next()
			return
		}

		key := cfg.KeyFunc(c)
		if serveFromCache(c, cfg, key) {
			return
		}

		// 响应头在写 body 时发出，MISS 标记需要提前设置
		c.Writer.Header().Set("X-Cache", "MISS")

		bw := &bodyCaptureWriter{ResponseWriter: c.Writer, max: cfg.MaxBodyBytes}
		c.Writer = bw
		c.Next()

		store(c, cfg, key, bw)
	}
}

// defaultCacheKey 方法 + 路由模板 + 路径参数 + 排序后的 query + 调用方.
func defaultCacheKey(c *gin.Context) string {
	var b strings.Builder

	b.WriteString(c.Request.Method)
	b.WriteByte(':')
	b.WriteString(c.FullPath())

	for _, p := range c.Params {
		b.WriteByte('|')
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}

	if q := c.Request.URL.Query(); len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}

		sort.Strings(keys)
		b.WriteByte('?')

		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}

			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strings.Join(q[k], ","))
		}
	}

	sub := GetSubject(c)
	fmt.Fprintf(&b, "|u=%s|a=%t", sub.UserID, sub.IsSystemAdmin)

	return fmt.Sprintf("rc:%x", xxhash.Sum64String(b.String()))
}

// bodyCaptureWriter 包装响应写入用于捕获 body.
type bodyCaptureWriter struct {
	gin.ResponseWriter

	buf       bytes.Buffer
	max       int
	truncated bool
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.max > 0 && w.buf.Len()+len(b) > w.max {
			w.truncated = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}

	return w.ResponseWriter.Write(b)
}

// serveFromCache 尝试从缓存提供响应; 成功返回 true.
func serveFromCache(c *gin.Context, cfg CacheConfig, key string) bool {
	entry, err := appcache.Get[responseCacheEntry](c.Request.Context(), cfg.Cache, key)
	if err != nil {
		return false
	}

	h := c.Writer.Header()
	h.Set("ETag", entry.ETag)
	h.Set("Age", fmt.Sprintf("%.0f", time.Since(time.Unix(0, entry.StoredAt)).Seconds()))
	h.Set("X-Cache", "HIT")

	if inm := c.GetHeader("If-None-Match"); entry.ETag != "" && inm == entry.ETag {
		c.AbortWithStatus(http.StatusNotModified)
		return true
	}

	if entry.ContentType != "" {
		h.Set("Content-Type", entry.ContentType)
	}

	c.Status(entry.Status)

	if c.Request.Method != http.MethodHead {
		_, _ = c.Writer.Write(entry.Body)
	}

	c.Abort()

	return true
}

// store 缓存 200 响应.
func store(c *gin.Context, cfg CacheConfig, key string, bw *bodyCaptureWriter) {
	if c.Writer.Status() != http.StatusOK || bw.truncated || c.Request.Method != http.MethodGet {
		return
	}

	body := bw.buf.Bytes()
	etag := fmt.Sprintf("\"%x\"", xxhash.Sum64(body))

	entry := responseCacheEntry{
		Status:      http.StatusOK,
		ContentType: c.Writer.Header().Get("Content-Type"),
		Body:        body,
		ETag:        etag,
		StoredAt:    time.Now().UnixNano(),
	}

	if err := appcache.Set(c.Request.Context(), cfg.Cache, key, entry, cfg.TTL); err != nil {
		log.Logger().Debug().Err(err).Str("key", key).Msg("store response cache failed")
	}
}
