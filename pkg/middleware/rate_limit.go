package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/errs"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleAfter       = 30 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware 返回一个基于配置的限流中间件.
// rate_limit.key 取值：global、ip、user（调用方身份，缺省回退到 IP）或 header:<name>.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := cfg.KeyMode()
	if keyMode == "global" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				rejectRate(c)
				return
			}

			c.Next()
		}
	}

	var (
		mu       sync.Mutex
		limiters = map[string]*limiterEntry{}
	)

	getLimiter := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		e, ok := limiters[key]
		if !ok {
			e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			limiters[key] = e
		}

		e.lastSeen = time.Now()

		return e.limiter
	}

	// 后台按最后访问时间清理闲置 limiter
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()

		for now := range ticker.C {
			mu.Lock()

			for k, e := range limiters {
				if now.Sub(e.lastSeen) > limiterIdleAfter {
					delete(limiters, k)
				}
			}

			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		key := limitKey(c, keyMode)
		if key == "" {
			key = "unknown"
		}

		if !getLimiter(key).Allow() {
			rejectRate(c)
			return
		}

		c.Next()
	}
}

func limitKey(c *gin.Context, mode string) string {
	switch {
	case strings.HasPrefix(mode, "header:"):
		if v := c.GetHeader(mode[len("header:"):]); v != "" {
			return v
		}
	case mode == "user":
		if sub := GetSubject(c); sub.UserID != "" {
			return "user:" + sub.UserID
		}
	}

	return clientIP(c)
}

func rejectRate(c *gin.Context) {
	abort(c, http.StatusTooManyRequests, errs.UpstreamUnavailable("rate limit exceeded, please try again later"))
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = c.Request.RemoteAddr
		}
	}

	return ip
}
