package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/cache"
	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/internal/container"
	"github.com/yeisme/codespace/pkg/internal/service"
	"github.com/yeisme/codespace/pkg/internal/storage/kv"
	"github.com/yeisme/codespace/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.AuthMiddleware(configs.AuthConfig{
		Enabled:   true,
		SkipPaths: []string{"/api/v1/health"},
		AdminRole: "admin",
	}))

	r.GET("/api/v1/me", func(c *gin.Context) {
		sub := middleware.GetSubject(c)
		c.JSON(http.StatusOK, gin.H{"user": sub.UserID, "admin": sub.IsSystemAdmin, "role": middleware.GetRole(c).String()})
	})
	r.GET("/api/v1/health/db", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := do(r, http.MethodGet, "/api/v1/me", nil)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), `"code":"PERMISSION_DENIED"`) {
		t.Fatalf("anonymous request = %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/v1/me", map[string]string{"X-User": "alice", "X-Role": "Admin"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"admin":true`) {
		t.Fatalf("admin request = %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/v1/me", map[string]string{"X-Forwarded-Email": "bob@example.com", "X-User": "mallory"})
	if !strings.Contains(w.Body.String(), `"user":"bob@example.com"`) || !strings.Contains(w.Body.String(), `"role":"user"`) {
		t.Fatalf("proxy header should win: %s", w.Body.String())
	}

	if w := do(r, http.MethodGet, "/api/v1/me?user=carol", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("query identity must be disabled by default, got %d", w.Code)
	}

	if w := do(r, http.MethodGet, "/api/v1/health/db", nil); w.Code != http.StatusNoContent {
		t.Fatalf("skipped path should pass, got %d", w.Code)
	}
}

func TestRequireMinRole(t *testing.T) {
	r := gin.New()
	r.Use(middleware.AuthMiddleware(configs.AuthConfig{Enabled: true, AdminRole: "admin"}))
	r.GET("/ops", middleware.RequireMinRole(middleware.RoleOperator), func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := do(r, http.MethodGet, "/ops", map[string]string{"X-User": "u"}); w.Code != http.StatusForbidden {
		t.Fatalf("user should be forbidden, got %d", w.Code)
	}

	for _, role := range []string{"operator", "admin"} {
		if w := do(r, http.MethodGet, "/ops", map[string]string{"X-User": "u", "X-Role": role}); w.Code != http.StatusOK {
			t.Fatalf("%s should pass, got %d", role, w.Code)
		}
	}
}

func TestContainerAuth(t *testing.T) {
	svc := &service.Services{Verifier: container.NewStaticSecretVerifier("s3cret")}

	r := gin.New()
	r.Use(middleware.ServicesMiddleware(svc))
	r.GET("/container/workspaces/:id/files", middleware.ContainerAuth("X-Container-Token"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", map[string]string{"X-Container-Token": "nope"}, http.StatusForbidden},
		{"header", map[string]string{"X-Container-Token": "s3cret"}, http.StatusOK},
		{"bearer", map[string]string{"Authorization": "Bearer s3cret"}, http.StatusOK},
	}

	for _, tc := range cases {
		if w := do(r, http.MethodGet, "/container/workspaces/ws1/files", tc.header); w.Code != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestCacheMiddleware(t *testing.T) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("kv: %v", err)
	}

	var hits atomic.Int32

	r := gin.New()
	r.Use(middleware.AuthMiddleware(configs.AuthConfig{Enabled: true}))
	r.GET("/v/:vid", middleware.CacheMiddleware(middleware.CacheConfig{Cache: cache.NewCache(store), TTL: time.Minute}),
		func(c *gin.Context) {
			hits.Add(1)
			c.JSON(http.StatusOK, gin.H{"vid": c.Param("vid")})
		})

	alice := map[string]string{"X-User": "alice"}

	first := do(r, http.MethodGet, "/v/1", alice)
	if first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first request should miss")
	}

	second := do(r, http.MethodGet, "/v/1", alice)
	if second.Header().Get("X-Cache") != "HIT" || second.Body.String() != first.Body.String() {
		t.Fatalf("second request should hit: %v %s", second.Header(), second.Body.String())
	}

	if etag := second.Header().Get("ETag"); etag == "" {
		t.Fatalf("hit should carry an etag")
	} else if w := do(r, http.MethodGet, "/v/1", map[string]string{"X-User": "alice", "If-None-Match": etag}); w.Code != http.StatusNotModified {
		t.Fatalf("matching etag should return 304, got %d", w.Code)
	}

	do(r, http.MethodGet, "/v/1", map[string]string{"X-User": "bob"})
	do(r, http.MethodGet, "/v/1", map[string]string{"X-User": "alice", "X-Cache-Bypass": "1"})

	if n := hits.Load(); n != 3 {
		t.Fatalf("handler should run for first, other user and bypass, ran %d", n)
	}
}
