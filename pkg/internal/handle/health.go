package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	ctxPkg "github.com/yeisme/codespace/pkg/context"
	"github.com/yeisme/codespace/pkg/internal/types"
)

const timeout = 2 * time.Second

const kvProbeKey = "health:probe"

func errNotInitialized(component string) error {
	return errors.New(component + " client not initialized")
}

func check(ctx context.Context, p probe) types.HealthResponse {
	r := types.HealthResponse{Component: p.name, Status: "ok"}
	if err := p.run(ctx); err != nil {
		r.Status, r.Error = "unhealthy", err.Error()
	}

	return r
}

// single 探测一个依赖.
func single(c *gin.Context, name string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	for _, p := range probes() {
		if p.name != name {
			continue
		}

		r := check(ctx, p)
		if r.Status != "ok" {
			c.JSON(http.StatusServiceUnavailable, r)
			return
		}

		c.JSON(http.StatusOK, r)

		return
	}

	c.JSON(http.StatusNotFound, types.HealthResponse{Component: name, Status: "unknown"})
}

// HealthDB 数据库健康检查.
//
//	@Summary	数据库健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/health/db [get]
func HealthDB(c *gin.Context) { single(c, "db") }

// HealthS3 对象存储健康检查.
//
//	@Summary	对象存储健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/health/s3 [get]
func HealthS3(c *gin.Context) { single(c, "s3") }

// HealthMQ 消息队列健康检查，publisher 与 subscriber 在启动时建立，判空即可.
//
//	@Summary	消息队列健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/health/mq [get]
func HealthMQ(c *gin.Context) { single(c, "mq") }

// HealthKV 写入并读回一个短期 key.
//
//	@Summary	KV 健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/health/kv [get]
func HealthKV(c *gin.Context) { single(c, "kv") }

type probe struct {
	name string
	run  func(ctx context.Context) error
}

func probes() []probe {
	return []probe{
		{"db", func(ctx context.Context) error {
			dbc := ctxPkg.GetDBClient(ctx)
			if dbc == nil || dbc.DB == nil {
				return errNotInitialized("db")
			}

			return dbc.Ping(ctx)
		}},
		{"s3", func(ctx context.Context) error {
			store := ctxPkg.GetObjectStore(ctx)
			if store == nil {
				return errNotInitialized("s3")
			}

			return store.Health(ctx)
		}},
		{"mq", func(ctx context.Context) error {
			if ctxPkg.GetMQClient(ctx) == nil {
				return errNotInitialized("mq")
			}

			return nil
		}},
		{"kv", func(ctx context.Context) error {
			kvc := ctxPkg.GetKVClient(ctx)
			if kvc == nil || kvc.KVStore == nil {
				return errNotInitialized("kv")
			}

			if err := kvc.Set(ctx, kvProbeKey, []byte("ok"), 10*time.Second); err != nil {
				return err
			}

			_, err := kvc.Get(ctx, kvProbeKey)

			return err
		}},
	}
}

// HealthAll 并发探测全部依赖.
//
//	@Summary	汇总健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthReport
//	@Failure	503	{object}	types.HealthReport
//	@Router		/health [get]
func HealthAll(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	list := probes()
	report := types.HealthReport{Status: "ok", Components: make([]types.HealthResponse, len(list))}

	var g errgroup.Group

	for i, p := range list {
		g.Go(func() error {
			report.Components[i] = check(ctx, p)
			return nil
		})
	}

	_ = g.Wait()

	code := http.StatusOK

	for _, r := range report.Components {
		if r.Status != "ok" {
			report.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, report)
}
