// Package context 在请求上下文里携带存储管理器与业务组件.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/codespace/pkg/internal/service"
	"github.com/yeisme/codespace/pkg/internal/storage"
	dbc "github.com/yeisme/codespace/pkg/internal/storage/db"
	kvc "github.com/yeisme/codespace/pkg/internal/storage/kv"
	mqc "github.com/yeisme/codespace/pkg/internal/storage/mq"
	"github.com/yeisme/codespace/pkg/internal/storage/objstore"
)

type (
	managerKey  struct{}
	servicesKey struct{}
)

func value[T any](ctx context.Context, key any) T {
	v, _ := ctx.Value(key).(T)
	return v
}

func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, mgr)
}

// GetManager 未注入时返回 nil，下面的 Get* 同理.
func GetManager(ctx context.Context) *storage.Manager {
	return value[*storage.Manager](ctx, managerKey{})
}

func WithServices(ctx context.Context, svc *service.Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, svc)
}

func GetServices(ctx context.Context) *service.Services {
	return value[*service.Services](ctx, servicesKey{})
}

func fromManager[T any](ctx context.Context, get func(*storage.Manager) T) T {
	if mgr := GetManager(ctx); mgr != nil {
		return get(mgr)
	}

	var zero T

	return zero
}

func GetObjectStore(ctx context.Context) objstore.Store {
	return fromManager(ctx, (*storage.Manager).GetObjectStore)
}

func GetDBClient(ctx context.Context) *dbc.Client {
	return fromManager(ctx, (*storage.Manager).GetDBClient)
}

func GetMQClient(ctx context.Context) *mqc.Client {
	return fromManager(ctx, (*storage.Manager).GetMQClient)
}

func GetKVClient(ctx context.Context) *kvc.Client {
	return fromManager(ctx, (*storage.Manager).GetKVClient)
}

// WithTraceContext 当前 span 在采样时，给日志带上 trace_id 与 span_id.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	sc := trace.SpanFromContext(ctx)
	if !sc.IsRecording() {
		return logger
	}

	return logger.With().
		Str("trace_id", sc.SpanContext().TraceID().String()).
		Str("span_id", sc.SpanContext().SpanID().String()).
		Logger()
}
