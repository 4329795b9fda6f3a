// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/codespace/pkg/api"
	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/context"
	"github.com/yeisme/codespace/pkg/internal/jobs"
	"github.com/yeisme/codespace/pkg/internal/service"
	"github.com/yeisme/codespace/pkg/internal/storage"
	"github.com/yeisme/codespace/pkg/log"
	"github.com/yeisme/codespace/pkg/metrics"
	"github.com/yeisme/codespace/pkg/middleware"
	"github.com/yeisme/codespace/pkg/scheduler"
	"github.com/yeisme/codespace/pkg/tracing"
)

// App 组装好的服务进程.
type App struct {
	Engine    *gin.Engine
	Services  *service.Services
	config    *configs.AppConfig
	manager   *storage.Manager
	scheduler *scheduler.Scheduler
}

// NewApp 加载配置并组装存储、业务组件、中间件、路由与定时任务.
func NewApp(configPath string) (*App, error) {
	ctx := contextPkg.Background()

	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()
	log.Init()

	l := log.Logger()

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	svc, err := service.FromManager(manager, config)
	if err != nil {
		return nil, fmt.Errorf("init services: %w", err)
	}

	if err := svc.Registry.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(sched, svc); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	if !config.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.CORSMiddleware(config.Server, config.Auth, config.Container),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.StorageMiddleware(manager),
		middleware.ServicesMiddleware(svc),
		middleware.SchedulerMiddleware(sched),
	)

	api.RegisterGroup(engine, svc, config)

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	return &App{
		Engine:    engine,
		Services:  svc,
		config:    config,
		manager:   manager,
		scheduler: sched,
	}, nil
}

// Run 启动定时任务与 HTTP 服务，收到 SIGINT/SIGTERM 后先停止接收请求，再落盘全部协同会话.
func (a *App) Run() error {
	l := log.Logger()

	ctx, stop := signal.NotifyContext(contextPkg.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.scheduler.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	errCh := make(chan error, 1)

	go func() {
		l.Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	l.Info().Msg("shutting down")

	shutdownCtx, cancel := contextPkg.WithTimeout(contextPkg.Background(), a.config.Server.GetShutdownTimeout())
	defer cancel()

	var errs []error

	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	if err := a.scheduler.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
	}

	// 进程内会话不落盘就会丢失
	if n, err := jobs.Autosave(shutdownCtx, a.Services, 0); err != nil {
		errs = append(errs, fmt.Errorf("flush sessions: %w", err))
	} else if n > 0 {
		l.Info().Int("saved", n).Msg("flushed sessions on shutdown")
	}

	if err := tracing.ShutdownTracer(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
	}

	if err := a.manager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage close: %w", err))
	}

	return errors.Join(errs...)
}

// Context 携带存储与业务组件的上下文，供 CLI 子命令使用.
func (a *App) Context(ctx contextPkg.Context) contextPkg.Context {
	return context.WithServices(context.WithStorageManager(ctx, a.manager), a.Services)
}
