// Package metrics 定义 Prometheus 指标. 指标对象始终可用，未启用时不注册也不暴露.
package metrics

import (
	"net/http"
	_ "net/http/pprof"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/codespace/pkg/configs"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 正在处理的请求数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of in-flight HTTP requests",
		},
	)

	// ObjectStoreDuration 对象存储调用耗时，result 为 ok 或错误码.
	ObjectStoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codespace_object_store_duration_seconds",
			Help:    "Object store call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "result"},
	)

	// FanoutObjects 克隆/快照逐对象拷贝结果.
	FanoutObjects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codespace_fanout_objects_total",
			Help: "Objects copied by clone and snapshot fan-out",
		},
		[]string{"kind", "result"},
	)

	// FlushedSessions 落盘的协同会话数.
	FlushedSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codespace_flushed_sessions_total",
			Help: "Collaboration sessions durableized by flush",
		},
		[]string{"trigger"},
	)

	// WriteDivergence 写入时检测到的内容分歧（仍按后写覆盖）.
	WriteDivergence = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codespace_write_divergence_total",
			Help: "Writes whose base hash did not match the current content",
		},
		[]string{"source"},
	)

	// WorkspaceTransitions 工作区状态迁移次数.
	WorkspaceTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codespace_workspace_transitions_total",
			Help: "Workspace status transitions",
		},
		[]string{"from", "to"},
	)

	// JobRuns 后台任务执行次数，result 为 ok、error 或 panic.
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codespace_job_runs_total",
			Help: "Background job runs",
		},
		[]string{"job", "result"},
	)

	// JobDuration 后台任务耗时.
	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codespace_job_duration_seconds",
			Help:    "Background job duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	// CacheLookups 缓存查询，result 为 hit 或 miss.
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codespace_cache_lookups_total",
			Help: "Cache lookups by namespace",
		},
		[]string{"namespace", "result"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	registerOnce sync.Once
)

// InitMetrics 初始化Metrics.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	registerOnce.Do(func() {
		// labels 作为常量标签加到所有指标上
		reg := prometheus.WrapRegistererWith(prometheus.Labels(config.Labels), registry)

		// 运行时指标由默认 registry 提供，和 gorm 插件的指标一起暴露
		if !config.RuntimeMetrics {
			prometheus.Unregister(collectors.NewGoCollector())
			prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		}

		reg.MustRegister(RequestCounter, RequestDuration, ActiveConnections)
		reg.MustRegister(ObjectStoreDuration, FanoutObjects, FlushedSessions, WriteDivergence, WorkspaceTransitions)
		reg.MustRegister(JobRuns, JobDuration, CacheLookups)
	})

	return nil
}

// StartMetricsServer 在 engine 上挂载 /metrics，可选 /debug/pprof.
func StartMetricsServer(config configs.MetricsConfig, debugEngine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	gatherers := prometheus.Gatherers{registry, prometheus.DefaultGatherer}
	debugEngine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))

	if config.Pprof {
		debugEngine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
