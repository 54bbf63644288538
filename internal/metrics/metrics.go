// Package metrics 提供 Prometheus 指标的收集与暴露。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 流水线阶段
const (
	StageTranslate  = "translate"
	StageExecute    = "execute"
	StageSynthesize = "synthesize"
	StagePersist    = "persist"
)

// 阶段结果
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeDegraded = "degraded"
)

// Collector 收集 HTTP 与查询流水线指标。nil Collector 上的方法调用都是空操作。
type Collector struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	stages       *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	statements   *prometheus.CounterVec
	auditDrops   prometheus.Counter
}

// NewCollector 创建 Collector 并注册到 reg。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sqlchat_http_requests_total",
			Help: "按路由、方法和状态码统计的 HTTP 请求数",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sqlchat_http_request_duration_seconds",
			Help:    "HTTP 请求耗时（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sqlchat_pipeline_stage_total",
			Help: "查询流水线各阶段的结果计数",
		}, []string{"stage", "outcome"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sqlchat_pipeline_stage_duration_seconds",
			Help:    "查询流水线各阶段耗时（秒）",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sqlchat_statements_total",
			Help: "按类型统计的已执行语句数",
		}, []string{"kind"}),
		auditDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlchat_audit_publish_failures_total",
			Help: "发布失败的查询审计数",
		}),
	}

	reg.MustRegister(c.requests, c.latency, c.stages, c.stageLatency, c.statements, c.auditDrops)
	return c
}

// ObserveRequest 记录一次 HTTP 请求。
func (c *Collector) ObserveRequest(route, method string, status int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveStage 记录一个流水线阶段的结果与耗时。
func (c *Collector) ObserveStage(stage, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.stages.WithLabelValues(stage, outcome).Inc()
	c.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveStatement 记录一条已执行语句的类型。
func (c *Collector) ObserveStatement(kind string) {
	if c == nil {
		return
	}
	c.statements.WithLabelValues(kind).Inc()
}

// AuditDropped 记录一次审计发布失败。
func (c *Collector) AuditDropped() {
	if c == nil {
		return
	}
	c.auditDrops.Inc()
}

// Handler 返回用于 Prometheus 抓取的 HTTP handler。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
