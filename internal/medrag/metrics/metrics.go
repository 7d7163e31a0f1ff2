// Package metrics 提供推理服务的 Prometheus 指标。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kart-io/medrag/pkg/llm/resilience"
)

const namespace = "medrag"

// 预测结果标签
const (
	OutcomeSuccess          = "success"
	OutcomeInvalid          = "invalid_statement"
	OutcomeModelUnavailable = "model_unavailable"
	OutcomeParseError       = "parse_error"
	OutcomeTimeout          = "timeout"
	OutcomeInternal         = "internal"
)

// 阶段标签
const (
	StageEmbed    = "embed"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
	StageParse    = "parse"
	StagePredict  = "predict"
)

// 模型调用类型
const (
	ModelEmbed = "embed"
	ModelChat  = "chat"
)

// Metrics 推理服务指标集合，使用独立的 Registry。
// 所有方法对 nil 接收者安全，便于测试中省略指标。
type Metrics struct {
	registry *prometheus.Registry

	Predictions   *prometheus.CounterVec
	ModelCalls    *prometheus.CounterVec
	Errors        *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	ParseRetries  prometheus.Counter
	CacheLookups  *prometheus.CounterVec
	BreakerState  *prometheus.GaugeVec
	Chunks        prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Predictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of predictions by outcome.",
		}, []string{"outcome"}),
		ModelCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Total number of model calls by kind and status.",
		}, []string{"kind", "status"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by kind.",
		}, []string{"kind"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of prediction stages in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		ParseRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_retries_total",
			Help:      "Total number of generations retried after an unparseable reply.",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_lookups_total",
			Help:      "Prediction cache lookups by result.",
		}, []string{"result"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"breaker"}),
		Chunks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "knowledge_base_chunks",
			Help:      "Number of chunks in the loaded knowledge base.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveStage records the latency of a stage started at start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordModelCall counts one model call.
func (m *Metrics) RecordModelCall(kind string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ModelCalls.WithLabelValues(kind, status).Inc()
}

// RecordPrediction counts one prediction outcome. Failures are also
// counted in errors_total under the same label.
func (m *Metrics) RecordPrediction(outcome string) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSuccess {
		m.Errors.WithLabelValues(outcome).Inc()
	}
}

// RecordParseRetry counts a generation retried with the strict prompt.
func (m *Metrics) RecordParseRetry() {
	if m == nil {
		return
	}
	m.ParseRetries.Inc()
}

// RecordCacheLookup counts a cache lookup: hit, miss or error.
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// SetChunks sets the knowledge base size.
func (m *Metrics) SetChunks(n int64) {
	if m == nil {
		return
	}
	m.Chunks.Set(float64(n))
}

// WatchBreaker exports the breaker state and keeps it current.
func (m *Metrics) WatchBreaker(cb *resilience.CircuitBreaker) {
	if m == nil || cb == nil {
		return
	}
	m.BreakerState.WithLabelValues(cb.Name()).Set(float64(cb.State()))
	cb.OnStateChange(func(name string, _, to resilience.CircuitBreakerState) {
		m.BreakerState.WithLabelValues(name).Set(float64(to))
	})
}

// Middleware records request counts and latencies per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
