// Package metrics 提供 Prometheus 指标集合与 HTTP 暴露端点。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 计税服务指标集合。
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数（按方法、路径、状态码）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 计税次数（按州、方案）
	QuotesTotal *prometheus.CounterVec
	// 计税失败次数（按错误类别）
	QuoteErrorsTotal *prometheus.CounterVec
	// 计税耗时
	QuoteDuration prometheus.Histogram
	// 结果缓存命中计数
	QuoteCacheHitsTotal prometheus.Counter
}

// New 创建并注册指标实例。
func New(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vehicletax",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vehicletax",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		QuotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vehicletax",
			Subsystem: serviceName,
			Name:      "quotes_total",
			Help:      "Tax quotes computed",
		}, []string{"jurisdiction", "scheme"}),
		QuoteErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vehicletax",
			Subsystem: serviceName,
			Name:      "quote_errors_total",
			Help:      "Tax quote failures",
		}, []string{"kind"}),
		QuoteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vehicletax",
			Subsystem: serviceName,
			Name:      "quote_duration_seconds",
			Help:      "Tax quote computation latency",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		QuoteCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vehicletax",
			Subsystem: serviceName,
			Name:      "quote_cache_hits_total",
			Help:      "Quote cache hits",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QuotesTotal,
		m.QuoteErrorsTotal,
		m.QuoteDuration,
		m.QuoteCacheHitsTotal,
	)
	return m
}

// Handler 返回指标暴露端点。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
