// Package metrics 定义问答服务对外暴露的 Prometheus 指标。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry 是服务独立使用的注册表，避免与默认注册表中的其他指标冲突。
	Registry = prometheus.NewRegistry()

	AskRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edi_ask_requests_total",
			Help: "Total number of /ask requests by route and HTTP status",
		},
		[]string{"route", "status"},
	)
	AskLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edi_ask_latency_seconds",
			Help:    "Latency of /ask requests in seconds by route",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~41s
		},
		[]string{"route"},
	)
	ExternalFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edi_external_call_failures_total",
			Help: "Failed calls to external services (embedding, llm)",
		},
		[]string{"service"},
	)
	AuditEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edi_audit_events_total",
			Help: "Audit events by result (written, dropped, failed)",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		AskRequests,
		AskLatency,
		ExternalFailures,
		AuditEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler 返回 /metrics 的 HTTP 处理器。
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
