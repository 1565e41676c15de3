package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 定义业务监控指标
type BusinessMetrics struct {
	RiskVerdictTotal     *prometheus.CounterVec
	TransferBlockedTotal prometheus.Counter
	RiskOverrideTotal    prometheus.Counter
	RiskDegradedTotal    *prometheus.CounterVec
	BalanceCheckTotal    *prometheus.CounterVec
	BroadcastTotal       *prometheus.CounterVec
	UpstreamDuration     *prometheus.HistogramVec
}

// Global Metrics Instance，包加载时注册，组件可直接使用
var Business = newBusinessMetrics()

func newBusinessMetrics() *BusinessMetrics {
	return &BusinessMetrics{
		RiskVerdictTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tron_risk_verdict_total",
			Help: "Risk verdicts by state",
		}, []string{"state"}),
		TransferBlockedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tron_transfer_blocked_total",
			Help: "Transfers blocked by the risk circuit breaker",
		}),
		RiskOverrideTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tron_risk_override_total",
			Help: "Risky transfers explicitly forced through",
		}),
		RiskDegradedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tron_risk_degraded_total",
			Help: "Transfers that proceeded with an incomplete risk check",
		}, []string{"state"}),
		BalanceCheckTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tron_balance_check_total",
			Help: "Balance sufficiency checks by outcome",
		}, []string{"outcome"}),
		BroadcastTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tron_broadcast_total",
			Help: "Broadcast attempts by result",
		}, []string{"result"}),
		UpstreamDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tron_upstream_request_duration_seconds",
			Help:    "Latency of calls to explorer, relay and JSON-RPC endpoints",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "outcome"}),
	}
}

// ObserveUpstream 记录一次外部调用耗时
func ObserveUpstream(endpoint string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Business.UpstreamDuration.WithLabelValues(endpoint, outcome).Observe(time.Since(start).Seconds())
}
