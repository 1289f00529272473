package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aptoseidon_analyses_total",
		Help: "The total number of analysis attempts",
	}, []string{"status", "mode"})

	ChallengesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aptoseidon_payment_challenges_total",
		Help: "Total payment challenges received from the analysis service",
	})

	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aptoseidon_payments_total",
		Help: "Total on-chain payment settlements by result",
	}, []string{"result"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aptoseidon_upstream_latency_seconds",
		Help:    "Upstream analysis service latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aptoseidon_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	HistoryRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aptoseidon_history_refreshes_total",
		Help: "History cache refreshes by result",
	}, []string{"result"})
)
