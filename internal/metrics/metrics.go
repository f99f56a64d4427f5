package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quant_superior_runs_total",
		Help: "Signal and backtest runs by outcome",
	}, []string{"trigger", "outcome"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quant_superior_run_duration_seconds",
		Help:    "Wall time of a full collect, feature and backtest run",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})

	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "quant_superior_fetch_latency_seconds",
		Help: "Latency of market data downloads",
	}, []string{"source", "symbol"})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quant_superior_fetch_errors_total",
		Help: "Failed market data downloads",
	}, []string{"source", "symbol"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quant_superior_notifications_total",
		Help: "Signal notifications by channel and outcome",
	}, []string{"channel", "outcome"})

	LastSignal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quant_superior_last_signal",
		Help: "Most recent next-day signal: 1 long, -1 short, 0 flat",
	}, []string{"symbol"})
)
