package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(aiTokensIn, aiCallsLatencyMs, aiCallRetries) }

var aiTokensIn = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ai_tokens_in",
		Help: "Sum of prompt (input) tokens per backend.",
	},
	[]string{"backend"},
)

var aiCallsLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ai_calls_latency_ms",
		Help:    "AI call latency distribution in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 15000, 45000, 120000, 180000},
	},
	[]string{"backend", "kind", "success"}, // kind: 'chat' | 'document'
)

var aiCallRetries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ai_call_retries_total",
		Help: "Transient-error retries issued against a backend.",
	},
	[]string{"backend"},
)

func AddTokensIn(backend string, n int) {
	aiTokensIn.WithLabelValues(norm(backend)).Add(float64(n))
}

func ObserveAICall(backend, kind string, latencyMs int, success bool) {
	aiCallsLatencyMs.WithLabelValues(norm(backend), norm(kind), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncAIRetry(backend string) {
	aiCallRetries.WithLabelValues(norm(backend)).Inc()
}
