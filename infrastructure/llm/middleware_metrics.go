package llm

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level collectors, registered once: clients are rebuilt per resolved
// credential, so metric state cannot live on the client itself.
var (
	metricsOnce sync.Once

	llmLatency  *prometheus.HistogramVec
	llmRequests *prometheus.CounterVec
	llmTokens   *prometheus.CounterVec
)

func initMetrics() {
	llmLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Latency of LLM provider calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model", "status"},
	)
	llmRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of LLM provider calls.",
		},
		[]string{"provider", "model", "status"},
	)
	llmTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total tokens exchanged with LLM providers.",
		},
		[]string{"provider", "model", "direction"},
	)
}

// metricsLLM records latency, request counts, and token usage per provider
// call.
type metricsLLM struct {
	next     CoreLLM
	provider string
}

// MetricsMiddleware creates middleware that records Prometheus metrics for
// every provider call.
func MetricsMiddleware(provider string) Middleware {
	metricsOnce.Do(initMetrics)
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, provider: provider}
	}
}

// DoRequest executes the request while collecting metrics.
func (m *metricsLLM) DoRequest(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp, err := m.next.DoRequest(ctx, req)

	status := "success"
	switch {
	case err == nil:
	case ctx.Err() == context.DeadlineExceeded:
		status = "timeout"
	default:
		status = "error"
	}

	model := m.next.GetModel()
	llmLatency.WithLabelValues(m.provider, model, status).Observe(time.Since(start).Seconds())
	llmRequests.WithLabelValues(m.provider, model, status).Inc()

	if err == nil {
		llmTokens.WithLabelValues(m.provider, model, "input").Add(float64(resp.TokensIn))
		llmTokens.WithLabelValues(m.provider, model, "output").Add(float64(resp.TokensOut))
	}

	return resp, err
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *metricsLLM) SetModel(model string) { m.next.SetModel(model) }
