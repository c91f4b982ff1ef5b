// Package metrics records Prometheus metrics for provider calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes used as the status label.
const (
	StatusOK          = "ok"
	StatusError       = "error"
	StatusConfigError = "config_error"
)

// Collector holds the provider call metrics. A nil *Collector records
// nothing, so adapters can call it unconditionally.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensUsed      *prometheus.CounterVec
}

// NewCollector registers the metrics with reg under namespace.
// It panics when the metrics are already registered with reg.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM requests",
			},
			[]string{"provider", "model", "operation", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "LLM request duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model", "operation"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_used_total",
				Help:      "Total number of tokens used",
			},
			[]string{"provider", "model", "direction"},
		),
	}
}

// RecordRequest counts one call and, unless it failed before being sent,
// observes its duration.
func (c *Collector) RecordRequest(provider, model, operation, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(provider, model, operation, status).Inc()
	if status != StatusConfigError {
		c.requestDuration.WithLabelValues(provider, model, operation).Observe(duration.Seconds())
	}
}

// RecordTokens adds reported token counts. Unreported usage is not recorded.
func (c *Collector) RecordTokens(provider, model string, input, output int64) {
	if c == nil || input < 0 || output < 0 {
		return
	}
	c.tokensUsed.WithLabelValues(provider, model, "input").Add(float64(input))
	c.tokensUsed.WithLabelValues(provider, model, "output").Add(float64(output))
}
