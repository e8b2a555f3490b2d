package agent

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the façade's Prometheus instruments. A nil *Metrics is valid
// and records nothing, so tests and one-shot CLI paths skip registration.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the agent instruments on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appagent",
			Name:      "requests_total",
			Help:      "Requests handled, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "appagent",
			Name:      "request_duration_seconds",
			Help:      "Request handling latency, by tool.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) observe(tool string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	if tool == "" {
		tool = "unknown"
	}
	m.requests.WithLabelValues(tool, outcome).Inc()
	m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
