package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 300}

// Outcome labels
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeNoEndpoint = "no_endpoint"
	OutcomeNoToken    = "no_token"
	OutcomeTimeout    = "timeout"
)

// Metrics counts executed searches
type Metrics struct {
	searches *prometheus.CounterVec
	hits     *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics registers the search collectors on reg. Collectors that are
// already registered are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calltrace",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Count of executed search targets",
		}, []string{"index", "outcome"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calltrace",
			Subsystem: "search",
			Name:      "hits_total",
			Help:      "Number of hits returned by the backend",
		}, []string{"index"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "calltrace",
			Subsystem: "search",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of search requests",
			Buckets:   histogramBuckets,
		}, []string{"index"}),
	}
	if reg == nil {
		return m
	}

	if err := reg.Register(m.searches); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.searches = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	if err := reg.Register(m.hits); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.hits = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	if err := reg.Register(m.latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.latency = are.ExistingCollector.(*prometheus.HistogramVec)
		}
	}
	return m
}

func (m *Metrics) observe(index, outcome string, hits int, d time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(index, outcome).Inc()
	if outcome == OutcomeOK {
		m.hits.WithLabelValues(index).Add(float64(hits))
		m.latency.WithLabelValues(index).Observe(d.Seconds())
	}
}
