package downloader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the transfer collectors. A nil *Metrics records nothing.
type Metrics struct {
	BytesTotal prometheus.Counter
	FilesTotal *prometheus.CounterVec
	Duration   prometheus.Histogram
	Active     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "bytes_total",
			Help:      "Total bytes written by completed and partial transfers.",
		}),
		FilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "files_total",
			Help:      "Transfers by result.",
		}, []string{"result"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "duration_seconds",
			Help:      "Duration of single file transfers.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		Active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "active",
			Help:      "Transfers currently in flight.",
		}),
	}
}

func (m *Metrics) begin() {
	if m == nil {
		return
	}
	m.Active.Inc()
}

func (m *Metrics) finish(ok bool, n int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Active.Dec()
	m.BytesTotal.Add(float64(n))
	m.Duration.Observe(elapsed.Seconds())
	result := "success"
	if !ok {
		result = "failure"
	}
	m.FilesTotal.WithLabelValues(result).Inc()
}
