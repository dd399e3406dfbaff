package differ

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus metrics for the differ.
type Metrics struct {
	diffDuration prometheus.Histogram
	shareChanges prometheus.Histogram
}

// NewMetrics creates and registers the metrics for the differ.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		diffDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "amm_differ_duration_seconds",
			Help:    "Time taken to diff two pool snapshots.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		shareChanges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "amm_differ_share_changes",
			Help:    "Number of share-ledger entries carried by a diff.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(m.diffDuration, m.shareChanges)
	return m
}
