// Package promreporter exposes cache usage snapshots as Prometheus metrics.
//
// A Reporter implements cache.Reporter. Gauges are updated whenever the
// Manager reports, so hosts typically call Manager.ReportMetrics on a timer
// or before each scrape.
package promreporter

import (
	"context"
	"net/http"

	"github.com/jmgilman/go/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "cache"

// Reporter holds the gauges written by ReportCapacity and ReportUsage.
type Reporter struct {
	capacity   prometheus.Gauge
	used       prometheus.Gauge
	entries    prometheus.Gauge
	stale      prometheus.Gauge
	pinned     prometheus.Gauge
	entryBytes *prometheus.GaugeVec
	frequency  *prometheus.GaugeVec
}

// New creates a Reporter and registers its collectors with reg.
// An empty namespace uses DefaultNamespace.
func New(reg prometheus.Registerer, namespace string) (*Reporter, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	r := &Reporter{
		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capacity_bytes",
			Help:      "Configured cache capacity in bytes.",
		}),
		used: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "used_bytes",
			Help:      "Estimated bytes held by cache entries.",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Number of entries, valid or not.",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stale_entries",
			Help:      "Number of entries marked stale.",
		}),
		pinned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pinned_entries",
			Help:      "Number of pinned entries.",
		}),
		entryBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entry_bytes",
			Help:      "Estimated size of each entry.",
		}, []string{"key"}),
		frequency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entry_frequency",
			Help:      "Access frequency of each entry as tracked by the eviction policy.",
		}, []string{"key"}),
	}

	for _, c := range []prometheus.Collector{
		r.capacity, r.used, r.entries, r.stale, r.pinned, r.entryBytes, r.frequency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ReportCapacity implements cache.Reporter.
func (r *Reporter) ReportCapacity(_ context.Context, capacity int64) {
	r.capacity.Set(float64(capacity))
}

// ReportUsage implements cache.Reporter. Per-key series of entries that are
// no longer present are dropped.
func (r *Reporter) ReportUsage(_ context.Context, usage cache.Usage) {
	r.capacity.Set(float64(usage.Capacity))
	r.used.Set(float64(usage.Used))
	r.entries.Set(float64(len(usage.Entries)))

	r.entryBytes.Reset()
	r.frequency.Reset()

	var stale, pinned int
	for _, e := range usage.Entries {
		if e.Stale {
			stale++
		}
		if e.Pinned {
			pinned++
		}
		r.entryBytes.WithLabelValues(e.Key).Set(float64(e.Size))
		r.frequency.WithLabelValues(e.Key).Set(float64(e.Frequency))
	}
	r.stale.Set(float64(stale))
	r.pinned.Set(float64(pinned))
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ cache.Reporter = (*Reporter)(nil)
