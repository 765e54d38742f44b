package txfeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics bundles the adapter's Prometheus instrumentation. It is built
// against a caller-supplied Registerer (WithRegisterer) so tests can attach
// it to a fresh prometheus.NewRegistry() instead of the global default.
type metrics struct {
	backingStoreFetchesTotal prometheus.Counter
	cacheHitsTotal           prometheus.Counter
	cacheMissesTotal         prometheus.Counter
	preloadsTriggeredTotal   prometheus.Counter
	subscriptionsActive      prometheus.Gauge
	tailPollDelaySeconds     prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		backingStoreFetchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "txfeed",
			Name:      "backing_store_fetches_total",
			Help:      "Number of fetches issued to the backing store, gated by the single-flight loader.",
		}),
		cacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "txfeed",
			Name:      "cache_hits_total",
			Help:      "Number of checkpoint cache lookups that hit.",
		}),
		cacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "txfeed",
			Name:      "cache_misses_total",
			Help:      "Number of checkpoint cache lookups that missed.",
		}),
		preloadsTriggeredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "txfeed",
			Name:      "preloads_triggered_total",
			Help:      "Number of fire-and-forget preloads triggered after a full page or a cache-chain miss.",
		}),
		subscriptionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "txfeed",
			Name:      "subscriptions_active",
			Help:      "Number of subscriptions currently live on the adapter.",
		}),
		tailPollDelaySeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "txfeed",
			Name:      "tail_poll_delay_seconds",
			Help:      "Delay actually slept by the tail-poll throttle before re-polling a known tail checkpoint.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
