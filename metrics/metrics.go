// Package metrics exposes Prometheus instrumentation for the subscription
// index: subscribe/unsubscribe/lookup counters and latencies, inner-cache
// hit/miss rates, and cluster gossip traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter, gauge, and histogram this module exports.
type Metrics struct {
	subscribesTotal      *prometheus.CounterVec
	unsubscribesTotal    *prometheus.CounterVec
	lookupsTotal         prometheus.Counter
	lookupLatency        prometheus.Histogram
	storeErrorsTotal     *prometheus.CounterVec
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
	ephemeralTopicsGauge prometheus.Gauge

	cpuPercentGauge  prometheus.Gauge
	memoryBytesGauge prometheus.Gauge
	goroutinesGauge  prometheus.Gauge

	gossipPublished prometheus.Counter
	gossipApplied   *prometheus.CounterVec
	gossipDropped   *prometheus.CounterVec
	gossipBusErrors prometheus.Counter
}

// New registers and returns a fresh set of metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		subscribesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "subindex_subscribes_total",
			Help: "Total subscribe operations, labeled by lane (ephemeral/persistent).",
		}, []string{"lane"}),
		unsubscribesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "subindex_unsubscribes_total",
			Help: "Total unsubscribe operations, labeled by lane.",
		}, []string{"lane"}),
		lookupsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subindex_lookups_total",
			Help: "Total subscriber lookups performed on the publish path.",
		}),
		lookupLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "subindex_lookup_latency_seconds",
			Help:    "Latency of subscriber lookups.",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		storeErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "subindex_store_errors_total",
			Help: "Total remote-store errors, labeled by operation.",
		}, []string{"op"}),
		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subindex_cache_hits_total",
			Help: "Lookups served entirely from the inner cache.",
		}),
		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subindex_cache_misses_total",
			Help: "Lookups that had to read the remote store.",
		}),
		ephemeralTopicsGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "subindex_ephemeral_topics",
			Help: "Current number of distinct ephemeral topic filters.",
		}),
		cpuPercentGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "subindex_process_cpu_percent",
			Help: "Ambient host CPU usage percentage.",
		}),
		memoryBytesGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "subindex_process_memory_bytes",
			Help: "Ambient host memory in use, in bytes.",
		}),
		goroutinesGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "subindex_process_goroutines",
			Help: "Current goroutine count.",
		}),
		gossipPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subindex_gossip_published_total",
			Help: "Total cluster gossip events published.",
		}),
		gossipApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "subindex_gossip_applied_total",
			Help: "Total inbound gossip events applied, labeled by type.",
		}, []string{"type"}),
		gossipDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "subindex_gossip_dropped_total",
			Help: "Total inbound gossip events dropped, labeled by reason.",
		}, []string{"reason"}),
		gossipBusErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subindex_gossip_bus_errors_total",
			Help: "Total cluster bus publish failures (never surfaced to callers).",
		}),
	}
}

func (m *Metrics) ObserveSubscribe(lane string) { m.subscribesTotal.WithLabelValues(lane).Inc() }

func (m *Metrics) ObserveUnsubscribe(lane string) { m.unsubscribesTotal.WithLabelValues(lane).Inc() }

func (m *Metrics) ObserveLookup(d time.Duration) {
	m.lookupsTotal.Inc()
	m.lookupLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveStoreError(op string) { m.storeErrorsTotal.WithLabelValues(op).Inc() }

func (m *Metrics) ObserveCacheHit()  { m.cacheHits.Inc() }
func (m *Metrics) ObserveCacheMiss() { m.cacheMisses.Inc() }

func (m *Metrics) SetEphemeralTopics(n int) { m.ephemeralTopicsGauge.Set(float64(n)) }

func (m *Metrics) ObserveGossipPublished() { m.gossipPublished.Inc() }

func (m *Metrics) ObserveGossipApplied(eventType string) {
	m.gossipApplied.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ObserveGossipDropped(reason string) {
	m.gossipDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveGossipBusError() { m.gossipBusErrors.Inc() }

// ObserveCPUPercent, ObserveMemoryBytes, and ObserveGoroutines implement
// health.Sink.
func (m *Metrics) ObserveCPUPercent(pct float64)   { m.cpuPercentGauge.Set(pct) }
func (m *Metrics) ObserveMemoryBytes(bytes uint64) { m.memoryBytesGauge.Set(float64(bytes)) }
func (m *Metrics) ObserveGoroutines(n int)         { m.goroutinesGauge.Set(float64(n)) }

// SubscribesTotalForTest, UnsubscribesTotalForTest, and LookupsTotalForTest
// expose the underlying collectors for assertions with
// prometheus/client_golang/prometheus/testutil.
func (m *Metrics) SubscribesTotalForTest(lane string) prometheus.Counter {
	return m.subscribesTotal.WithLabelValues(lane)
}

func (m *Metrics) UnsubscribesTotalForTest(lane string) prometheus.Counter {
	return m.unsubscribesTotal.WithLabelValues(lane)
}

func (m *Metrics) LookupsTotalForTest() prometheus.Counter {
	return m.lookupsTotal
}
