package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// New registers every collector with the default Prometheus registerer and
// is meant to be called once per process; a single Metrics instance is
// reused across the assertions below to avoid a duplicate-registration
// panic.
func TestMetrics(t *testing.T) {
	m := New()

	t.Run("subscribe and unsubscribe counters are labeled by lane", func(t *testing.T) {
		m.ObserveSubscribe("ephemeral")
		m.ObserveSubscribe("ephemeral")
		m.ObserveSubscribe("persistent")
		m.ObserveUnsubscribe("ephemeral")

		if got := testutil.ToFloat64(m.subscribesTotal.WithLabelValues("ephemeral")); got != 2 {
			t.Fatalf("expected 2 ephemeral subscribes, got %v", got)
		}
		if got := testutil.ToFloat64(m.subscribesTotal.WithLabelValues("persistent")); got != 1 {
			t.Fatalf("expected 1 persistent subscribe, got %v", got)
		}
		if got := testutil.ToFloat64(m.unsubscribesTotal.WithLabelValues("ephemeral")); got != 1 {
			t.Fatalf("expected 1 ephemeral unsubscribe, got %v", got)
		}
	})

	t.Run("cache hit and miss counters", func(t *testing.T) {
		m.ObserveCacheHit()
		m.ObserveCacheHit()
		m.ObserveCacheMiss()

		if got := testutil.ToFloat64(m.cacheHits); got != 2 {
			t.Fatalf("expected 2 cache hits, got %v", got)
		}
		if got := testutil.ToFloat64(m.cacheMisses); got != 1 {
			t.Fatalf("expected 1 cache miss, got %v", got)
		}
	})

	t.Run("ambient gauges", func(t *testing.T) {
		m.ObserveCPUPercent(42.5)
		m.ObserveMemoryBytes(1024)
		m.ObserveGoroutines(7)

		if got := testutil.ToFloat64(m.cpuPercentGauge); got != 42.5 {
			t.Fatalf("expected cpu gauge 42.5, got %v", got)
		}
		if got := testutil.ToFloat64(m.memoryBytesGauge); got != 1024 {
			t.Fatalf("expected memory gauge 1024, got %v", got)
		}
		if got := testutil.ToFloat64(m.goroutinesGauge); got != 7 {
			t.Fatalf("expected goroutines gauge 7, got %v", got)
		}
	})

	t.Run("gossip counters", func(t *testing.T) {
		m.ObserveGossipPublished()
		m.ObserveGossipApplied("sub")
		m.ObserveGossipDropped("decode")
		m.ObserveGossipBusError()

		if got := testutil.ToFloat64(m.gossipPublished); got != 1 {
			t.Fatalf("expected 1 gossip published, got %v", got)
		}
		if got := testutil.ToFloat64(m.gossipApplied.WithLabelValues("sub")); got != 1 {
			t.Fatalf("expected 1 gossip applied for sub, got %v", got)
		}
		if got := testutil.ToFloat64(m.gossipDropped.WithLabelValues("decode")); got != 1 {
			t.Fatalf("expected 1 gossip dropped for decode, got %v", got)
		}
		if got := testutil.ToFloat64(m.gossipBusErrors); got != 1 {
			t.Fatalf("expected 1 gossip bus error, got %v", got)
		}
	})
}
