package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metricsSet holds the optional Prometheus instruments for a single
// Collector. Metrics are opt-in: a Collector that never calls
// RegisterMetrics never touches the prometheus package at all.
type metricsSet struct {
	objects     prometheus.Gauge
	allocated   prometheus.Gauge
	collections prometheus.Counter
}

func newMetricsSet(id string) *metricsSet {
	labels := prometheus.Labels{"collector": id}
	return &metricsSet{
		objects: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "arcgc_objects",
			Help:        "Number of cells currently registered with the collector.",
			ConstLabels: labels,
		}),
		allocated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "arcgc_allocated_bytes",
			Help:        "Estimated bytes held by cells currently registered with the collector.",
			ConstLabels: labels,
		}),
		collections: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "arcgc_collections_total",
			Help:        "Number of mark-sweep passes this collector has run.",
			ConstLabels: labels,
		}),
	}
}

// RegisterMetrics registers this collector's gauges and counter with
// reg. It is idempotent: calling it more than once on the same
// Collector is a no-op after the first call.
func (c *Collector[T]) RegisterMetrics(reg *prometheus.Registry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.metrics != nil {
		return nil
	}
	m := newMetricsSet(c.id)
	for _, coll := range []prometheus.Collector{m.objects, m.allocated, m.collections} {
		if err := reg.Register(coll); err != nil {
			return err
		}
	}
	c.metrics = m
	c.refreshMetricsLocked()
	return nil
}

// refreshMetricsLocked pushes current heap-set state into the
// registered gauges. Called with c.mu held; a no-op if metrics were
// never registered.
func (c *Collector[T]) refreshMetricsLocked() {
	if c.metrics == nil {
		return
	}
	c.metrics.objects.Set(float64(len(c.refs)))
	c.metrics.allocated.Set(float64(c.allocatedMemory))
}
