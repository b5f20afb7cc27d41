// File: pool/collector.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Prometheus export of free list counters.

package pool

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshotter is satisfied by *Manager.
type Snapshotter interface {
	Snapshot() map[int]map[string]Stats
}

// Collector exposes pool counters as Prometheus metrics.
type Collector struct {
	src       Snapshotter
	acquired  *prometheus.Desc
	allocated *prometheus.Desc
	released  *prometheus.Desc
	dropped   *prometheus.Desc
	free      *prometheus.Desc
}

// NewCollector creates a collector reading from src.
func NewCollector(namespace string, src Snapshotter) *Collector {
	labels := []string{"group", "kind"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, labels, nil)
	}
	return &Collector{
		src:       src,
		acquired:  desc("acquired_total", "Objects requested from the pool"),
		allocated: desc("allocated_total", "Objects freshly allocated because the free list was empty"),
		released:  desc("released_total", "Objects returned to the pool"),
		dropped:   desc("dropped_total", "Returned objects dropped because the free list was full"),
		free:      desc("free", "Idle objects held by the free list"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.allocated
	ch <- c.released
	ch <- c.dropped
	ch <- c.free
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for group, kinds := range c.src.Snapshot() {
		g := strconv.Itoa(group)
		for kind, s := range kinds {
			ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.CounterValue, float64(s.Acquired), g, kind)
			ch <- prometheus.MustNewConstMetric(c.allocated, prometheus.CounterValue, float64(s.Allocated), g, kind)
			ch <- prometheus.MustNewConstMetric(c.released, prometheus.CounterValue, float64(s.Released), g, kind)
			ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped), g, kind)
			ch <- prometheus.MustNewConstMetric(c.free, prometheus.GaugeValue, float64(s.Free), g, kind)
		}
	}
}

var _ prometheus.Collector = (*Collector)(nil)
