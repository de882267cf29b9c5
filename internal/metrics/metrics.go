// Package metrics exposes the crypto library state as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avaropoint/tlsguard/internal/cryptolib"
	"github.com/avaropoint/tlsguard/internal/security"
)

const namespace = "tlsguard"

// Source is the library state the collector reads on every scrape.
// *security.Context satisfies it.
type Source interface {
	Initialized() bool
	Version() cryptolib.Version
	Model() cryptolib.ThreadModel
	Locks() *security.LockArray
}

// Collector implements prometheus.Collector over a Source. Values are read
// at scrape time so nothing has to be pushed from the hot lock path.
type Collector struct {
	src Source

	initialized *prometheus.Desc
	info        *prometheus.Desc
	locks       *prometheus.Desc
	acquired    *prometheus.Desc
	contended   *prometheus.Desc
}

// NewCollector returns a collector for src.
func NewCollector(src Source) *Collector {
	return &Collector{
		src: src,
		initialized: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "library", "initialized"),
			"Whether the crypto library is currently initialized (1) or not (0).",
			nil, nil),
		info: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "library", "info"),
			"Runtime version and threading model of the linked crypto library.",
			[]string{"version", "threading"}, nil),
		locks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "locks"),
			"Number of mutex slots supplied to a legacy crypto library.",
			nil, nil),
		acquired: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "lock_acquisitions_total"),
			"Lock acquisitions requested by the crypto library.",
			nil, nil),
		contended: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "lock_contentions_total"),
			"Lock acquisitions that had to wait for another thread.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.initialized
	ch <- c.info
	ch <- c.locks
	ch <- c.acquired
	ch <- c.contended
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var up float64
	if c.src.Initialized() {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(c.initialized, prometheus.GaugeValue, up)
	ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1,
		c.src.Version().String(), c.src.Model().String())

	var n int
	var acquired, contended uint64
	if la := c.src.Locks(); la != nil {
		n = la.Len()
		acquired, contended = la.Stats()
	}
	ch <- prometheus.MustNewConstMetric(c.locks, prometheus.GaugeValue, float64(n))
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.CounterValue, float64(acquired))
	ch <- prometheus.MustNewConstMetric(c.contended, prometheus.CounterValue, float64(contended))
}

var _ prometheus.Collector = (*Collector)(nil)
