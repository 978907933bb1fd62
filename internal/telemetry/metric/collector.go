package metric

import "github.com/prometheus/client_golang/prometheus"

// StateCollector reports gauges that are read from live state at scrape
// time rather than updated on every event.
type StateCollector struct {
	cacheEntries func() int
	identities   func() int

	cacheDesc    *prometheus.Desc
	identityDesc *prometheus.Desc
}

// NewCollector creates a collector over the given readers. A nil reader
// reports zero.
func NewCollector(cacheEntries, identities func() int) *StateCollector {
	return &StateCollector{
		cacheEntries: cacheEntries,
		identities:   identities,
		cacheDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Entries currently held in the read cache, including expired ones not yet overwritten.",
			nil, nil,
		),
		identityDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "credential", "identities"),
			"Signing identities configured in the credential pool.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheDesc
	ch <- c.identityDesc
}

// Collect implements prometheus.Collector.
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.cacheDesc, prometheus.GaugeValue, read(c.cacheEntries))
	ch <- prometheus.MustNewConstMetric(c.identityDesc, prometheus.GaugeValue, read(c.identities))
}

func read(fn func() int) float64 {
	if fn == nil {
		return 0
	}
	return float64(fn())
}
