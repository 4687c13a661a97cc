package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/rtcell-go/pkg/rtmap"
)

// StatsSource is implemented by *rtmap.Map for any key and value type.
type StatsSource interface {
	BorrowStats() rtmap.BorrowStats
	ShardCount() int
}

// MapCollector reports the borrow state of every entry of a map at scrape time.
type MapCollector struct {
	source  StatsSource
	entries *prometheus.Desc
	shards  *prometheus.Desc
}

// NewCollector creates a collector for the given map. name becomes the
// "map" label so several maps can be registered side by side.
func NewCollector(name string, source StatsSource) *MapCollector {
	labels := prometheus.Labels{"map": name}
	return &MapCollector{
		source: source,
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "map", "entries"),
			"Map entries by borrow state",
			[]string{"state"}, labels,
		),
		shards: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "map", "shards"),
			"Number of shards in the map",
			nil, labels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *MapCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.shards
}

// Collect implements prometheus.Collector.
func (c *MapCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.source.BorrowStats()
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Free), "free")
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Shared), "shared")
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Exclusive), "exclusive")
	ch <- prometheus.MustNewConstMetric(c.shards, prometheus.GaugeValue, float64(c.source.ShardCount()))
}
