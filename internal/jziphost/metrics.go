package jziphost

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides low-cardinality Prometheus metrics for jzip-mount.
//
// Metrics MUST NOT be labeled by entry name or full request path: an
// archive can hold hundreds of thousands of entries, and a per-entry label
// would blow up cardinality.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	archivesMounted prometheus.Gauge

	archiveOpensTotal  prometheus.Counter
	archiveClosesTotal prometheus.Counter
	archivesOpenMmap   prometheus.Gauge
	archivesOpenHeap   prometheus.Gauge

	archiveCachePinned    prometheus.Gauge
	archiveCacheEvictions prometheus.Counter

	entryCacheHits      prometheus.Counter
	entryCacheMisses    prometheus.Counter
	entryCacheEvictions prometheus.Counter
	entryCacheBytes     prometheus.Gauge
	entryCacheItems     prometheus.Gauge

	inflateBytesTotal   prometheus.Counter
	entriesMaterialized prometheus.Counter
}

// NewMetrics constructs and registers the service's metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jzip_mount",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of requests, labeled by archive file name.",
		}, []string{"archive"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jzip_mount",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests in seconds, labeled by archive file name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"archive"}),

		archivesMounted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jzip_mount",
			Name:      "archives_mounted",
			Help:      "Number of archive files currently discovered under the mount root.",
		}),

		archiveOpensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jzip_mount",
			Name:      "archive_opens_total",
			Help:      "Total number of archive handles opened for requests by the archive opener (pinning references not counted).",
		}),
		archiveClosesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jzip_mount",
			Name:      "archive_closes_total",
			Help:      "Total number of request archive handles closed by the archive opener (pinning references not counted).",
		}),
		archivesOpenMmap: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jzip_mount",
			Name:      "archives_open_mmap",
			Help:      "Current number of open archives using the memory-mapped directory strategy.",
		}),
		archivesOpenHeap: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jzip_mount",
			Name:      "archives_open_heap",
			Help:      "Current number of open archives using the heap directory strategy.",
		}),
		archiveCachePinned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jzip_mount",
			Name:      "archive_cache_pinned",
			Help:      "Number of archives currently pinned open by the archive opener's bounded LRU, keeping them warm across requests.",
		}),
		archiveCacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jzip_mount",
			Name:      "archive_cache_evictions_total",
			Help:      "Total number of archives evicted from the archive opener's pinned LRU.",
		}),

		entryCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jzip_mount",
			Name:      "entry_cache_hits_total",
			Help:      "Total number of entry content cache hits.",
		}),
		entryCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jzip_mount",
			Name:      "entry_cache_misses_total",
			Help:      "Total number of entry content cache misses.",
		}),
		entryCacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jzip_mount",
			Name:      "entry_cache_evictions_total",
			Help:      "Total number of entry content cache evictions.",
		}),
		entryCacheBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jzip_mount",
			Name:      "entry_cache_bytes",
			Help:      "Current number of bytes held by the entry content cache.",
		}),
		entryCacheItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jzip_mount",
			Name:      "entry_cache_items",
			Help:      "Current number of items held by the entry content cache.",
		}),

		inflateBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jzip_mount",
			Name:      "inflate_bytes_total",
			Help:      "Total number of decompressed bytes produced by InflateFully.",
		}),
		entriesMaterialized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jzip_mount",
			Name:      "entries_materialized_total",
			Help:      "Total number of entries materialized from a central directory header.",
		}),
	}

	reg.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.archivesMounted,
		m.archiveOpensTotal,
		m.archiveClosesTotal,
		m.archivesOpenMmap,
		m.archivesOpenHeap,
		m.archiveCachePinned,
		m.archiveCacheEvictions,
		m.entryCacheHits,
		m.entryCacheMisses,
		m.entryCacheEvictions,
		m.entryCacheBytes,
		m.entryCacheItems,
		m.inflateBytesTotal,
		m.entriesMaterialized,
	)

	return m
}

func (m *Metrics) ObserveRequest(archive string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(archive).Inc()
	m.requestDuration.WithLabelValues(archive).Observe(d.Seconds())
}

func (m *Metrics) SetArchivesMounted(n int) {
	if m == nil {
		return
	}
	m.archivesMounted.Set(float64(n))
}

func (m *Metrics) IncArchiveOpens() {
	if m == nil {
		return
	}
	m.archiveOpensTotal.Inc()
}

func (m *Metrics) IncArchiveCloses() {
	if m == nil {
		return
	}
	m.archiveClosesTotal.Inc()
}

func (m *Metrics) SetArchivesOpen(mmapCount, heapCount int) {
	if m == nil {
		return
	}
	m.archivesOpenMmap.Set(float64(mmapCount))
	m.archivesOpenHeap.Set(float64(heapCount))
}

func (m *Metrics) SetArchiveCachePinned(n int) {
	if m == nil {
		return
	}
	m.archiveCachePinned.Set(float64(n))
}

func (m *Metrics) IncArchiveCacheEvictions() {
	if m == nil {
		return
	}
	m.archiveCacheEvictions.Inc()
}

func (m *Metrics) IncEntryCacheHits() {
	if m == nil {
		return
	}
	m.entryCacheHits.Inc()
}

func (m *Metrics) IncEntryCacheMisses() {
	if m == nil {
		return
	}
	m.entryCacheMisses.Inc()
}

func (m *Metrics) IncEntryCacheEvictions() {
	if m == nil {
		return
	}
	m.entryCacheEvictions.Inc()
}

func (m *Metrics) SetEntryCacheBytes(n int64) {
	if m == nil {
		return
	}
	m.entryCacheBytes.Set(float64(n))
}

func (m *Metrics) SetEntryCacheItems(n int) {
	if m == nil {
		return
	}
	m.entryCacheItems.Set(float64(n))
}

func (m *Metrics) AddInflateBytes(n int) {
	if m == nil {
		return
	}
	m.inflateBytesTotal.Add(float64(n))
}

func (m *Metrics) IncEntriesMaterialized() {
	if m == nil {
		return
	}
	m.entriesMaterialized.Inc()
}
