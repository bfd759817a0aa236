// Package metrics collects per-run scrape counters and writes them as a
// node_exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors for one run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry        *prometheus.Registry
	URLsTotal       *prometheus.CounterVec
	RecordsTotal    *prometheus.CounterVec
	TooltipReads    prometheus.Counter
	ScrollRetries   prometheus.Counter
	ReadyWait       prometheus.Histogram
	URLDuration     prometheus.Histogram
	LastRunFinished prometheus.Gauge
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	urls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartscrape_urls_total",
			Help: "Chart pages processed, by result.",
		},
		[]string{"result"},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartscrape_records_total",
			Help: "Tooltip records handled, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	reads := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chartscrape_tooltip_reads_total",
			Help: "Tooltips read from chart bars.",
		},
	)
	scrolls := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chartscrape_scroll_retries_total",
			Help: "Pointer moves retried after scrolling an element into view.",
		},
	)
	readyWait := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chartscrape_ready_wait_seconds",
			Help:    "Time spent waiting for a chart page to render.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)
	urlDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chartscrape_url_duration_seconds",
			Help:    "Time spent scraping one chart page.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
	finished := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chartscrape_last_run_finished_timestamp_seconds",
			Help: "Unix time the last run finished.",
		},
	)

	registry.MustRegister(urls, records, reads, scrolls, readyWait, urlDuration, finished)

	return &Metrics{
		Registry:        registry,
		URLsTotal:       urls,
		RecordsTotal:    records,
		TooltipReads:    reads,
		ScrollRetries:   scrolls,
		ReadyWait:       readyWait,
		URLDuration:     urlDuration,
		LastRunFinished: finished,
	}
}

// IncURL counts a processed page; result is "ok" or "failed".
func (m *Metrics) IncURL(result string) {
	if m == nil {
		return
	}
	m.URLsTotal.WithLabelValues(result).Inc()
}

// IncRecord counts a record outcome.
func (m *Metrics) IncRecord(kind, outcome string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(kind, outcome).Inc()
}

// IncTooltipRead counts a successful tooltip read.
func (m *Metrics) IncTooltipRead() {
	if m == nil {
		return
	}
	m.TooltipReads.Inc()
}

// IncScrollRetry counts a scroll-and-retry.
func (m *Metrics) IncScrollRetry() {
	if m == nil {
		return
	}
	m.ScrollRetries.Inc()
}

// ObserveReadyWait records how long a page took to become ready.
func (m *Metrics) ObserveReadyWait(d time.Duration) {
	if m == nil {
		return
	}
	m.ReadyWait.Observe(d.Seconds())
}

// ObserveURL records the duration of one page scrape.
func (m *Metrics) ObserveURL(d time.Duration) {
	if m == nil {
		return
	}
	m.URLDuration.Observe(d.Seconds())
}

// WriteTextfile stamps the finish time and writes all collectors to path in
// the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	m.LastRunFinished.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.Registry)
}
