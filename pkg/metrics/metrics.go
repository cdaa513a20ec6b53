// Package metrics defines the Prometheus metric collectors used by the
// indexing pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	RunsTotal           *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	RecordsMappedTotal  prometheus.Counter
	PostingsTotal       prometheus.Counter
	TermsReducedTotal   prometheus.Counter
	EntriesWrittenTotal *prometheus.CounterVec
	SinkErrorsTotal     *prometheus.CounterVec
	ShuffleTerms        *prometheus.GaugeVec
	ActiveWorkers       *prometheus.GaugeVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them through the default handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_runs_total",
				Help: "Total pipeline runs by status (success, failure).",
			},
			[]string{"status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "index_stage_duration_seconds",
				Help:    "Pipeline stage latency in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"stage"},
		),
		RecordsMappedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_records_mapped_total",
				Help: "Total input records consumed by mappers.",
			},
		),
		PostingsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_postings_total",
				Help: "Total term postings emitted by mappers.",
			},
		),
		TermsReducedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_terms_reduced_total",
				Help: "Total terms reduced into index entries.",
			},
		),
		EntriesWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_entries_written_total",
				Help: "Total index entries written by sink type.",
			},
			[]string{"sink"},
		),
		SinkErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_sink_errors_total",
				Help: "Total sink write failures by sink type.",
			},
			[]string{"sink"},
		),
		ShuffleTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_shuffle_terms",
				Help: "Distinct terms held per reduce partition after the shuffle.",
			},
			[]string{"partition"},
		),
		ActiveWorkers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_active_workers",
				Help: "Number of map or reduce workers currently running.",
			},
			[]string{"stage"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_http_requests_total",
				Help: "Requests to the metrics and health endpoints by method, path and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "index_http_request_duration_seconds",
				Help:    "Latency of the metrics and health endpoints.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.StageDuration,
		m.RecordsMappedTotal,
		m.PostingsTotal,
		m.TermsReducedTotal,
		m.EntriesWrittenTotal,
		m.SinkErrorsTotal,
		m.ShuffleTerms,
		m.ActiveWorkers,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}

	return m
}

// Handler returns the Prometheus scrape HTTP handler for the registry the
// metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
