package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_alert"

// Metrics holds the Prometheus counters, histograms, and gauges for the alert engine.
type Metrics struct {
	PayloadsReceived *prometheus.CounterVec // labels: source
	NormalizeErrors  *prometheus.CounterVec // labels: kind
	FeedErrors       *prometheus.CounterVec // labels: source
	FeedsRunning     prometheus.Gauge

	// Change detection.
	EventsAdmitted   *prometheus.CounterVec // labels: class
	EventsSuppressed *prometheus.CounterVec // labels: class

	// Dispatch.
	AlertsQueued   *prometheus.CounterVec // labels: class
	AlertsDropped  prometheus.Counter
	QueueDepth     prometheus.Gauge
	SinkErrors     *prometheus.CounterVec   // labels: sink={audio,speech,kafka,nats}
	SinkDuration   *prometheus.HistogramVec // labels: sink
	AlertLatency   prometheus.Histogram
	DocumentCache  *prometheus.CounterVec // labels: result={hit,miss}
	SpeechEnabled  prometheus.Gauge
	CueTableReload *prometheus.CounterVec // labels: outcome={success,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		PayloadsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_received_total",
			Help:      "Raw payloads received per feed source.",
		}, []string{"source"}),
		NormalizeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_errors_total",
			Help:      "Malformed payloads dropped per source kind.",
		}, []string{"kind"}),
		FeedErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_errors_total",
			Help:      "Transport errors per feed source.",
		}, []string{"source"}),
		FeedsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feeds_running",
			Help:      "Number of feed loops currently running.",
		}),
		EventsAdmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_admitted_total",
			Help:      "Events admitted by change detection per class.",
		}, []string{"class"}),
		EventsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_suppressed_total",
			Help:      "Events rejected as already announced per class.",
		}, []string{"class"}),
		AlertsQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_queued_total",
			Help:      "Alerts accepted by the dispatch queue per class.",
		}, []string{"class"}),
		AlertsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_dropped_total",
			Help:      "Alerts dropped because the dispatch queue was full.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_queue_depth",
			Help:      "Alerts waiting in the dispatch queue.",
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed deliveries per sink.",
		}, []string{"sink"}),
		SinkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_duration_seconds",
			Help:      "Time spent delivering one alert per sink.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"sink"}),
		AlertLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alert_latency_seconds",
			Help:      "Time from payload receipt to the start of dispatch.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		DocumentCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jma_document_cache_total",
			Help:      "JMA document cache lookups by result.",
		}, []string{"result"}),
		SpeechEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speech_enabled",
			Help:      "1 when the speech sink is enabled, 0 otherwise.",
		}),
		CueTableReload: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cue_table_reloads_total",
			Help:      "Sound cue table reloads by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PayloadsReceived,
		m.NormalizeErrors,
		m.FeedErrors,
		m.FeedsRunning,
		m.EventsAdmitted,
		m.EventsSuppressed,
		m.AlertsQueued,
		m.AlertsDropped,
		m.QueueDepth,
		m.SinkErrors,
		m.SinkDuration,
		m.AlertLatency,
		m.DocumentCache,
		m.SpeechEnabled,
		m.CueTableReload,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
