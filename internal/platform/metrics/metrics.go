package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the noise recorder.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	requestDuration     *prometheus.HistogramVec
	framesRendered      prometheus.Counter
	framesCaptured      prometheus.Counter
	framesDropped       prometheus.Counter
	recordingsCompleted prometheus.Counter
	recordingsFailed    prometheus.Counter
	recordingBytes      prometheus.Histogram
	downloadsTotal      prometheus.Counter
	liveSessions        prometheus.Gauge
}

// New creates and registers Prometheus metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noise_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noise_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "noise_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		framesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noise_frames_rendered_total",
			Help: "Noise frames drawn onto a canvas",
		}),
		framesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noise_frames_captured_total",
			Help: "Frames sampled from a canvas and handed to an encoder",
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noise_frames_dropped_total",
			Help: "Captured frames dropped because the encoder fell behind",
		}),
		recordingsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noise_recordings_completed_total",
			Help: "Recordings that delivered encoded bytes",
		}),
		recordingsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noise_recordings_failed_total",
			Help: "Recordings whose encoder or download failed",
		}),
		recordingBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "noise_recording_bytes",
			Help:    "Size of encoded recordings in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
		}),
		downloadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noise_downloads_total",
			Help: "Download triggers that saved a file",
		}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "noise_live_sessions",
			Help: "Sessions that have not been unloaded",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.requestDuration,
		m.framesRendered,
		m.framesCaptured,
		m.framesDropped,
		m.recordingsCompleted,
		m.recordingsFailed,
		m.recordingBytes,
		m.downloadsTotal,
		m.liveSessions,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveRequest records the latency of one request to route.
func (m *Metrics) ObserveRequest(route, method string, d time.Duration) {
	m.requestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// IncFramesRendered counts one drawn noise frame.
func (m *Metrics) IncFramesRendered() {
	m.framesRendered.Inc()
}

// AddCapture records the frame totals of a finished capture stream.
func (m *Metrics) AddCapture(captured, dropped uint64) {
	m.framesCaptured.Add(float64(captured))
	m.framesDropped.Add(float64(dropped))
}

// ObserveRecording counts a completed recording of size bytes.
func (m *Metrics) ObserveRecording(size int) {
	m.recordingsCompleted.Inc()
	m.recordingBytes.Observe(float64(size))
}

// IncRecordingsFailed counts a recording that produced no download.
func (m *Metrics) IncRecordingsFailed() {
	m.recordingsFailed.Inc()
}

// IncDownloads counts a saved download.
func (m *Metrics) IncDownloads() {
	m.downloadsTotal.Inc()
}

// SetLiveSessions sets the live sessions gauge.
func (m *Metrics) SetLiveSessions(n int) {
	m.liveSessions.Set(float64(n))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		inner.ServeHTTP(w, r)
	})
}
