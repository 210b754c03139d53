package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kiosk"

// Metrics are the attendance kiosk's Prometheus series. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	attempts       *prometheus.CounterVec
	pollTicks      *prometheus.CounterVec
	similarity     prometheus.Histogram
	stepDuration   *prometheus.HistogramVec
	engineReady    prometheus.Gauge
	dialogOpen     prometheus.Gauge
	cameraOpenings *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "attempts_total",
			Help:      "Confirm attempts by action and outcome code.",
		}, []string{"action", "outcome"}),
		pollTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "face",
			Name:      "poll_ticks_total",
			Help:      "Face detection poller ticks by result.",
		}, []string{"result"}),
		similarity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "face",
			Name:      "match_similarity",
			Help:      "Similarity reported by successful verifications.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "step_duration_seconds",
			Help:      "Duration of confirm steps.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		engineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "face",
			Name:      "engine_ready",
			Help:      "1 when a face template is enrolled for the current employee.",
		}),
		dialogOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "dialog_open",
			Help:      "1 while the camera dialog is open.",
		}),
		cameraOpenings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "camera",
			Name:      "openings_total",
			Help:      "Camera open attempts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.attempts, m.pollTicks, m.similarity, m.stepDuration, m.engineReady, m.dialogOpen, m.cameraOpenings)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Attempt(action, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) PollTick(result string) {
	if m == nil {
		return
	}
	m.pollTicks.WithLabelValues(result).Inc()
}

func (m *Metrics) Similarity(v float64) {
	if m == nil {
		return
	}
	m.similarity.Observe(v)
}

func (m *Metrics) Step(step string, seconds float64) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(seconds)
}

func (m *Metrics) EngineReady(ready bool) {
	if m == nil {
		return
	}
	m.engineReady.Set(boolToFloat(ready))
}

func (m *Metrics) DialogOpen(open bool) {
	if m == nil {
		return
	}
	m.dialogOpen.Set(boolToFloat(open))
}

func (m *Metrics) CameraOpen(result string) {
	if m == nil {
		return
	}
	m.cameraOpenings.WithLabelValues(result).Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
