package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

type Metrics struct {
	RecognitionsTotal   *prometheus.CounterVec
	RecognitionDuration *prometheus.HistogramVec
	RendersTotal        *prometheus.CounterVec
	RenderDuration      *prometheus.HistogramVec
	FieldWritesTotal    *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		RecognitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vtd_recognitions_total",
			Help: "Total number of document recognitions by role and outcome",
		}, []string{"role", "outcome"}),
		RecognitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vtd_recognition_duration_seconds",
			Help:    "Duration of vision model calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"role"}),
		RendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vtd_renders_total",
			Help: "Total number of rendered documents by type and outcome",
		}, []string{"document", "outcome"}),
		RenderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vtd_render_duration_seconds",
			Help:    "Duration of document rendering",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"document"}),
		FieldWritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vtd_form_field_writes_total",
			Help: "Official form field writes by outcome (written, missing, failed)",
		}, []string{"outcome"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vtd_active_sessions",
			Help: "Number of open editing sessions",
		}),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveRecognition(role string, start time.Time, err error) {
	m.RecognitionDuration.WithLabelValues(role).Observe(time.Since(start).Seconds())
	m.RecognitionsTotal.WithLabelValues(role, outcome(err)).Inc()
}

func (m *Metrics) ObserveRender(document string, start time.Time, err error) {
	m.RenderDuration.WithLabelValues(document).Observe(time.Since(start).Seconds())
	m.RendersTotal.WithLabelValues(document, outcome(err)).Inc()
}

func (m *Metrics) ObserveFieldWrites(written, missing, failed int) {
	m.FieldWritesTotal.WithLabelValues("written").Add(float64(written))
	m.FieldWritesTotal.WithLabelValues("missing").Add(float64(missing))
	m.FieldWritesTotal.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
