// Package metrics exposes Prometheus collectors for the inference core.
// Every method is safe on a nil *Metrics so components can run unmetered in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the core records into.
type Metrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	modelLoad      *prometheus.HistogramVec
	modelState     *prometheus.GaugeVec
	ready          prometheus.Gauge
	contextEntries prometheus.Gauge
	cacheWrites    *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rahl_requests_total",
			Help: "Inference requests by modality and outcome.",
		}, []string{"modality", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rahl_request_duration_seconds",
			Help:    "End-to-end inference latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"modality"}),
		modelLoad: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rahl_model_load_seconds",
			Help:    "Time spent loading each model.",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		modelState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rahl_model_state",
			Help: "Load state per model kind (0 unloaded, 1 loading, 2 ready, 3 failed).",
		}, []string{"kind"}),
		ready: f.NewGauge(prometheus.GaugeOpts{
			Name: "rahl_ready",
			Help: "1 once every required model is loaded.",
		}),
		contextEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "rahl_context_entries",
			Help: "Entries currently held in context memory.",
		}),
		cacheWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rahl_cache_writes_total",
			Help: "Result cache writes by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveRequest(modality, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(modality, outcome).Inc()
	m.duration.WithLabelValues(modality).Observe(d.Seconds())
}

func (m *Metrics) ObserveModelLoad(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.modelLoad.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) SetModelState(kind string, state int) {
	if m == nil {
		return
	}
	m.modelState.WithLabelValues(kind).Set(float64(state))
}

func (m *Metrics) SetReady(ready bool) {
	if m == nil {
		return
	}
	if ready {
		m.ready.Set(1)
	} else {
		m.ready.Set(0)
	}
}

func (m *Metrics) SetContextEntries(n int) {
	if m == nil {
		return
	}
	m.contextEntries.Set(float64(n))
}

func (m *Metrics) CacheWrite(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.cacheWrites.WithLabelValues(outcome).Inc()
}
