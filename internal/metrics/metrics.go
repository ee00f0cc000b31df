// Package metrics exposes relaxation progress as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/ensnano-geometry/internal/relax"
)

const namespace = "helix"

// Relax collects relaxer metrics. It implements relax.Observer.
type Relax struct {
	registry *prometheus.Registry

	steps       prometheus.Counter
	accepted    prometheus.Counter
	strain      prometheus.Gauge
	runs        *prometheus.CounterVec
	finalStrain prometheus.Histogram
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Relax {
	m := &Relax{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relax",
			Name:      "steps_total",
			Help:      "Relaxation steps evaluated.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relax",
			Name:      "accepted_steps_total",
			Help:      "Relaxation steps that did not raise the strain.",
		}),
		strain: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relax",
			Name:      "strain",
			Help:      "Strain after the latest step.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relax",
			Name:      "runs_total",
			Help:      "Finished relaxations by stop reason.",
		}, []string{"stop_reason"}),
		finalStrain: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relax",
			Name:      "final_strain",
			Help:      "Strain of finished relaxations.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 10, 9),
		}),
	}
	m.registry.MustRegister(
		m.steps, m.accepted, m.strain, m.runs, m.finalStrain,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveStep records one relaxer step.
func (m *Relax) ObserveStep(_ int, strain float64, accepted bool) {
	m.steps.Inc()
	if accepted {
		m.accepted.Inc()
	}
	m.strain.Set(strain)
}

// ObserveRun records a finished relaxation. A nil result is ignored.
func (m *Relax) ObserveRun(res *relax.Result) {
	if res == nil {
		return
	}
	m.runs.WithLabelValues(string(res.StopReason)).Inc()
	m.finalStrain.Observe(res.FinalStrain)
	m.strain.Set(res.FinalStrain)
}

// Registry returns the registry the collectors live on.
func (m *Relax) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Relax) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var _ relax.Observer = (*Relax)(nil)
