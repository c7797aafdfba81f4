// Package telemetry exposes keepout state and enforcement counters over HTTP
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atcguard/standalone/keepout"
)

// Metrics holds the keepout collectors on a private registry
type Metrics struct {
	registry    *prometheus.Registry
	vetoes      *prometheus.CounterVec
	clips       *prometheus.CounterVec
	stops       *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewMetrics registers the collectors. The enforced gauge reads state on scrape.
func NewMetrics(state *keepout.State) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		vetoes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keepout_vetoes_total",
			Help: "Jogs refused before motion, by operator message.",
		}, []string{"message"}),
		clips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keepout_clips_total",
			Help: "Programmed moves shortened at the zone boundary, by operator message.",
		}, []string{"message"}),
		stops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keepout_stops_total",
			Help: "Programmed moves replaced by a full stop, by operator message.",
		}, []string{"message"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keepout_transitions_total",
			Help: "Effective runtime enable/disable transitions, by source.",
		}, []string{"source"}),
	}

	m.registry.MustRegister(m.vetoes, m.clips, m.stops, m.transitions)
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "keepout_enforced",
		Help: "1 while the keepout zone is enforced.",
	}, func() float64 {
		if state.Enforced() {
			return 1
		}
		return 0
	}))
	return m
}

// Reporter counts every event and passes it on to next, which may be nil
func (m *Metrics) Reporter(next keepout.Reporter) keepout.Reporter {
	return keepout.ReporterFunc(func(ev keepout.Event) {
		switch ev.Action {
		case keepout.ActionVeto:
			m.vetoes.WithLabelValues(ev.Message).Inc()
		case keepout.ActionClip:
			m.clips.WithLabelValues(ev.Message).Inc()
		case keepout.ActionStop:
			m.stops.WithLabelValues(ev.Message).Inc()
		}
		if next != nil {
			next.Report(ev)
		}
	})
}

// Observe is a keepout.ChangeFunc counting transitions
func (m *Metrics) Observe(enabled bool, source keepout.Source) {
	m.transitions.WithLabelValues(source.String()).Inc()
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
