package observability

import (
	"context"
	"time"

	"github.com/aretw0/tagml/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the import engine.
type Metrics struct {
	Imports     *prometheus.CounterVec
	Duration    prometheus.Histogram
	Markups     *prometheus.CounterVec
	TextNodes   prometheus.Counter
	Diagnostics *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tagml_imports_total",
			Help: "Total number of document imports by outcome",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tagml_import_duration_seconds",
			Help:    "Duration of document imports",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		Markups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tagml_markup_events_total",
			Help: "Markup state changes by action",
		}, []string{"action"}),
		TextNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagml_text_nodes_total",
			Help: "Text nodes attached to markup",
		}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tagml_diagnostics_total",
			Help: "Well-formedness diagnostics by kind",
		}, []string{"kind", "breaking"}),
	}
	if reg != nil {
		reg.MustRegister(m.Imports, m.Duration, m.Markups, m.TextNodes, m.Diagnostics)
	}
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMarkupOpen: func(_ context.Context, e *domain.MarkupEvent) {
			m.Markups.WithLabelValues(e.Action).Inc()
		},
		OnMarkupClose: func(_ context.Context, e *domain.MarkupEvent) {
			m.Markups.WithLabelValues(e.Action).Inc()
		},
		OnText: func(context.Context, *domain.TextEvent) {
			m.TextNodes.Inc()
		},
		OnDiagnostic: func(_ context.Context, d *domain.Diagnostic) {
			breaking := "false"
			if d.Breaking {
				breaking = "true"
			}
			m.Diagnostics.WithLabelValues(string(d.Kind), breaking).Inc()
		},
	}
}

// ObserveImport records the outcome of one import: "ok", "invalid" or "error".
func (m *Metrics) ObserveImport(start time.Time, diags domain.Diagnostics, err error) {
	m.Duration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		m.Imports.WithLabelValues("ok").Inc()
	case diags.HasErrors():
		m.Imports.WithLabelValues("invalid").Inc()
	default:
		m.Imports.WithLabelValues("error").Inc()
	}
}
