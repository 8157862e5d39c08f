// Package monitoring exposes search progress as Prometheus metrics and a JSON
// progress endpoint.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

const namespace = "signal_optimizer"

// Metrics records every finished trial. Each instance owns its registry so
// several searches in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	trialsTotal   *prometheus.CounterVec
	trialDuration *prometheus.HistogramVec
	trialTrades   *prometheus.HistogramVec
	bestObjective *prometheus.GaugeVec
	lastObjective *prometheus.GaugeVec
}

// NewMetrics creates and registers the trial metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		trialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trials_total",
				Help:      "Total number of evaluated trials by outcome",
			},
			[]string{"searcher", "state"},
		),
		trialDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trial_duration_seconds",
				Help:      "Distribution of objective evaluation time",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"searcher"},
		),
		trialTrades: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trial_trades",
				Help:      "Distribution of closed trades per completed trial",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"searcher"},
		),
		bestObjective: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "best_objective",
				Help:      "Best objective value seen so far",
			},
			[]string{"searcher"},
		),
		lastObjective: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_objective",
				Help:      "Objective value of the most recent trial",
			},
			[]string{"searcher"},
		),
	}

	m.registry.MustRegister(m.trialsTotal, m.trialDuration, m.trialTrades, m.bestObjective, m.lastObjective)
	m.registry.MustRegister(collectors.NewGoCollector())
	return m
}

// Registry returns the registry backing the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTrial implements optimization.TrialObserver
func (m *Metrics) ObserveTrial(searcher string, t optimization.Trial) {
	m.trialsTotal.WithLabelValues(searcher, t.State.String()).Inc()
	m.trialDuration.WithLabelValues(searcher).Observe(t.Duration.Seconds())
	m.lastObjective.WithLabelValues(searcher).Set(t.Value)
	if t.State == optimization.TrialComplete {
		m.trialTrades.WithLabelValues(searcher).Observe(float64(t.Trades))
	}
}

// SetBest records the best objective of a searcher
func (m *Metrics) SetBest(searcher string, value float64) {
	m.bestObjective.WithLabelValues(searcher).Set(value)
}
