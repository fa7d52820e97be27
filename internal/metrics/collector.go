// Package metrics exposes Prometheus instruments for override reads and
// storage cleanup. A nil *Collector is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector groups the overlay instruments.
type Collector struct {
	reads          *prometheus.CounterVec
	cleanupActions *prometheus.CounterVec
	loaded         prometheus.Gauge
}

// NewCollector registers the instruments on reg under namespace. A nil reg
// uses a private registry so repeated construction never collides.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Collector{
		reads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "option_reads_total",
				Help:      "Option reads by namespace and the source that answered them.",
			},
			[]string{"type", "source"},
		),
		cleanupActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cleanup_actions_total",
				Help:      "Storage rows touched by cleanup, by action.",
			},
			[]string{"action"},
		),
		loaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "options_loaded",
				Help:      "Managed options with an active interception.",
			},
		),
	}
}

// ObserveRead counts one read answered by source.
func (c *Collector) ObserveRead(namespace, source string) {
	if c == nil {
		return
	}
	c.reads.WithLabelValues(namespace, source).Inc()
}

// ObserveCleanup counts n rows touched by action.
func (c *Collector) ObserveCleanup(action string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.cleanupActions.WithLabelValues(action).Add(float64(n))
}

// SetLoaded records the number of loaded overrides.
func (c *Collector) SetLoaded(n int) {
	if c == nil {
		return
	}
	c.loaded.Set(float64(n))
}
