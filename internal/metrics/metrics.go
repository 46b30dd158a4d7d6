// Package metrics exports validation statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/cty/cty"
)

// Collector holds the validation metrics. It implements cty.Observer.
type Collector struct {
	ValidationsTotal   *prometheus.CounterVec
	ContainmentStops   *prometheus.CounterVec
	ValidationDepth    prometheus.Histogram
	ValidationSteps    prometheus.Histogram
	ValidationDuration prometheus.Histogram
}

var _ cty.Observer = (*Collector)(nil)

// New creates a collector registered with the default registry.
func New(namespace string) *Collector {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of validation calls by top-level kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		ContainmentStops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "containment_stops_total",
				Help:      "Validation calls cut short by recursion containment",
			},
			[]string{"reason"},
		),
		ValidationDepth: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_depth",
				Help:      "Deepest nesting reached per validation call",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
			},
		),
		ValidationSteps: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_steps",
				Help:      "Guarded steps taken per validation call",
				Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
			},
		),
		ValidationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Validation call duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
			},
		),
	}
}

// ObserveValidation records the statistics of one validation call.
func (c *Collector) ObserveValidation(t cty.Type, stats cty.Stats, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case stats.Stopped:
		outcome = "contained"
	}
	c.ValidationsTotal.WithLabelValues(KindLabel(t), outcome).Inc()
	if stats.Stopped {
		c.ContainmentStops.WithLabelValues(string(stats.StopReason)).Inc()
	}
	c.ValidationDepth.Observe(float64(stats.MaxDepth))
	c.ValidationSteps.Observe(float64(stats.Steps))
	c.ValidationDuration.Observe(stats.Elapsed.Seconds())
}

// KindLabel returns the label value for a top-level type. Only the kind is
// used so label cardinality stays bounded.
func KindLabel(t cty.Type) string {
	if t == nil {
		return "none"
	}
	return t.Kind().String()
}
