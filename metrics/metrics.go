package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"txgrind/grind"
)

// Metrics holds the Prometheus collectors for grind runs.
type Metrics struct {
	runsTotal  *prometheus.CounterVec
	iterations *prometheus.HistogramVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the collectors with registry, or with
// prometheus.DefaultRegisterer when registry is nil.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txgrind_grind_runs_total",
				Help: "Total number of grind runs by grinder and outcome",
			},
			[]string{"grinder", "outcome"},
		),
		iterations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "txgrind_grind_iterations",
				Help:    "Grinder calls per run",
				Buckets: prometheus.ExponentialBuckets(1, 4, 12),
			},
			[]string{"grinder"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "txgrind_grind_duration_seconds",
				Help:    "Wall time per run",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 12),
			},
			[]string{"grinder"},
		),
	}
}

// Outcome classifies a search error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "satisfied"
	case errors.Is(err, grind.ErrExhausted):
		return "exhausted"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}

// RecordGrind records one finished run.
func (m *Metrics) RecordGrind(grinder string, res *grind.Result, err error) {
	m.runsTotal.WithLabelValues(grinder, Outcome(err)).Inc()
	if res == nil {
		return
	}
	m.iterations.WithLabelValues(grinder).Observe(float64(res.Iterations))
	m.duration.WithLabelValues(grinder).Observe(res.Elapsed.Seconds())
}

type observer struct {
	m       *Metrics
	grinder string
}

func (o observer) ObserveGrind(res *grind.Result, err error) {
	o.m.RecordGrind(o.grinder, res, err)
}

// Observer returns a grind.Observer that labels runs with grinder.
func (m *Metrics) Observer(grinder string) grind.Observer {
	return observer{m: m, grinder: grinder}
}

// WriteTextfile dumps the gatherer in the node_exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
