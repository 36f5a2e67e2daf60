package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the Prometheus instruments for one aggregation run.
// A nil *Collector is valid and records nothing, so the engine can run
// without metrics wired up.
type Collector struct {
	registry *prometheus.Registry

	LinesRead   prometheus.Counter
	Accepted    prometheus.Counter
	Rejected    *prometheus.CounterVec
	Instruments prometheus.Gauge
	RunDuration prometheus.Gauge
}

// New creates a Collector backed by its own registry, so concurrent tests
// and repeated runs never fight over process-global registration.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_lines_read_total",
			Help: "Count of raw input lines consumed",
		}),
		Accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_observations_accepted_total",
			Help: "Count of observations accepted into retention buckets",
		}),
		Rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregator_lines_rejected_total",
				Help: "Count of rejected input lines by reason",
			},
			[]string{"reason"},
		),
		Instruments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aggregator_instruments_tracked",
			Help: "Number of distinct instruments currently tracked",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aggregator_run_duration_seconds",
			Help: "Wall-clock duration of the last completed run",
		}),
	}
	c.registry.MustRegister(c.LinesRead, c.Accepted, c.Rejected, c.Instruments, c.RunDuration)
	return c
}

// Registry exposes the backing registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// IncLinesRead records one consumed input line.
func (c *Collector) IncLinesRead() {
	if c == nil {
		return
	}
	c.LinesRead.Inc()
}

// IncAccepted records one accepted observation.
func (c *Collector) IncAccepted() {
	if c == nil {
		return
	}
	c.Accepted.Inc()
}

// IncRejected records one rejected line under the given reason label.
func (c *Collector) IncRejected(reason string) {
	if c == nil {
		return
	}
	c.Rejected.WithLabelValues(reason).Inc()
}

// SetInstruments records the current registry cardinality.
func (c *Collector) SetInstruments(n int) {
	if c == nil {
		return
	}
	c.Instruments.Set(float64(n))
}

// SetRunDuration records the elapsed run time in seconds.
func (c *Collector) SetRunDuration(seconds float64) {
	if c == nil {
		return
	}
	c.RunDuration.Set(seconds)
}
