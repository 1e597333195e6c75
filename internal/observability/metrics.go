package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of the positioning pipeline.
type Collector struct {
	gatherer prometheus.Gatherer

	Solves         *prometheus.CounterVec
	SolveDurations prometheus.Histogram
	Ranges         *prometheus.CounterVec
}

// NewCollector registers the pipeline metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	solves, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lps_solves_total",
		Help: "Probe position solves, labeled by outcome.",
	}, []string{"outcome"}), "lps_solves_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lps_solve_duration_seconds",
		Help:    "Probe position solve latency in seconds.",
		Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 1e-2},
	}), "lps_solve_duration_seconds")
	if err != nil {
		return nil, err
	}

	ranges, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lps_ranges_received_total",
		Help: "Range reports received over MQTT, labeled by anchor and result.",
	}, []string{"anchor", "result"}), "lps_ranges_received_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		Solves:         solves,
		SolveDurations: durations,
		Ranges:         ranges,
	}, nil
}

// ObserveSolve records one solve attempt.
func (c *Collector) ObserveSolve(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Solves.WithLabelValues(outcome).Inc()
	c.SolveDurations.Observe(elapsed.Seconds())
}

// ObserveRange records one received range report.
func (c *Collector) ObserveRange(anchor, result string) {
	if c == nil {
		return
	}
	c.Ranges.WithLabelValues(anchor, result).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
