package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RelaxationCollector exposes metrics specific to the imprecise-clock guard
// relaxation pass.
type RelaxationCollector struct {
	gatherer prometheus.Gatherer

	PassDuration     prometheus.Histogram
	PendingNeighbors prometheus.Gauge
	IterationsTotal  prometheus.Counter
	CacheHitRatio    prometheus.Gauge
}

// NewRelaxationCollector registers relaxation metrics against the provided registerer.
func NewRelaxationCollector(reg prometheus.Registerer) (*RelaxationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	passHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "relaxation_pass_duration_seconds",
		Help:    "Duration of guard relaxation passes over the pending neighbor queue.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	passHistogram, err := registerHistogram(reg, passHistogram, "relaxation_pass_duration_seconds")
	if err != nil {
		return nil, err
	}

	pendingGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relaxation_pending_neighbors",
		Help: "Number of neighbor conditions currently queued for relaxation.",
	})
	pendingGauge, err = registerGauge(reg, pendingGauge, "relaxation_pending_neighbors")
	if err != nil {
		return nil, err
	}

	iterations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relaxation_iterations_total",
		Help: "Cumulative number of successor iterations performed during relaxation.",
	})
	iterations, err = registerCounter(reg, iterations, "relaxation_iterations_total")
	if err != nil {
		return nil, err
	}

	cacheRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "membership_cache_hit_ratio",
		Help: "Hit ratio for the membership query cache.",
	})
	cacheRatio, err = registerGauge(reg, cacheRatio, "membership_cache_hit_ratio")
	if err != nil {
		return nil, err
	}

	return &RelaxationCollector{
		gatherer:         gatherer,
		PassDuration:     passHistogram,
		PendingNeighbors: pendingGauge,
		IterationsTotal:  iterations,
		CacheHitRatio:    cacheRatio,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *RelaxationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObservePass records the duration of one relaxation pass.
func (c *RelaxationCollector) ObservePass(d time.Duration) {
	if c == nil || c.PassDuration == nil {
		return
	}
	c.PassDuration.Observe(d.Seconds())
}

// SetPendingNeighbors updates the pending queue depth gauge.
func (c *RelaxationCollector) SetPendingNeighbors(count int) {
	if c == nil || c.PendingNeighbors == nil {
		return
	}
	c.PendingNeighbors.Set(float64(count))
}

// IncIterations increments the successor iteration counter.
func (c *RelaxationCollector) IncIterations() {
	if c == nil || c.IterationsTotal == nil {
		return
	}
	c.IterationsTotal.Inc()
}

// SetCacheHitRatio sets the membership cache hit ratio.
func (c *RelaxationCollector) SetCacheHitRatio(ratio float64) {
	if c == nil || c.CacheHitRatio == nil {
		return
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	c.CacheHitRatio.Set(ratio)
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
