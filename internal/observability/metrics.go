package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LearnerCollector bundles the Prometheus metrics of the symbolic learner:
// query counters for the membership oracles and gauges tracking the size of
// the hypothesis automaton and its zone graph.
type LearnerCollector struct {
	gatherer prometheus.Gatherer

	MembershipQueries *prometheus.CounterVec
	SymbolicQueries   prometheus.Counter
	RelaxedGuards     prometheus.Counter

	AutomatonStates      prometheus.Gauge
	AutomatonTransitions prometheus.Gauge
	ZoneStates           prometheus.Gauge
}

// NewLearnerCollector registers the learner metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewLearnerCollector(reg prometheus.Registerer) (*LearnerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	membership := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "membership_queries_total",
		Help: "Total number of membership queries, labeled by how they were answered.",
	}, []string{"source"})
	membership, err := registerCounterVec(reg, membership, "membership_queries_total")
	if err != nil {
		return nil, err
	}

	symbolic, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "symbolic_queries_total",
		Help: "Total number of symbolic membership queries.",
	}), "symbolic_queries_total")
	if err != nil {
		return nil, err
	}

	relaxed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relaxed_guards_total",
		Help: "Total number of transitions added by the guard relaxation pass.",
	}), "relaxed_guards_total")
	if err != nil {
		return nil, err
	}

	states, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "automaton_states",
		Help: "Current number of states of the hypothesis automaton.",
	}), "automaton_states")
	if err != nil {
		return nil, err
	}
	transitions, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "automaton_transitions",
		Help: "Current number of transitions of the hypothesis automaton.",
	}), "automaton_transitions")
	if err != nil {
		return nil, err
	}
	zoneStates, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zone_states",
		Help: "Current number of states of the latest zone automaton.",
	}), "zone_states")
	if err != nil {
		return nil, err
	}

	return &LearnerCollector{
		gatherer:             gatherer,
		MembershipQueries:    membership,
		SymbolicQueries:      symbolic,
		RelaxedGuards:        relaxed,
		AutomatonStates:      states,
		AutomatonTransitions: transitions,
		ZoneStates:           zoneStates,
	}, nil
}

// ObserveMembershipQuery records one membership query answered from the
// given source ("sul" or "cache").
func (c *LearnerCollector) ObserveMembershipQuery(source string) {
	if c == nil || c.MembershipQueries == nil {
		return
	}
	c.MembershipQueries.WithLabelValues(source).Inc()
}

// ObserveSymbolicQuery records one symbolic membership query.
func (c *LearnerCollector) ObserveSymbolicQuery() {
	if c == nil || c.SymbolicQueries == nil {
		return
	}
	c.SymbolicQueries.Inc()
}

// ObserveRelaxedGuard records one transition added by guard relaxation.
func (c *LearnerCollector) ObserveRelaxedGuard() {
	if c == nil || c.RelaxedGuards == nil {
		return
	}
	c.RelaxedGuards.Inc()
}

// SetAutomatonSize updates the hypothesis size gauges.
func (c *LearnerCollector) SetAutomatonSize(states, transitions int) {
	if c == nil {
		return
	}
	if c.AutomatonStates != nil {
		c.AutomatonStates.Set(float64(states))
	}
	if c.AutomatonTransitions != nil {
		c.AutomatonTransitions.Set(float64(transitions))
	}
}

// SetZoneStates updates the zone-automaton size gauge.
func (c *LearnerCollector) SetZoneStates(states int) {
	if c == nil || c.ZoneStates == nil {
		return
	}
	c.ZoneStates.Set(float64(states))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *LearnerCollector) Handler() http.Handler {
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

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
