package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestLearnerCollectorCountsQueries(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewLearnerCollector(reg)
	if err != nil {
		t.Fatalf("NewLearnerCollector: %v", err)
	}

	collector.ObserveMembershipQuery("sul")
	collector.ObserveMembershipQuery("sul")
	collector.ObserveMembershipQuery("cache")
	collector.ObserveSymbolicQuery()
	collector.ObserveRelaxedGuard()

	if got := testutil.ToFloat64(collector.MembershipQueries.WithLabelValues("sul")); got != 2 {
		t.Fatalf("membership_queries_total{source=sul} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.MembershipQueries.WithLabelValues("cache")); got != 1 {
		t.Fatalf("membership_queries_total{source=cache} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.SymbolicQueries); got != 1 {
		t.Fatalf("symbolic_queries_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.RelaxedGuards); got != 1 {
		t.Fatalf("relaxed_guards_total = %v, want 1", got)
	}

	if got := counterValue(t, reg, "membership_queries_total", map[string]string{"source": "cache"}); got != 1 {
		t.Fatalf("gathered membership_queries_total{source=cache} = %v, want 1", got)
	}
}

func TestLearnerCollectorNilSafe(t *testing.T) {
	var collector *LearnerCollector
	collector.ObserveMembershipQuery("sul")
	collector.ObserveSymbolicQuery()
	collector.ObserveRelaxedGuard()
	collector.SetAutomatonSize(1, 2)
	collector.SetZoneStates(3)
}

func TestLearnerCollectorReregister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewLearnerCollector(reg); err != nil {
		t.Fatalf("NewLearnerCollector: %v", err)
	}
	if _, err := NewLearnerCollector(reg); err != nil {
		t.Fatalf("NewLearnerCollector second registration: %v", err)
	}
}

func TestMetricsHandlerExposesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewLearnerCollector(reg)
	if err != nil {
		t.Fatalf("NewLearnerCollector: %v", err)
	}
	collector.SetAutomatonSize(3, 7)
	collector.SetZoneStates(11)
	collector.ObserveSymbolicQuery()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"symbolic_queries_total",
		"automaton_states",
		"automaton_transitions",
		"zone_states",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
	if !strings.Contains(body, "automaton_states 3") || !strings.Contains(body, "zone_states 11") {
		t.Fatalf("/metrics output missing gauge values: %s", body)
	}
}

func counterValue(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
