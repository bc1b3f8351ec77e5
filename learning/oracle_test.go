package learning

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/clockwork-systems/timelearn/internal/observability"
	"github.com/clockwork-systems/timelearn/language"
)

func TestSULMembershipOracle(t *testing.T) {
	runner := NewTimedAutomatonRunner(resetAutomaton())
	oracle := NewSULMembershipOracle(runner, nil)

	accepted := language.NewTimedWord("ab", []float64{5, 0.5, 0})
	rejected := language.NewTimedWord("ab", []float64{5, 1.5, 0})
	if !oracle.Answer(accepted) {
		t.Errorf("Answer(%v) = false, want true", accepted)
	}
	if oracle.Answer(rejected) {
		t.Errorf("Answer(%v) = true, want false", rejected)
	}
	if oracle.Count() != 2 {
		t.Errorf("Count() = %d, want 2", oracle.Count())
	}
}

func TestMembershipOracleCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewLearnerCollector(reg)
	if err != nil {
		t.Fatalf("NewLearnerCollector: %v", err)
	}
	runner := NewTimedAutomatonRunner(resetAutomaton())
	cache := NewMembershipOracleCache(NewSULMembershipOracle(runner, metrics), metrics)

	word := language.NewTimedWord("ab", []float64{5, 0.5, 0})
	if !cache.Answer(word) {
		t.Fatalf("Answer = false, want true")
	}
	if !cache.Answer(word) {
		t.Fatalf("cached Answer = false, want true")
	}
	if cache.Count() != 1 {
		t.Errorf("Count() = %d, want 1", cache.Count())
	}
	if cache.CountNoCache() != 2 {
		t.Errorf("CountNoCache() = %d, want 2", cache.CountNoCache())
	}
	if cache.HitRatio() != 0.5 {
		t.Errorf("HitRatio() = %v, want 0.5", cache.HitRatio())
	}
	if got := testutil.ToFloat64(metrics.MembershipQueries.WithLabelValues("cache")); got != 1 {
		t.Errorf("membership_queries_total{source=cache} = %v, want 1", got)
	}
}

func TestCacheDistinguishesDurations(t *testing.T) {
	runner := NewTimedAutomatonRunner(resetAutomaton())
	cache := NewMembershipOracleCache(NewSULMembershipOracle(runner, nil), nil)

	in := language.NewTimedWord("ab", []float64{0, 0.5, 0})
	out := language.NewTimedWord("ab", []float64{0, 1.5, 0})
	if !cache.Answer(in) {
		t.Errorf("Answer(%v) = false, want true", in)
	}
	if cache.Answer(out) {
		t.Errorf("Answer(%v) = true, want false", out)
	}
	if cache.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cache.Count())
	}
}
