package learning

import (
	"testing"

	"github.com/clockwork-systems/timelearn/automata"
	"github.com/clockwork-systems/timelearn/language"
	"github.com/clockwork-systems/timelearn/zones"
)

func TestNeighborConditionsAllPrecise(t *testing.T) {
	original := language.RegionalFromTimedWord(language.NewTimedWord("a", []float64{0.5, 0.2}))
	nc := NewNeighborConditions(original, []int{0, 1})

	if !nc.Precise() {
		t.Errorf("Precise() = false with all clocks precise, want true")
	}
	if nc.ClockSize() != 2 {
		t.Errorf("ClockSize() = %d, want 2", nc.ClockSize())
	}
	if !zones.GuardEqual(nc.RelaxedGuard(), nc.OriginalGuard()) {
		t.Errorf("relaxed guard %v differs from original guard %v with all clocks precise",
			zones.GuardString(nc.RelaxedGuard()), zones.GuardString(nc.OriginalGuard()))
	}
}

func TestNeighborConditionsImpreciseClockWidens(t *testing.T) {
	// x0 = 1.2 in (1, 2), x1 = 0.7 in (0, 1); the fractional relation between
	// the two is dropped when x0 is imprecise.
	original := language.RegionalFromTimedWord(language.NewTimedWord("a", []float64{0.5, 0.7}))
	nc := NewNeighborConditions(original, []int{1})

	if nc.Precise() {
		t.Errorf("Precise() = true, want false: the tau_0 cell is unknown")
	}
	if got := nc.ImpreciseClocks(); len(got) != 1 || got[0] != 0 {
		t.Errorf("ImpreciseClocks() = %v, want [0]", got)
	}

	// Observing only x1 in (0, 1) leaves x0 anywhere in (1, 3): the continuous
	// successors with x0 past 2 still agree on the precise clock.
	relaxed := nc.RelaxedGuard()
	want := []zones.Constraint{
		{Clock: 0, Rel: zones.Lt, Constant: 3},
		{Clock: 1, Rel: zones.Lt, Constant: 1},
		{Clock: 0, Rel: zones.Gt, Constant: 1},
		{Clock: 1, Rel: zones.Gt, Constant: 0},
	}
	if !zones.GuardEqual(relaxed, want) {
		t.Errorf("RelaxedGuard() = %v, want %v", zones.GuardString(relaxed), zones.GuardString(want))
	}

	if !nc.Match([]zones.Constraint{{Clock: 0, Rel: zones.Gt, Constant: 1}}) {
		t.Errorf("Match(x0 > 1) = false, want true")
	}
	if nc.Match([]zones.Constraint{{Clock: 0, Rel: zones.Ge, Constant: 2}}) {
		t.Errorf("Match(x0 >= 2) = true, want false")
	}
}

func TestNeighborConditionsImplicitPrecision(t *testing.T) {
	// x1 is pinned to an integer point, so it is precise even when not listed.
	original := language.RegionalFromTimedWord(language.NewTimedWord("a", []float64{1.5, 0}))
	nc := NewNeighborConditions(original, nil)

	if got := nc.ImpreciseClocks(); len(got) != 1 || got[0] != 0 {
		t.Errorf("ImpreciseClocks() = %v, want [0]", got)
	}
}

func TestNeighborConditionsSuccessorAction(t *testing.T) {
	original := language.RegionalFromTimedWord(language.NewTimedWord("a", []float64{0.5, 0.7}))
	nc := NewNeighborConditions(original, []int{1})

	succ := nc.Successor('b')
	if succ.ClockSize() != 3 {
		t.Errorf("ClockSize() after action = %d, want 3", succ.ClockSize())
	}
	// The fresh clock starts precise.
	for _, clock := range succ.ImpreciseClocks() {
		if clock == 2 {
			t.Errorf("fresh clock 2 reported imprecise")
		}
	}
}

func TestAfterExternalTransitionResets(t *testing.T) {
	original := language.RegionalFromTimedWord(language.NewTimedWord("a", []float64{0.5, 0.7}))
	nc := NewNeighborConditions(original, []int{1})

	// Overwriting the imprecise clock with an integral constant leaves only
	// precise clocks behind.
	after := nc.AfterExternalTransition([]automata.ClockReset{
		{Clock: 0, Value: automata.ConstantReset(0)},
	}, 2)
	if got := after.ImpreciseClocks(); len(got) != 0 {
		t.Errorf("ImpreciseClocks() after constant reset = %v, want none", got)
	}

	// Copying from the imprecise clock propagates the imprecision.
	after = nc.AfterExternalTransition([]automata.ClockReset{
		{Clock: 1, Value: automata.CopyReset(0)},
	}, 2)
	imprecise := after.ImpreciseClocks()
	if len(imprecise) != 2 {
		t.Errorf("ImpreciseClocks() after copy from imprecise = %v, want both clocks", imprecise)
	}
}
