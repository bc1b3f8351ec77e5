package learning

import (
	"testing"

	"github.com/clockwork-systems/timelearn/automata"
	"github.com/clockwork-systems/timelearn/language"
	"github.com/clockwork-systems/timelearn/zones"
)

// pointNeighbor is a neighbor set whose original region pins x0 to 1 but
// whose true value is only known to lie in (0, 1].
func pointNeighbor() NeighborConditions {
	original := language.RegionalFromTimedWord(language.NewTimedWord("", []float64{1}))
	below := language.RegionalFromTimedWord(language.NewTimedWord("", []float64{0.5}))
	return NeighborConditions{
		original:      original,
		preciseClocks: map[int]bool{},
		neighbors:     []language.ForwardRegionalElementaryLanguage{below, original},
		clockSize:     1,
	}
}

func TestHandleOneRelaxesPointGuard(t *testing.T) {
	target := automata.NewTAState(true)
	transition := automata.TATransition{
		Guard: []zones.Constraint{
			{Clock: 0, Rel: zones.Ge, Constant: 1},
			{Clock: 0, Rel: zones.Le, Constant: 1},
		},
		Resets: []automata.ClockReset{{Clock: 1, Value: automata.ConstantReset(0)}},
		Target: target,
	}
	neighbor := pointNeighbor()
	handler := NewImpreciseClockHandler(nil, nil, nil)

	var added []automata.TATransition
	matchBounded, noMatch := false, true
	next := handler.handleOne(neighbor, transition, neighbor.Successor('a'), &added, &matchBounded, &noMatch)

	if noMatch {
		t.Fatalf("guard x0 == 1 did not match the original region")
	}
	if !matchBounded {
		t.Errorf("matchBounded = false for an upper-bounded guard")
	}
	if len(added) != 1 {
		t.Fatalf("added %d transitions, want 1", len(added))
	}
	want := []zones.Constraint{
		{Clock: 0, Rel: zones.Gt, Constant: 0},
		{Clock: 0, Rel: zones.Le, Constant: 1},
	}
	if !zones.GuardEqual(added[0].Guard, want) {
		t.Errorf("relaxed guard = %v, want %v", zones.GuardString(added[0].Guard), zones.GuardString(want))
	}
	if next == nil || next.state != target {
		t.Errorf("internal transition did not queue the target state")
	}
}

func TestHandleOneIgnoresNonMatchingGuard(t *testing.T) {
	target := automata.NewTAState(true)
	transition := automata.TATransition{
		Guard:  []zones.Constraint{{Clock: 0, Rel: zones.Ge, Constant: 5}},
		Target: target,
	}
	neighbor := pointNeighbor()
	handler := NewImpreciseClockHandler(nil, nil, nil)

	var added []automata.TATransition
	matchBounded, noMatch := false, true
	next := handler.handleOne(neighbor, transition, neighbor.Successor('a'), &added, &matchBounded, &noMatch)
	if !noMatch || next != nil || len(added) != 0 {
		t.Errorf("non-matching guard produced a relaxation")
	}
}

func TestRunAddsRelaxedTransition(t *testing.T) {
	target := automata.NewTAState(true)
	source := automata.NewTAState(false)
	source.AddTransition('a', automata.TATransition{
		Guard: []zones.Constraint{
			{Clock: 0, Rel: zones.Ge, Constant: 1},
			{Clock: 0, Rel: zones.Le, Constant: 1},
		},
		Resets: []automata.ClockReset{{Clock: 1, Value: automata.ConstantReset(0)}},
		Target: target,
	})

	handler := NewImpreciseClockHandler(nil, nil, nil)
	handler.pending = append(handler.pending, impreciseNeighbor{state: source, neighbor: pointNeighbor()})
	handler.Run()

	if got := len(source.Next['a']); got != 2 {
		t.Fatalf("source has %d transitions on 'a', want 2", got)
	}
	relaxed := source.Next['a'][1]
	if !zones.GuardWeaker(relaxed.Guard, source.Next['a'][0].Guard) {
		t.Errorf("added guard %v is not weaker than the original %v",
			zones.GuardString(relaxed.Guard), zones.GuardString(source.Next['a'][0].Guard))
	}
	if relaxed.Target != target {
		t.Errorf("added transition points at the wrong state")
	}
}

func TestPushSkipsPreciseJumps(t *testing.T) {
	source := language.RegionalFromTimedWord(language.NewTimedWord("", []float64{1}))
	target := language.RegionalFromTimedWord(language.NewTimedWord("", []float64{1}))
	handler := NewImpreciseClockHandler(nil, nil, nil)

	// A renaming mapping point to equal point carries no imprecision.
	handler.Push(automata.NewTAState(false), language.RenamingRelation{{Source: 0, Target: 0}},
		source, target)
	if len(handler.pending) != 0 {
		t.Errorf("precise jump was queued for relaxation")
	}
}

func TestPushQueuesImpreciseJumps(t *testing.T) {
	source := language.RegionalFromTimedWord(language.NewTimedWord("a", []float64{0.5, 0.7}))
	target := language.RegionalFromTimedWord(language.NewTimedWord("a", []float64{0.5, 0.7}))
	handler := NewImpreciseClockHandler(nil, nil, nil)

	handler.Push(automata.NewTAState(false), language.RenamingRelation{{Source: 1, Target: 1}},
		source, target)
	if len(handler.pending) != 1 {
		t.Errorf("imprecise jump was not queued, pending = %d", len(handler.pending))
	}
}
