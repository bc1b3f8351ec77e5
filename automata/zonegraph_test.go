package automata

import (
	"testing"

	"github.com/clockwork-systems/timelearn/zones"
)

// loopAutomaton accepts words of 'a's where each step happens at most one
// time unit after the previous one, with a dead branch on 'b'.
func loopAutomaton() *TimedAutomaton {
	s0 := NewTAState(false)
	s1 := NewTAState(true)
	dead := NewTAState(false)
	s0.AddTransition('a', TATransition{
		Guard:  []zones.Constraint{{Clock: 0, Rel: zones.Le, Constant: 1}},
		Resets: []ClockReset{{Clock: 0, Value: ConstantReset(0)}},
		Target: s1,
	})
	s1.AddTransition('a', TATransition{
		Guard:  []zones.Constraint{{Clock: 0, Rel: zones.Le, Constant: 1}},
		Resets: []ClockReset{{Clock: 0, Value: ConstantReset(0)}},
		Target: s1,
	})
	s0.AddTransition('b', TATransition{Target: dead})
	dead.AddTransition('b', TATransition{Target: dead})
	return &TimedAutomaton{
		States:         []*TAState{s0, s1, dead},
		Initial:        []*TAState{s0},
		MaxConstraints: []int{1},
	}
}

func TestBuildZoneAutomatonFinite(t *testing.T) {
	za := BuildZoneAutomaton(loopAutomaton())
	if len(za.States) == 0 || len(za.Initial) != 1 {
		t.Fatalf("unexpected zone automaton shape: %d states, %d initial", len(za.States), len(za.Initial))
	}
	// The max-constant abstraction must keep the unrolling small.
	if len(za.States) > 16 {
		t.Errorf("zone automaton has %d states, abstraction seems broken", len(za.States))
	}
	if za.Empty() {
		t.Errorf("the language is nonempty, an accepting zone state must be reachable")
	}
}

func TestZoneAutomatonSample(t *testing.T) {
	za := BuildZoneAutomaton(loopAutomaton())
	word, ok := za.Sample()
	if !ok {
		t.Fatalf("Sample found no accepting run")
	}
	if len(word.Word()) == 0 || word.Word()[0] != 'a' {
		t.Errorf("sampled word %v should start with 'a'", word)
	}
	durations := word.Durations()
	if durations[0] > 1 {
		t.Errorf("sampled first delay %g violates the guard x0 <= 1", durations[0])
	}
}

func TestRemoveDeadStates(t *testing.T) {
	za := BuildZoneAutomaton(loopAutomaton())
	za.RemoveDeadStates()
	for _, s := range za.States {
		if len(s.TAState.Next['b']) > 0 && !s.Match {
			// The dead 'b' branch must be gone from the zone automaton.
			for _, e := range s.Next['b'] {
				t.Errorf("dead edge to %v survived", e.Target.TAState)
			}
		}
	}
	if za.Empty() {
		t.Errorf("pruning dead states must not empty a nonempty language")
	}
}

func TestSimplifyWithZones(t *testing.T) {
	ta := loopAutomaton()
	statesBefore := len(ta.States)
	ta.SimplifyWithZones()
	if len(ta.States) >= statesBefore {
		t.Errorf("SimplifyWithZones kept %d states, want fewer than %d", len(ta.States), statesBefore)
	}
	for _, s := range ta.States {
		if len(s.Next['b']) != 0 {
			t.Errorf("the dead 'b' branch should be pruned")
		}
	}
	// The remaining automaton still accepts some word.
	za := BuildZoneAutomaton(ta)
	if za.Empty() {
		t.Errorf("simplification emptied the language")
	}
}

func TestEmptyLanguage(t *testing.T) {
	s0 := NewTAState(false)
	s1 := NewTAState(true)
	// Unsatisfiable guard: the language is empty.
	s0.AddTransition('a', TATransition{
		Guard: []zones.Constraint{
			{Clock: 0, Rel: zones.Le, Constant: 1},
			{Clock: 0, Rel: zones.Ge, Constant: 2},
		},
		Target: s1,
	})
	ta := &TimedAutomaton{States: []*TAState{s0, s1}, Initial: []*TAState{s0}, MaxConstraints: []int{2}}
	za := BuildZoneAutomaton(ta)
	if !za.Empty() {
		t.Errorf("an automaton with an unsatisfiable guard accepts nothing")
	}
	if _, ok := za.Sample(); ok {
		t.Errorf("Sample should find no accepting run")
	}
}
